// Package locations is the ETL that places works and grants on the map.
//
// For every work and grant title a chat model is asked for the geopolitical
// entities it names ("Davis, California | 90"). Names pass through a manual
// alias table, are geocoded with Nominatim and merged per OpenStreetMap id
// under the first name seen. The result is two GeoJSON FeatureCollections,
// one for works and one for grants, whose features carry the location
// properties (name, country, place_rank, osm_id) and the entries found there.
//
// Extraction and geocoding run through a bounded errgroup; the geocoder is
// additionally rate limited to respect the Nominatim usage policy. Collections
// and run statistics are uploaded to object storage, and an offline batch
// request file can be produced with Pipeline.WriteBatch and read back with
// ParseBatchResults and BatchExtractor.
package locations
