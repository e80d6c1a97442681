// Package geostore persists location features in PostGIS.
//
// Two tables hold one row per geocoded location: locations_works and
// locations_grants, each with an id, a unique name, a geometry(Geometry,4326)
// column and a JSONB properties column. The locations_combined view unions
// both and adds a source_type discriminator ("works" or "grants").
//
// # Reads
//
// Features returns a source as an orb FeatureCollection, converting geometry
// with ST_AsGeoJSON. Rows whose geometry or properties cannot be decoded are
// skipped with a warning.
//
// # Writes
//
//   - Replace swaps a whole table in one transaction (used by the ETL publish step).
//   - Upsert writes a single feature through WriteThroughCache, which runs the SQL
//     and a key-value hash write inside the same transaction. A failure on either
//     side rolls the SQL back and is returned as errs.KindStoreUnavailable.
//
// # Schema
//
// Migrate creates the extension, tables, GiST indexes and the view. VerifySchema
// uses the database inspector to report missing columns.
package geostore
