// Package geo serves the location map data over HTTP.
//
// Collections are read from PostGIS (locations_works, locations_grants and the
// locations_combined view) or, with server.data_source=redis, from the most
// recent session of the worksFeature and grantsFeature caches. Every
// FeatureCollection carries a top-level "metadata" member describing where it
// came from.
//
// Routes, all under /api:
//
//	GET /works, /grants, /combined            location FeatureCollections
//	GET /redis/worksQuery, /redis/grantsQuery  cached features, ?session= for a past run
//	GET /index?keyword=&source=               relational index (see package index)
//	GET /cache/:type/metadata                 cache metadata and session log
//	GET /status                               data source and every cache
//
// Service.Publish is the write side: it replaces the PostGIS tables with a
// pipeline output and records the same features in the caches.
package geo
