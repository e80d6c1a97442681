// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so the ETL pipeline can publish GeoJSON
// collections and LLM batch request files, and so the CLI can load previously
// published collections. Both AWS S3 and self-hosted MinIO are supported.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (see core/storage/mocks).
//
// # Helpers
//
//   - EnsureBucket: creates the artifact bucket when missing.
//   - PutArtifact / GetArtifact: whole-object upload and download.
//   - ListArtifacts: lists object names under a prefix.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.PutArtifact(ctx, client, cfg.Storage.Bucket, "geojson/works.geojson", "application/geo+json", data)
package storage
