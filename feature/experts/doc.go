// Package experts loads researcher profiles from the upstream Aggie Experts API
// and keeps them in the entity cache.
//
// # Upstream
//
// Client pages through GET {base}/expert?page=N&size=M and then loads every
// expert record (GET {base}/expert/{id}) with bounded concurrency. Requests go
// through core/httpjson, so transient failures are retried with backoff.
//
// # Cache
//
// ExpertAdapter, WorkAdapter and GrantAdapter map records onto expert:<id>,
// work:<id> and grant:<id> hashes for core/cache. Works and grants shared by
// several experts are merged by Collect, keeping every related expert.
//
// # Service
//
// Service.Sync runs fetch then cache write for all three types and returns the
// works and grants for the location pipeline. Service.Cached reads them back
// from the most recent cache session.
package experts
