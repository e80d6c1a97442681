// Package cache provides a generic write-through diff cache for entity records
// stored as Redis hashes.
//
// The cache is parameterised by an Adapter per entity type (experts, works,
// grants, GeoJSON features) and keeps three kinds of keys per type:
//
//	<type>:<id>              one hash per record
//	<type>:<id>:entry:<n>    nested entries (see EntryAdapter)
//	<type>:metadata          summary of the last write batch
//	<type>:sessions          append-only log of session ids
//
// # Writing
//
// Write stamps every batch with a fresh session id. Each incoming item is
// classified as new, updated or unchanged against the stored hash; unchanged
// items are not rewritten, so they keep the session of the batch that last
// changed them. Any store or serialisation error aborts the batch; the
// returned error carries an errs.Kind describing how far the batch got.
//
// # Reading
//
// ReadRecent returns the records stamped with the latest session in the log,
// ReadSession does the same for an explicit session, and ReadAll returns
// everything. ReadAll fails open: on store errors it still returns an empty,
// usable slice alongside the error.
//
// # Usage
//
//	c := cache.New[experts.Expert](experts.ExpertAdapter{}, kv.NewRedisConnector(cfg.Redis), log)
//	res, err := c.Write(ctx, items)
//	recent, err := c.ReadRecent(ctx)
package cache
