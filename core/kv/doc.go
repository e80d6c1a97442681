// Package kv provides the Redis-shaped key-value store used by the entity cache
// and the PostGIS write-through helper.
//
// Records are stored as one hash per key (`<type>:<id>`, `<type>:metadata`,
// `<type>:<id>:entry:<n>`) plus an append-only list per type for the session
// log. Only the primitives the cache needs are exposed, which keeps the Store
// interface small enough to mock (see core/kv/mocks).
//
// # Connections
//
// A Connector opens a fresh Store; callers own it and must Close it when their
// operation is done:
//
//	conn := kv.NewRedisConnector(cfg.Redis)
//	store, err := conn.Connect(ctx)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	keys, err := store.Keys(ctx, "expert:*")
package kv
