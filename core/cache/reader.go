package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"experts-geo/core/errs"
	"experts-geo/core/kv"

	"go.uber.org/zap"
)

// ErrNoSession is returned when a type has never been written.
var ErrNoSession = errors.New("no recent cache session")

// ReadRecent returns the records stamped with the most recent session.
func (c *Cache[T]) ReadRecent(ctx context.Context) (ReadResult[T], error) {
	const op = "cache.ReadRecent"

	store, err := c.conn.Connect(ctx)
	if err != nil {
		return ReadResult[T]{Items: []*T{}}, errs.E(errs.KindStoreUnavailable, op, err)
	}
	defer store.Close()

	session, err := c.latestSession(ctx, store)
	if err != nil {
		return ReadResult[T]{Items: []*T{}}, errs.E(errs.KindOf(err), op, err)
	}
	return c.readSession(ctx, store, session)
}

// ReadSession returns the records stamped with the given session.
func (c *Cache[T]) ReadSession(ctx context.Context, session string) (ReadResult[T], error) {
	const op = "cache.ReadSession"
	if session == "" {
		return ReadResult[T]{Items: []*T{}}, errs.E(errs.KindValidationFailed, op, errors.New("empty session id"))
	}

	store, err := c.conn.Connect(ctx)
	if err != nil {
		return ReadResult[T]{Session: session, Items: []*T{}}, errs.E(errs.KindStoreUnavailable, op, err)
	}
	defer store.Close()

	return c.readSession(ctx, store, session)
}

// Sessions returns the session log, oldest first.
func (c *Cache[T]) Sessions(ctx context.Context) ([]string, error) {
	const op = "cache.Sessions"
	store, err := c.conn.Connect(ctx)
	if err != nil {
		return nil, errs.E(errs.KindStoreUnavailable, op, err)
	}
	defer store.Close()

	sessions, err := store.LRange(ctx, SessionsKey(c.adapter.Type()), 0, -1)
	if err != nil {
		return nil, errs.E(errs.KindStoreUnavailable, op, err)
	}
	return sessions, nil
}

// Metadata returns the summary of the last write batch.
func (c *Cache[T]) Metadata(ctx context.Context) (Metadata, error) {
	const op = "cache.Metadata"
	store, err := c.conn.Connect(ctx)
	if err != nil {
		return Metadata{}, errs.E(errs.KindStoreUnavailable, op, err)
	}
	defer store.Close()

	raw, err := store.HGetAll(ctx, MetadataKey(c.adapter.Type()))
	if err != nil {
		return Metadata{}, errs.E(errs.KindStoreUnavailable, op, err)
	}
	if len(raw) == 0 {
		return Metadata{}, errs.E(errs.KindNotFound, op, ErrNoSession)
	}
	return metadataFromHash(raw), nil
}

// ReadAll returns the records with the given ids, or every record when no ids
// are given. It fails open: on a store error the returned slice is empty but
// non-nil and the error describes the failure.
func (c *Cache[T]) ReadAll(ctx context.Context, ids ...string) ([]*T, error) {
	const op = "cache.ReadAll"
	items := []*T{}

	store, err := c.conn.Connect(ctx)
	if err != nil {
		c.logger.Error("Cache read failed", zap.Error(err))
		return items, errs.E(errs.KindStoreUnavailable, op, err)
	}
	defer store.Close()

	typ := c.adapter.Type()
	if len(ids) == 0 {
		ids, err = c.listIDs(ctx, store)
		if err != nil {
			c.logger.Error("Cache read failed", zap.Error(err))
			return []*T{}, errs.E(errs.KindStoreUnavailable, op, err)
		}
	}

	for _, id := range ids {
		raw, err := store.HGetAll(ctx, RecordKey(typ, id))
		if err != nil {
			c.logger.Error("Cache read failed", zap.String("id", id), zap.Error(err))
			return []*T{}, errs.E(errs.KindStoreUnavailable, op, err)
		}
		if len(raw) == 0 {
			continue
		}
		item, err := c.parse(ctx, store, id, DecodeRecord(raw))
		if err != nil {
			c.logger.Warn("Skipping malformed cache record", zap.String("id", id), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Cache[T]) latestSession(ctx context.Context, store kv.Store) (string, error) {
	typ := c.adapter.Type()
	last, err := store.LRange(ctx, SessionsKey(typ), -1, -1)
	if err != nil {
		return "", errs.E(errs.KindStoreUnavailable, "cache.latestSession", err)
	}
	if len(last) == 1 && last[0] != "" {
		return last[0], nil
	}

	raw, err := store.HGetAll(ctx, MetadataKey(typ))
	if err != nil {
		return "", errs.E(errs.KindStoreUnavailable, "cache.latestSession", err)
	}
	if s := raw["last_session"]; s != "" {
		return s, nil
	}
	return "", errs.E(errs.KindNotFound, "cache.latestSession", ErrNoSession)
}

func (c *Cache[T]) readSession(ctx context.Context, store kv.Store, session string) (ReadResult[T], error) {
	const op = "cache.readSession"
	res := ReadResult[T]{Session: session, Items: []*T{}}

	ids, err := c.listIDs(ctx, store)
	if err != nil {
		return res, errs.E(errs.KindStoreUnavailable, op, err)
	}

	typ := c.adapter.Type()
	for _, id := range ids {
		raw, err := store.HGetAll(ctx, RecordKey(typ, id))
		if err != nil {
			return res, errs.E(errs.KindStoreUnavailable, op, err)
		}
		if len(raw) == 0 {
			c.logger.Warn("Skipping empty cache record", zap.String("id", id))
			continue
		}
		rec := DecodeRecord(raw)
		if rec.Session() != session {
			continue
		}
		item, err := c.parse(ctx, store, id, rec)
		if err != nil {
			c.logger.Warn("Skipping malformed cache record", zap.String("id", id), zap.Error(err))
			continue
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

// listIDs returns the sorted ids of all top-level records of the type.
func (c *Cache[T]) listIDs(ctx context.Context, store kv.Store) ([]string, error) {
	typ := c.adapter.Type()
	keys, err := store.Keys(ctx, typ+":*")
	if err != nil {
		return nil, fmt.Errorf("list %s keys: %w", typ, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id, ok := recordID(typ, k); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Cache[T]) parse(ctx context.Context, store kv.Store, id string, rec Record) (*T, error) {
	item, err := c.adapter.Parse(rec)
	if err != nil {
		return nil, err
	}
	ea, ok := c.adapter.(EntryAdapter[T])
	if !ok {
		return item, nil
	}

	n := rec.Int(FieldEntryCount)
	entries := make([]Record, 0, n)
	typ := c.adapter.Type()
	for i := 0; i < n; i++ {
		raw, err := store.HGetAll(ctx, EntryKey(typ, id, i))
		if err != nil {
			return nil, fmt.Errorf("read entry %d: %w", i, err)
		}
		if len(raw) == 0 {
			c.logger.Warn("Missing cache entry", zap.String("id", id), zap.Int("entry", i))
			continue
		}
		entries = append(entries, DecodeRecord(raw))
	}
	if err := ea.ParseEntries(item, entries); err != nil {
		return nil, err
	}
	return item, nil
}
