package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"experts-geo/core/errs"
	"experts-geo/core/kv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cache reads and writes one entity type through its Adapter.
type Cache[T any] struct {
	adapter    Adapter[T]
	conn       kv.Connector
	logger     *zap.Logger
	now        func() time.Time
	newSession func() string
}

// Option customises a Cache.
type Option func(*options)

type options struct {
	now        func() time.Time
	newSession func() string
}

// WithClock overrides the time source used for cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSessionIDs overrides session id generation.
func WithSessionIDs(fn func() string) Option {
	return func(o *options) { o.newSession = fn }
}

// New creates a cache for the adapter's entity type.
func New[T any](adapter Adapter[T], conn kv.Connector, logger *zap.Logger, opts ...Option) *Cache[T] {
	o := options{now: time.Now, newSession: NewSessionID}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache[T]{
		adapter:    adapter,
		conn:       conn,
		logger:     logger.With(zap.String("entity_type", adapter.Type())),
		now:        o.now,
		newSession: o.newSession,
	}
}

// Type returns the entity type handled by this cache.
func (c *Cache[T]) Type() string {
	return c.adapter.Type()
}

// NewSessionID returns a time-ordered session id.
func NewSessionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "session_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + suffix
}

// Write upserts items, skipping those whose stored record is unchanged, and
// refreshes the type's metadata and session log.
func (c *Cache[T]) Write(ctx context.Context, items []*T) (WriteResult, error) {
	const op = "cache.Write"
	session := c.newSession()
	res := WriteResult{Session: session}
	typ := c.adapter.Type()
	log := c.logger.With(zap.String("session", session))

	store, err := c.conn.Connect(ctx)
	if err != nil {
		return res, errs.E(errs.KindStoreUnavailable, op, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("Failed to close cache connection", zap.Error(cerr))
		}
	}()

	keys, err := store.Keys(ctx, typ+":*")
	if err != nil {
		return res, errs.E(errs.KindStoreUnavailable, op, fmt.Errorf("list %s keys: %w", typ, err))
	}
	existingKeys := make(map[string]struct{}, len(keys))
	entryKeys := map[string][]string{}
	for _, k := range keys {
		if i := strings.Index(k, entryMarker); i >= 0 {
			entryKeys[k[:i]] = append(entryKeys[k[:i]], k)
			continue
		}
		existingKeys[k] = struct{}{}
	}

	written := 0
	fail := func(kind errs.Kind, err error) (WriteResult, error) {
		if written > 0 && kind == errs.KindStoreUnavailable {
			kind = errs.KindPartialFailure
		}
		log.Error("Cache write aborted", zap.Int("written", written), zap.Error(err))
		return res, errs.E(kind, op, err)
	}

	stampedAt := c.now().UTC().Format(time.RFC3339)
	entryAdapter, hasEntries := c.adapter.(EntryAdapter[T])

	for i, item := range items {
		if item == nil {
			log.Warn("Dropping nil item", zap.Int("index", i))
			res.Dropped++
			continue
		}

		id := c.adapter.ItemID(item, i)
		if id == "" {
			return fail(errs.KindValidationFailed, fmt.Errorf("item %d has no id", i))
		}
		key := RecordKey(typ, id)

		var existing Record
		if _, ok := existingKeys[key]; ok {
			raw, err := store.HGetAll(ctx, key)
			if err != nil {
				return fail(errs.KindStoreUnavailable, fmt.Errorf("read %s: %w", key, err))
			}
			if len(raw) > 0 {
				existing = DecodeRecord(raw)
			}
		}

		if existing != nil && c.adapter.IsUnchanged(item, existing) {
			res.Unchanged++
			continue
		}

		fields, err := c.adapter.Format(item, session)
		if err != nil {
			return fail(errs.KindValidationFailed, fmt.Errorf("format %s: %w", key, err))
		}
		var entries []map[string]string
		if hasEntries {
			entries, err = entryAdapter.FormatEntries(item, session)
			if err != nil {
				return fail(errs.KindValidationFailed, fmt.Errorf("format entries of %s: %w", key, err))
			}
		}

		// The record and its old entries are replaced, not merged, so fields
		// an item no longer carries do not survive the update.
		stamp(fields, session, stampedAt)
		if err := store.Replace(ctx, key, fields, entryKeys[key]...); err != nil {
			return fail(errs.KindStoreUnavailable, fmt.Errorf("write %s: %w", key, err))
		}
		written++
		stored := make([]string, 0, len(entries))
		for n, entry := range entries {
			stamp(entry, session, stampedAt)
			entryKey := EntryKey(typ, id, n)
			if err := store.HSet(ctx, entryKey, entry); err != nil {
				return fail(errs.KindStoreUnavailable, fmt.Errorf("write entry %d of %s: %w", n, key, err))
			}
			stored = append(stored, entryKey)
		}
		existingKeys[key] = struct{}{}
		entryKeys[key] = stored

		if existing == nil {
			res.New++
		} else {
			res.Updated++
		}
	}

	meta := Metadata{
		LastSession:    session,
		TotalCount:     res.Total(),
		NewCount:       res.New,
		UpdatedCount:   res.Updated,
		UnchangedCount: res.Unchanged,
		Timestamp:      c.now(),
	}
	if err := store.HSet(ctx, MetadataKey(typ), meta.fields()); err != nil {
		return fail(errs.KindStoreUnavailable, fmt.Errorf("write metadata: %w", err))
	}
	if err := store.RPush(ctx, SessionsKey(typ), session); err != nil {
		return fail(errs.KindStoreUnavailable, fmt.Errorf("append session log: %w", err))
	}

	log.Info("Cache write completed",
		zap.Int("new", res.New),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("dropped", res.Dropped))

	return res, nil
}

func stamp(fields map[string]string, session, at string) {
	fields[FieldSession] = session
	fields[FieldCachedAt] = at
}
