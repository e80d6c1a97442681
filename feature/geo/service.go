package geo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"experts-geo/core/cache"
	"experts-geo/core/errs"
	"experts-geo/core/geostore"
	"experts-geo/core/kv"
	"experts-geo/core/metrics"
	"experts-geo/core/server"
	"experts-geo/feature/geo/index"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FeatureStore is the relational side of the location data.
type FeatureStore interface {
	Features(ctx context.Context, src geostore.Source) (*geojson.FeatureCollection, error)
	Replace(ctx context.Context, src geostore.Source, fc *geojson.FeatureCollection) (int, error)
	Upsert(ctx context.Context, src geostore.Source, f *geojson.Feature) error
}

type publishOptions struct {
	allowEmpty bool
	merge      bool
}

// PublishOption changes how Publish writes to the feature store.
type PublishOption func(*publishOptions)

// AllowEmpty lets Publish replace a table with an empty collection.
func AllowEmpty() PublishOption {
	return func(o *publishOptions) { o.allowEmpty = true }
}

// Merge upserts each feature instead of replacing the tables, leaving rows
// for locations missing from the collection in place.
func Merge() PublishOption {
	return func(o *publishOptions) { o.merge = true }
}

// CacheInfo exposes the bookkeeping of one cached entity type.
type CacheInfo interface {
	Type() string
	Metadata(ctx context.Context) (cache.Metadata, error)
	Sessions(ctx context.Context) ([]string, error)
}

// CacheStatus is the metadata and session log of one cached type.
type CacheStatus struct {
	Type     string          `json:"type"`
	Metadata *cache.Metadata `json:"metadata,omitempty"`
	Sessions []string        `json:"sessions"`
	Error    string          `json:"error,omitempty"`
}

// PublishResult reports where a pipeline output was written.
type PublishResult struct {
	WorksRows   int               `json:"works_rows"`
	GrantsRows  int               `json:"grants_rows"`
	WorksCache  cache.WriteResult `json:"works_cache"`
	GrantsCache cache.WriteResult `json:"grants_cache"`
}

// Service serves location collections and the relational index.
type Service struct {
	store      FeatureStore
	works      *cache.Cache[geojson.Feature]
	grants     *cache.Cache[geojson.Feature]
	caches     map[string]CacheInfo
	builder    *index.Builder
	dataSource string
	group      singleflight.Group
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewService creates the geo service. store may be nil when dataSource is
// server.DataSourceRedis; m may be nil.
func NewService(store FeatureStore, conn kv.Connector, dataSource string, builder *index.Builder, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if builder == nil {
		builder = index.NewBuilder(logger)
	}
	s := &Service{
		store:      store,
		works:      cache.New[geojson.Feature](WorksFeatureAdapter(), conn, logger),
		grants:     cache.New[geojson.Feature](GrantsFeatureAdapter(), conn, logger),
		caches:     map[string]CacheInfo{},
		builder:    builder,
		dataSource: dataSource,
		metrics:    m,
		logger:     logger,
	}
	s.RegisterCache(s.works)
	s.RegisterCache(s.grants)
	return s
}

// RegisterCache makes a cached type visible to the status endpoints.
func (s *Service) RegisterCache(c CacheInfo) {
	s.caches[c.Type()] = c
}

// DataSource returns the backend location collections are read from.
func (s *Service) DataSource() string {
	if s.store == nil {
		return server.DataSourceRedis
	}
	return s.dataSource
}

// Collection returns the location features of a source with a metadata block.
func (s *Service) Collection(ctx context.Context, src geostore.Source) (*geojson.FeatureCollection, error) {
	if _, err := src.Table(); err != nil {
		return nil, err
	}

	var fc *geojson.FeatureCollection
	var err error
	if s.DataSource() == server.DataSourceRedis {
		fc, err = s.cachedSource(ctx, src)
	} else {
		fc, err = s.store.Features(ctx, src)
	}
	if err != nil {
		return nil, err
	}

	setMetadata(fc, geojson.Properties{
		"source":      s.DataSource(),
		"source_type": string(src),
		"count":       len(fc.Features),
	})
	return fc, nil
}

// cachedSource reads every cached feature of a source. Unchanged features
// keep the session that first wrote them, so the whole keyspace is read
// rather than the latest session only.
func (s *Service) cachedSource(ctx context.Context, src geostore.Source) (*geojson.FeatureCollection, error) {
	read := func(c *cache.Cache[geojson.Feature], tag geostore.Source) ([]*geojson.Feature, error) {
		items, err := c.ReadAll(ctx)
		if err != nil {
			return nil, err
		}
		for _, f := range items {
			f.Properties["source_type"] = string(tag)
		}
		return items, nil
	}

	fc := geojson.NewFeatureCollection()
	if src == geostore.SourceWorks || src == geostore.SourceCombined || src == "" {
		items, err := read(s.works, geostore.SourceWorks)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, items...)
	}
	if src == geostore.SourceGrants || src == geostore.SourceCombined || src == "" {
		items, err := read(s.grants, geostore.SourceGrants)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, items...)
	}
	return fc, nil
}

// CachedCollection returns the cached features of one cache session. An
// empty session selects the most recent one.
func (s *Service) CachedCollection(ctx context.Context, src geostore.Source, session string) (*geojson.FeatureCollection, error) {
	var c *cache.Cache[geojson.Feature]
	switch src {
	case geostore.SourceWorks:
		c = s.works
	case geostore.SourceGrants:
		c = s.grants
	default:
		return nil, errs.E(errs.KindValidationFailed, "geo.cached", fmt.Errorf("unknown cache source %q", src))
	}

	var res cache.ReadResult[geojson.Feature]
	var err error
	if session == "" {
		res, err = c.ReadRecent(ctx)
	} else {
		res, err = c.ReadSession(ctx, session)
	}
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = res.Items
	setMetadata(fc, geojson.Properties{
		"source":     server.DataSourceRedis,
		"type":       c.Type(),
		"session_id": res.Session,
		"count":      len(res.Items),
	})
	return fc, nil
}

// Index builds the relational index over the current works and grants.
// Concurrent calls for the same keyword share one build.
func (s *Service) Index(ctx context.Context, keyword string) (*index.Result, error) {
	v, err, _ := s.group.Do("index:"+keyword, func() (any, error) {
		// The build is shared, so one caller going away must not fail the rest.
		sctx := context.WithoutCancel(ctx)
		works, err := s.Collection(sctx, geostore.SourceWorks)
		if err != nil {
			return nil, fmt.Errorf("load works: %w", err)
		}
		grants, err := s.Collection(sctx, geostore.SourceGrants)
		if err != nil {
			return nil, fmt.Errorf("load grants: %w", err)
		}
		return s.builder.BuildFromCollections(works, grants, keyword), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.Result), nil
}

// Publish writes a pipeline output to PostGIS, when configured, and to the
// feature caches. An empty collection is refused unless AllowEmpty is given,
// since replacing with it would wipe the table.
func (s *Service) Publish(ctx context.Context, works, grants *geojson.FeatureCollection, opts ...PublishOption) (PublishResult, error) {
	var res PublishResult
	var err error

	var o publishOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.allowEmpty && !o.merge {
		if works == nil || len(works.Features) == 0 {
			return res, errs.E(errs.KindValidationFailed, "geo.publish", fmt.Errorf("refusing to replace %s with an empty collection", geostore.SourceWorks))
		}
		if grants == nil || len(grants.Features) == 0 {
			return res, errs.E(errs.KindValidationFailed, "geo.publish", fmt.Errorf("refusing to replace %s with an empty collection", geostore.SourceGrants))
		}
	}
	if works == nil {
		works = geojson.NewFeatureCollection()
	}
	if grants == nil {
		grants = geojson.NewFeatureCollection()
	}

	if s.store != nil {
		if o.merge {
			if res.WorksRows, err = s.upsert(ctx, geostore.SourceWorks, works); err != nil {
				return res, fmt.Errorf("publish works: %w", err)
			}
			if res.GrantsRows, err = s.upsert(ctx, geostore.SourceGrants, grants); err != nil {
				return res, fmt.Errorf("publish grants: %w", err)
			}
		} else {
			if res.WorksRows, err = s.store.Replace(ctx, geostore.SourceWorks, works); err != nil {
				return res, fmt.Errorf("publish works: %w", err)
			}
			if res.GrantsRows, err = s.store.Replace(ctx, geostore.SourceGrants, grants); err != nil {
				return res, fmt.Errorf("publish grants: %w", err)
			}
		}
	}

	res.WorksCache, err = s.works.Write(ctx, works.Features)
	s.metrics.ObserveWrite(TypeWorksFeature, res.WorksCache, err)
	if err != nil {
		return res, fmt.Errorf("cache works: %w", err)
	}
	res.GrantsCache, err = s.grants.Write(ctx, grants.Features)
	s.metrics.ObserveWrite(TypeGrantsFeature, res.GrantsCache, err)
	if err != nil {
		return res, fmt.Errorf("cache grants: %w", err)
	}

	s.logger.Info("Locations published",
		zap.Int("works_rows", res.WorksRows),
		zap.Int("grants_rows", res.GrantsRows),
		zap.String("works_session", res.WorksCache.Session),
		zap.String("grants_session", res.GrantsCache.Session))
	return res, nil
}

func (s *Service) upsert(ctx context.Context, src geostore.Source, fc *geojson.FeatureCollection) (int, error) {
	for i, f := range fc.Features {
		if err := s.store.Upsert(ctx, src, f); err != nil {
			return i, err
		}
	}
	return len(fc.Features), nil
}

// CacheStatus returns the metadata and session log of a cached type.
func (s *Service) CacheStatus(ctx context.Context, typ string) (CacheStatus, error) {
	c, ok := s.caches[typ]
	if !ok {
		return CacheStatus{}, errs.E(errs.KindNotFound, "geo.cache_status", fmt.Errorf("unknown cache type %q", typ))
	}
	md, err := c.Metadata(ctx)
	if err != nil {
		return CacheStatus{}, err
	}
	sessions, err := c.Sessions(ctx)
	if err != nil {
		return CacheStatus{}, err
	}
	if sessions == nil {
		sessions = []string{}
	}
	return CacheStatus{Type: typ, Metadata: &md, Sessions: sessions}, nil
}

// Status reports every registered cache. Per-type failures are reported in
// place rather than failing the whole call.
func (s *Service) Status(ctx context.Context) map[string]any {
	types := make([]string, 0, len(s.caches))
	for typ := range s.caches {
		types = append(types, typ)
	}
	sort.Strings(types)

	statuses := make([]CacheStatus, 0, len(types))
	for _, typ := range types {
		st, err := s.CacheStatus(ctx, typ)
		if err != nil {
			st = CacheStatus{Type: typ, Sessions: []string{}, Error: err.Error()}
		}
		statuses = append(statuses, st)
	}
	return map[string]any{
		"data_source": s.DataSource(),
		"caches":      statuses,
		"time":        time.Now().UTC().Format(time.RFC3339),
	}
}

func setMetadata(fc *geojson.FeatureCollection, md geojson.Properties) {
	md["generated_at"] = time.Now().UTC().Format(time.RFC3339)
	if fc.ExtraMembers == nil {
		fc.ExtraMembers = geojson.Properties{}
	}
	fc.ExtraMembers["metadata"] = md
}
