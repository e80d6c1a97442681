package cmd

import (
	"context"
	"fmt"
	"os"

	"experts-geo/core/config"
	"experts-geo/core/database"
	"experts-geo/core/geostore"
	"experts-geo/core/kv"
	"experts-geo/core/metrics"
	"experts-geo/core/storage"
	"experts-geo/feature/experts"
	"experts-geo/feature/geo"
	"experts-geo/feature/geo/index"
	"experts-geo/feature/locations"

	"go.uber.org/zap"
)

// app bundles the long-lived dependencies shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	conn    kv.Connector
	objects storage.Client
	geo     *geostore.Store
	experts *experts.Service
	service *geo.Service
}

// newApp wires storage, caches and services. The database is optional: without
// it the map endpoints fall back to the Redis feature cache.
func newApp(cfg *config.Config, logg *zap.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logg,
		metrics: metrics.New(),
		conn:    kv.NewRedisConnector(cfg.Redis),
	}

	objects, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	a.objects = objects

	var store geo.FeatureStore
	if db, err := database.Connect(cfg.Database); err != nil {
		logg.Warn("Optional database connection failed", zap.Error(err))
	} else {
		a.geo = geostore.New(db, a.conn, logg)
		store = a.geo
		logg.Info("Connected to PostGIS database")
	}

	builder := index.NewBuilder(logg, index.WithMinConfidence(cfg.ETL.MinConfidence))
	a.experts = experts.NewService(experts.NewClient(cfg.Experts, logg), a.conn, a.metrics, logg)
	a.service = geo.NewService(store, a.conn, cfg.Server.DataSource, builder, a.metrics, logg)
	a.service.RegisterCache(a.experts.Experts())
	a.service.RegisterCache(a.experts.Works())
	a.service.RegisterCache(a.experts.Grants())
	return a, nil
}

// etlOptions selects the inputs of one pipeline run.
type etlOptions struct {
	// FromCache rebuilds works and grants from the cached experts instead of upstream.
	FromCache bool
	// Merge upserts the located features instead of replacing the PostGIS tables.
	Merge bool
	// BatchResults is a local JSONL file of offline batch answers used instead of the LLM.
	BatchResults string
	// WriteBatch uploads a batch request file and stops.
	WriteBatch bool
}

// etlReport summarises one pipeline run.
type etlReport struct {
	Sync    *experts.SyncResult `json:"sync,omitempty"`
	Stats   *locations.Stats    `json:"stats,omitempty"`
	Publish *geo.PublishResult  `json:"publish,omitempty"`
	Batch   string              `json:"batch,omitempty"`
}

func (a *app) records(ctx context.Context, opts etlOptions) ([]*experts.Work, []*experts.Grant, *experts.SyncResult, error) {
	if opts.FromCache {
		works, grants, err := a.experts.Cached(ctx)
		return works, grants, nil, err
	}
	res, works, grants, err := a.experts.Sync(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return works, grants, &res, nil
}

func (a *app) extractor(opts etlOptions, works []*experts.Work, grants []*experts.Grant) (locations.Extractor, error) {
	if opts.BatchResults == "" {
		return locations.NewLLMClient(a.cfg.LLM, a.logger), nil
	}
	f, err := os.Open(opts.BatchResults)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch results: %w", err)
	}
	defer f.Close()

	results, err := locations.ParseBatchResults(f)
	if err != nil {
		return nil, err
	}
	return locations.NewBatchExtractor(locations.Texts(works, grants), results), nil
}

func (a *app) pipeline(extractor locations.Extractor) (*locations.Pipeline, error) {
	var aliases map[string]string
	if a.cfg.ETL.AliasesFile != "" {
		loaded, err := locations.LoadAliases(a.cfg.ETL.AliasesFile)
		if err != nil {
			return nil, err
		}
		aliases = loaded
	}
	return locations.NewPipeline(
		a.cfg.ETL,
		extractor,
		locations.NewNominatimClient(a.cfg.Geocoder, a.metrics, a.logger),
		locations.NewNormalizer(aliases),
		a.objects,
		a.cfg.Storage.Bucket,
		a.metrics,
		a.logger,
	), nil
}

// publishOptions merges instead of replacing when asked to, or when paging
// was capped and the run only saw part of the experts.
func (a *app) publishOptions(opts etlOptions) []geo.PublishOption {
	if opts.Merge || a.cfg.Experts.MaxPages > 0 {
		return []geo.PublishOption{geo.Merge()}
	}
	return nil
}

// runETL syncs experts, locates their works and grants and publishes the
// resulting collections to PostGIS and the feature cache.
func (a *app) runETL(ctx context.Context, opts etlOptions) (*etlReport, error) {
	works, grants, synced, err := a.records(ctx, opts)
	if err != nil {
		return nil, err
	}
	report := &etlReport{Sync: synced}

	extractor, err := a.extractor(opts, works, grants)
	if err != nil {
		return report, err
	}
	p, err := a.pipeline(extractor)
	if err != nil {
		return report, err
	}

	if opts.WriteBatch {
		name, err := p.WriteBatch(ctx, a.cfg.LLM.Model, works, grants)
		if err != nil {
			return report, err
		}
		report.Batch = name
		a.logger.Info("Batch request file written", zap.String("object", name))
		return report, nil
	}

	out, err := p.Run(ctx, works, grants)
	if out != nil {
		report.Stats = &out.Stats
	}
	if err != nil {
		return report, err
	}

	published, err := a.service.Publish(ctx, out.Works, out.Grants, a.publishOptions(opts)...)
	report.Publish = &published
	if err != nil {
		return report, fmt.Errorf("failed to publish locations: %w", err)
	}
	return report, nil
}
