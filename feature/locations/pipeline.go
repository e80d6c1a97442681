package locations

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"experts-geo/core/metrics"
	"experts-geo/core/storage"
	"experts-geo/feature/experts"
	"experts-geo/feature/geo/index"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Artifact object names under PipelineConfig.ArtifactPrefix.
const (
	WorksArtifact  = "works.geojson"
	GrantsArtifact = "grants.geojson"
	StatsArtifact  = "stats.json"
)

// Stats summarises one pipeline run.
type Stats struct {
	Experts           int           `json:"experts"`
	Works             int           `json:"works"`
	Grants            int           `json:"grants"`
	Extracted         int           `json:"extracted"`
	FailedExtractions int           `json:"failed_extractions"`
	Locations         int           `json:"locations"`
	FailedGeocodes    []string      `json:"failed_geocodes"`
	Duration          time.Duration `json:"duration"`
}

// Output is the result of a pipeline run.
type Output struct {
	Works  *geojson.FeatureCollection
	Grants *geojson.FeatureCollection
	Stats  Stats
}

// item is one work or grant to locate.
type item struct {
	kind  index.Kind
	entry index.Entry
}

func (it item) text() string {
	return it.entry.Title
}

// Pipeline extracts, geocodes and groups the locations of works and grants.
type Pipeline struct {
	cfg        PipelineConfig
	extractor  Extractor
	geocoder   Geocoder
	normalizer *Normalizer
	store      storage.Client
	bucket     string
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewPipeline creates a pipeline. store may be nil, in which case nothing is
// uploaded; m may be nil.
func NewPipeline(cfg PipelineConfig, extractor Extractor, geocoder Geocoder, normalizer *Normalizer,
	store storage.Client, bucket string, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		cfg:        cfg,
		extractor:  extractor,
		geocoder:   geocoder,
		normalizer: normalizer,
		store:      store,
		bucket:     bucket,
		metrics:    m,
		logger:     logger,
	}
}

// Texts returns the extraction input of every item, in Items order.
func Texts(works []*experts.Work, grants []*experts.Grant) []string {
	all := collectItems(works, grants)
	out := make([]string, len(all))
	for i, it := range all {
		out[i] = it.text()
	}
	return out
}

func collectItems(works []*experts.Work, grants []*experts.Grant) []item {
	var out []item
	for _, w := range works {
		if w == nil {
			continue
		}
		out = append(out, item{kind: index.KindWork, entry: index.Entry{
			ID:             w.Key(),
			Title:          w.Title,
			Abstract:       w.Abstract,
			Issued:         w.Issued,
			RelatedExperts: refs(w.RelatedExperts),
		}})
	}
	for _, g := range grants {
		if g == nil {
			continue
		}
		out = append(out, item{kind: index.KindGrant, entry: index.Entry{
			ID:             g.Key(),
			Title:          g.Title,
			Funder:         g.Funder,
			StartDate:      g.StartDate,
			EndDate:        g.EndDate,
			RelatedExperts: refs(g.RelatedExperts),
		}})
	}
	return out
}

func refs(in []experts.Ref) []index.ExpertRef {
	out := make([]index.ExpertRef, 0, len(in))
	for _, r := range in {
		out = append(out, index.ExpertRef{ID: r.ID, Name: r.Name, URL: r.URL})
	}
	return out
}

// Run locates every work and grant and returns the two location collections.
// Per-item extraction and geocoding failures are counted and skipped.
// Artifacts are uploaded when a storage client is configured.
func (p *Pipeline) Run(ctx context.Context, works []*experts.Work, grants []*experts.Grant) (out *Output, err error) {
	start := time.Now()
	defer func() { p.metrics.ObserveRun(err) }()

	items := collectItems(works, grants)
	stats := Stats{Works: len(works), Grants: len(grants), Experts: countExperts(items)}
	p.logger.Info("Starting location pipeline",
		zap.Int("works", stats.Works),
		zap.Int("grants", stats.Grants),
		zap.Int("concurrency", p.cfg.Concurrency))

	extracted, failed, err := p.extract(ctx, items)
	if err != nil {
		return nil, err
	}
	stats.FailedExtractions = failed

	var queries []string
	seen := map[string]bool{}
	for _, list := range extracted {
		for _, e := range list {
			stats.Extracted++
			q := p.normalizer.Resolve(e.Location)
			if q != "" && !seen[q] {
				seen[q] = true
				queries = append(queries, q)
			}
		}
	}

	places, missing, err := p.geocode(ctx, queries)
	if err != nil {
		return nil, err
	}
	stats.FailedGeocodes = missing

	b := newCollectionBuilder()
	for i, list := range extracted {
		for _, e := range list {
			place := places[p.normalizer.Resolve(e.Location)]
			if place == nil {
				continue
			}
			entry := items[i].entry
			if e.HasConfidence {
				entry.Confidence = e.Confidence
			}
			b.add(place, items[i].kind, entry)
		}
	}
	out = &Output{Stats: stats}
	out.Works, out.Grants = b.build()
	out.Stats.Locations = len(b.order)
	out.Stats.Duration = time.Since(start)

	if p.store != nil {
		if err := p.Publish(ctx, out); err != nil {
			return out, err
		}
	}

	p.logger.Info("Location pipeline finished",
		zap.Int("experts", out.Stats.Experts),
		zap.Int("extracted", out.Stats.Extracted),
		zap.Int("failed_extractions", out.Stats.FailedExtractions),
		zap.Int("locations", out.Stats.Locations),
		zap.Int("failed_geocodes", len(out.Stats.FailedGeocodes)),
		zap.Duration("duration", out.Stats.Duration))
	return out, nil
}

func (p *Pipeline) extract(ctx context.Context, items []item) ([][]Extraction, int, error) {
	results := make([][]Extraction, len(items))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i := range items {
		g.Go(func() error {
			list, err := p.extractor.Extract(gctx, items[i].text())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				p.logger.Warn("Failed to extract locations",
					zap.String("kind", string(items[i].kind)),
					zap.String("id", items[i].entry.ID),
					zap.Error(err))
				return nil
			}
			results[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("extract locations: %w", err)
	}

	n := int(failed.Load())
	p.metrics.AddItems("extract", "ok", len(items)-n)
	p.metrics.AddItems("extract", "failed", n)
	return results, n, nil
}

func (p *Pipeline) geocode(ctx context.Context, queries []string) (map[string]*Place, []string, error) {
	places := make(map[string]*Place, len(queries))
	var missing []string
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, q := range queries {
		g.Go(func() error {
			place, err := p.geocoder.Geocode(gctx, q)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil || place == nil {
				if err != nil {
					p.logger.Warn("Failed to geocode", zap.String("location", q), zap.Error(err))
				}
				missing = append(missing, q)
				return nil
			}
			places[q] = place
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("geocode locations: %w", err)
	}

	sort.Strings(missing)
	p.metrics.AddItems("geocode", "ok", len(places))
	p.metrics.AddItems("geocode", "failed", len(missing))
	return places, missing, nil
}

func countExperts(items []item) int {
	seen := map[string]bool{}
	for _, it := range items {
		for _, r := range it.entry.RelatedExperts {
			key := r.ID
			if key == "" {
				key = r.Name
			}
			seen[key] = true
		}
	}
	return len(seen)
}

// Publish uploads the collections and run statistics.
func (p *Pipeline) Publish(ctx context.Context, out *Output) error {
	if err := storage.EnsureBucket(ctx, p.store, p.bucket); err != nil {
		return err
	}
	uploads := []struct {
		name string
		kind string
		v    any
	}{
		{WorksArtifact, "application/geo+json", out.Works},
		{GrantsArtifact, "application/geo+json", out.Grants},
		{StatsArtifact, "application/json", out.Stats},
	}
	for _, u := range uploads {
		data, err := json.Marshal(u.v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", u.name, err)
		}
		if err := storage.PutArtifact(ctx, p.store, p.bucket, p.cfg.ArtifactPrefix+u.name, u.kind, data); err != nil {
			return err
		}
	}
	p.logger.Info("Published location artifacts",
		zap.String("bucket", p.bucket),
		zap.String("prefix", p.cfg.ArtifactPrefix))
	return nil
}

// WriteBatch uploads an offline batch request file for the given records and
// returns its object name.
func (p *Pipeline) WriteBatch(ctx context.Context, model string, works []*experts.Work, grants []*experts.Grant) (string, error) {
	if p.store == nil {
		return "", fmt.Errorf("no object storage configured")
	}
	data, err := BuildBatch(model, Texts(works, grants))
	if err != nil {
		return "", err
	}
	if err := storage.EnsureBucket(ctx, p.store, p.bucket); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%srequests_%d.jsonl", p.cfg.BatchPrefix, time.Now().Unix())
	if err := storage.PutArtifact(ctx, p.store, p.bucket, name, "application/jsonl", data); err != nil {
		return "", err
	}
	return name, nil
}
