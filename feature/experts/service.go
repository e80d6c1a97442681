package experts

import (
	"context"
	"fmt"
	"sort"

	"experts-geo/core/cache"
	"experts-geo/core/errs"
	"experts-geo/core/kv"
	"experts-geo/core/metrics"

	"go.uber.org/zap"
)

// Fetcher loads expert records from the upstream source.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]*Expert, error)
}

// SyncResult reports one cache write per entity type.
type SyncResult struct {
	Experts cache.WriteResult `json:"experts"`
	Works   cache.WriteResult `json:"works"`
	Grants  cache.WriteResult `json:"grants"`
}

// Service fetches experts and keeps the entity caches current.
type Service struct {
	fetcher Fetcher
	experts *cache.Cache[Expert]
	works   *cache.Cache[Work]
	grants  *cache.Cache[Grant]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates the experts service. m may be nil.
func NewService(fetcher Fetcher, conn kv.Connector, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		experts: cache.New[Expert](ExpertAdapter{}, conn, logger),
		works:   cache.New[Work](WorkAdapter{}, conn, logger),
		grants:  cache.New[Grant](GrantAdapter{}, conn, logger),
		metrics: m,
		logger:  logger,
	}
}

// Experts returns the expert cache.
func (s *Service) Experts() *cache.Cache[Expert] { return s.experts }

// Works returns the work cache.
func (s *Service) Works() *cache.Cache[Work] { return s.works }

// Grants returns the grant cache.
func (s *Service) Grants() *cache.Cache[Grant] { return s.grants }

// Sync fetches every expert and writes experts, works and grants to the cache.
// It returns the fetched works and grants for the location pipeline.
func (s *Service) Sync(ctx context.Context) (SyncResult, []*Work, []*Grant, error) {
	var res SyncResult

	list, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		return res, nil, nil, fmt.Errorf("fetch experts: %w", err)
	}
	works, grants := Collect(list)

	res.Experts, err = s.experts.Write(ctx, list)
	s.metrics.ObserveWrite(TypeExpert, res.Experts, err)
	if err != nil {
		return res, nil, nil, err
	}
	res.Works, err = s.works.Write(ctx, works)
	s.metrics.ObserveWrite(TypeWork, res.Works, err)
	if err != nil {
		return res, nil, nil, err
	}
	res.Grants, err = s.grants.Write(ctx, grants)
	s.metrics.ObserveWrite(TypeGrant, res.Grants, err)
	if err != nil {
		return res, nil, nil, err
	}

	s.logger.Info("Experts synced",
		zap.Int("experts", len(list)),
		zap.Int("works", len(works)),
		zap.Int("grants", len(grants)))
	return res, works, grants, nil
}

// Cached rebuilds works and grants from every cached expert instead of
// calling upstream. Records left unchanged by the last sync keep an older
// session, so the whole expert set is read rather than the latest session.
func (s *Service) Cached(ctx context.Context) ([]*Work, []*Grant, error) {
	list, err := s.experts.ReadAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read cached experts: %w", err)
	}
	if len(list) == 0 {
		return nil, nil, errs.E(errs.KindNotFound, "experts.cached", fmt.Errorf("no cached experts"))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key() < list[j].Key() })
	works, grants := Collect(list)
	return works, grants, nil
}
