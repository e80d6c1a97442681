package experts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"experts-geo/core/errs"
	"experts-geo/core/httpjson"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Page is one page of the expert listing.
type Page struct {
	Hits  []*Expert `json:"hits"`
	Total int       `json:"total"`
}

// Client talks to the upstream Experts API.
type Client struct {
	cfg    Config
	http   *httpjson.Client
	logger *zap.Logger
}

// NewClient creates an upstream API client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	headers := map[string]string{}
	if cfg.ApiKey != "" {
		headers["Authorization"] = "Bearer " + cfg.ApiKey
	}
	return &Client{
		cfg: cfg,
		http: httpjson.New(httpjson.Config{
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries: uint64(cfg.MaxRetries),
			UserAgent:  "experts-geo",
			Headers:    headers,
		}, logger),
		logger: logger,
	}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// ListExperts fetches one page of the expert listing. Pages start at 1.
func (c *Client) ListExperts(ctx context.Context, page int) (*Page, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("size", fmt.Sprint(c.cfg.PageSize))

	var p Page
	if err := c.http.Get(ctx, c.endpoint("expert")+"?"+q.Encode(), &p); err != nil {
		return nil, fmt.Errorf("list experts page %d: %w", page, err)
	}
	return &p, nil
}

// GetExpert fetches the full record of one expert, including works and grants.
func (c *Client) GetExpert(ctx context.Context, id string) (*Expert, error) {
	var e Expert
	if err := c.http.Get(ctx, c.endpoint("expert/"+url.PathEscape(id)), &e); err != nil {
		return nil, fmt.Errorf("get expert %s: %w", id, err)
	}
	return &e, nil
}

// FetchAll pages through the listing and then loads every expert record with
// bounded concurrency. An expert whose detail fetch fails keeps its listing
// summary and is logged; a cancelled context aborts the whole call.
func (c *Client) FetchAll(ctx context.Context) ([]*Expert, error) {
	var hits []*Expert
	for page := 1; ; page++ {
		if c.cfg.MaxPages > 0 && page > c.cfg.MaxPages {
			break
		}
		p, err := c.ListExperts(ctx, page)
		if err != nil {
			return nil, err
		}
		hits = append(hits, p.Hits...)
		if len(p.Hits) == 0 || (p.Total > 0 && len(hits) >= p.Total) {
			break
		}
	}
	c.logger.Info("Expert listing fetched", zap.Int("experts", len(hits)))

	out := make([]*Expert, len(hits))
	var failed int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, hit := range hits {
		if hit == nil {
			continue
		}
		i, hit := i, hit
		g.Go(func() error {
			full, err := c.GetExpert(gctx, hit.Key())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("Expert detail fetch failed, keeping summary",
					zap.String("expert", hit.Key()), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				out[i] = hit
				return nil
			}
			if full.URL == "" {
				full.URL = hit.URL
			}
			out[i] = full
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, errs.E(errs.KindPartialFailure, "experts.fetch_all", err)
	}

	list := out[:0]
	for _, e := range out {
		if e != nil {
			list = append(list, e)
		}
	}
	c.logger.Info("Expert records fetched", zap.Int("experts", len(list)), zap.Int("failed", failed))
	return list, nil
}
