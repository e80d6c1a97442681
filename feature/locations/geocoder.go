package locations

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"experts-geo/core/httpjson"
	"experts-geo/core/metrics"
	"experts-geo/core/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CountryRank is the highest place_rank Nominatim assigns to countries.
const CountryRank = 4

// Place is a geocoded location.
type Place struct {
	Query       string  `json:"query"`
	OSMID       int64   `json:"osm_id"`
	OSMType     string  `json:"osm_type"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	PlaceRank   int     `json:"place_rank"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
}

// IsCountry reports whether the place is a country or larger.
func (p *Place) IsCountry() bool {
	return p.PlaceRank > 0 && p.PlaceRank <= CountryRank
}

// Geocoder resolves a location name. A nil place with a nil error means no match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Place, error)
}

// nominatimResult is one jsonv2 search hit. Coordinates arrive as strings.
type nominatimResult struct {
	OSMID       int64  `json:"osm_id"`
	OSMType     string `json:"osm_type"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	PlaceRank   int    `json:"place_rank"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// NominatimClient geocodes through the Nominatim search API with a fixed
// minimum delay between lookups.
type NominatimClient struct {
	cfg     GeocoderConfig
	http    *httpjson.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewNominatimClient creates a geocoder. m may be nil.
func NewNominatimClient(cfg GeocoderConfig, m *metrics.Metrics, logger *zap.Logger) *NominatimClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 20
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.DelayMillis > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.DelayMillis)*time.Millisecond), 1)
	}
	return &NominatimClient{
		cfg: cfg,
		http: httpjson.New(httpjson.Config{
			Timeout:         time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries:      uint64(cfg.MaxRetries),
			InitialInterval: time.Second,
			UserAgent:       cfg.UserAgent,
		}, logger),
		limiter: limiter,
		metrics: m,
		logger:  logger,
	}
}

// Geocode returns the best match for query.
func (c *NominatimClient) Geocode(ctx context.Context, query string) (*Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/search?" + params.Encode()

	var results []nominatimResult
	if err := c.http.Get(ctx, endpoint, &results); err != nil {
		c.metrics.ObserveGeocode("error")
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}
	if len(results) == 0 {
		c.metrics.ObserveGeocode("miss")
		c.logger.Debug("No geocoding result", zap.String("query", query))
		return nil, nil
	}
	c.metrics.ObserveGeocode("hit")

	r := results[0]
	lat, okLat := utils.ParseFloat(r.Lat)
	lon, okLon := utils.ParseFloat(r.Lon)
	if !okLat || !okLon {
		return nil, fmt.Errorf("geocode %q: invalid coordinates %q,%q", query, r.Lat, r.Lon)
	}
	return &Place{
		Query:       query,
		OSMID:       r.OSMID,
		OSMType:     r.OSMType,
		Lat:         lat,
		Lon:         lon,
		PlaceRank:   r.PlaceRank,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Country:     r.Address.Country,
		CountryCode: strings.ToLower(r.Address.CountryCode),
	}, nil
}
