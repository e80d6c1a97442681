package locations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"experts-geo/core/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimClient_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "jsonv2", q.Get("format"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "1", q.Get("addressdetails"))
		assert.Equal(t, "geo-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		if q.Get("q") == "Atlantis" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"osm_id":112149,"osm_type":"relation","lat":"38.5449","lon":"-121.7405","place_rank":16,
			"name":"Davis","display_name":"Davis, Yolo County, California, United States",
			"address":{"city":"Davis","state":"California","country":"United States","country_code":"US"}}]`))
	}))
	defer srv.Close()

	m := metrics.New()
	client := NewNominatimClient(GeocoderConfig{BaseURL: srv.URL, UserAgent: "geo-test"}, m, nil)

	place, err := client.Geocode(context.Background(), "Davis, California")
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, int64(112149), place.OSMID)
	assert.Equal(t, "Davis, California", place.Query)
	assert.InDelta(t, 38.5449, place.Lat, 1e-6)
	assert.InDelta(t, -121.7405, place.Lon, 1e-6)
	assert.Equal(t, 16, place.PlaceRank)
	assert.Equal(t, "us", place.CountryCode)
	assert.False(t, place.IsCountry())

	place, err = client.Geocode(context.Background(), "Atlantis")
	assert.NoError(t, err)
	assert.Nil(t, place)

	assert.Equal(t, 1.0, counterValue(t, m.Geocodes, "hit"))
	assert.Equal(t, 1.0, counterValue(t, m.Geocodes, "miss"))
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, vec.WithLabelValues(labels...).Write(&pb))
	return pb.GetCounter().GetValue()
}

func TestNominatimClient_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewNominatimClient(GeocoderConfig{BaseURL: srv.URL}, nil, nil)
	_, err := client.Geocode(context.Background(), "Davis")

	assert.Error(t, err)
}
