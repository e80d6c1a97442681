package httpjson_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"experts-geo/core/errs"
	"experts-geo/core/httpjson"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient() *httpjson.Client {
	return httpjson.New(httpjson.Config{
		Timeout:         time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		UserAgent:       "experts-geo-test",
	}, nil)
}

func TestGet_RetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "experts-geo-test", r.Header.Get("User-Agent"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"name":"Davis"}`))
	}))
	defer srv.Close()

	var out struct{ Name string }
	require.NoError(t, fastClient().Get(context.Background(), srv.URL, &out))
	assert.Equal(t, "Davis", out.Name)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := fastClient().Get(context.Background(), srv.URL, nil)
	var se *httpjson.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := fastClient().Get(context.Background(), srv.URL, nil)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestGet_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := fastClient().Get(context.Background(), srv.URL, nil)
	assert.Error(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestGet_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := fastClient().Get(context.Background(), srv.URL, &out)
	assert.True(t, errors.Is(err, errs.ErrValidationFailed))
}

func TestPost_SendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct{ OK bool }
	err := fastClient().Post(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer k"}, map[string]string{"q": "x"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}
