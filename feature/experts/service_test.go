package experts

import (
	"context"
	"errors"
	"testing"

	"experts-geo/core/errs"
	"experts-geo/core/kv"
	"experts-geo/core/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchAll(ctx context.Context) ([]*Expert, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]*Expert); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func sampleExperts() []*Expert {
	return []*Expert{
		{URL: "expert/alice", FullName: "Alice Smith", Works: []*Work{
			{URL: "work/w1", Title: "Drought in Kenya", Issued: "2021"},
			{URL: "work/w2", Title: "Rivers of Davis, California"},
		}},
		{URL: "expert/bob", FullName: "Bob Lee", Grants: []*Grant{
			{URL: "grant/g1", Title: "Wildfire response in Greenland", Funder: "NSF"},
		}},
	}
}

func newTestService(t *testing.T, f Fetcher) (*Service, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	conn := kv.NewRedisConnector(kv.Config{Addr: srv.Addr()})
	return NewService(f, conn, metrics.New(), zap.NewNop()), srv
}

func TestService_Sync(t *testing.T) {
	f := new(mockFetcher)
	f.On("FetchAll", mock.Anything).Return(sampleExperts(), nil)
	svc, srv := newTestService(t, f)
	ctx := context.Background()

	res, works, grants, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Experts.New)
	assert.Equal(t, 2, res.Works.New)
	assert.Equal(t, 1, res.Grants.New)
	assert.Len(t, works, 2)
	assert.Len(t, grants, 1)

	assert.Equal(t, "Alice Smith", srv.HGet("expert:alice", "name"))
	assert.Equal(t, "Drought in Kenya", srv.HGet("work:w1", "title"))

	res, _, _, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Experts.Updated)
	assert.Equal(t, 2, res.Experts.Unchanged)
	assert.Equal(t, 2, res.Works.Unchanged)

	cachedWorks, cachedGrants, err := svc.Cached(ctx)
	require.NoError(t, err)
	assert.Len(t, cachedWorks, 2, "unchanged records are still part of the cached set")
	assert.Len(t, cachedGrants, 1)

	all, err := svc.Experts().ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestService_Sync_RoundTripsThroughCache(t *testing.T) {
	f := new(mockFetcher)
	f.On("FetchAll", mock.Anything).Return(sampleExperts(), nil)
	svc, _ := newTestService(t, f)
	ctx := context.Background()

	_, _, _, err := svc.Sync(ctx)
	require.NoError(t, err)

	works, grants, err := svc.Cached(ctx)
	require.NoError(t, err)
	require.Len(t, works, 2)
	require.Len(t, grants, 1)
	assert.Equal(t, "NSF", grants[0].Funder)
	assert.Equal(t, "Bob Lee", grants[0].RelatedExperts[0].Name)

	experts, err := svc.Experts().ReadAll(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, experts, 1)
	require.Len(t, experts[0].Works, 2)
	assert.Equal(t, "Rivers of Davis, California", experts[0].Works[1].Title)
}

func TestService_Cached_Empty(t *testing.T) {
	svc, _ := newTestService(t, new(mockFetcher))

	works, grants, err := svc.Cached(context.Background())
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Nil(t, works)
	assert.Nil(t, grants)
}

func TestService_Sync_FetchError(t *testing.T) {
	f := new(mockFetcher)
	f.On("FetchAll", mock.Anything).Return(nil, errors.New("upstream down"))
	svc, _ := newTestService(t, f)

	_, _, _, err := svc.Sync(context.Background())
	assert.ErrorContains(t, err, "upstream down")
}

func TestService_Sync_StoreDown(t *testing.T) {
	f := new(mockFetcher)
	f.On("FetchAll", mock.Anything).Return(sampleExperts(), nil)
	svc, srv := newTestService(t, f)
	srv.Close()

	_, _, _, err := svc.Sync(context.Background())
	assert.True(t, errors.Is(err, errs.ErrStoreUnavailable))
}
