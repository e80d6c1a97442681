package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"experts-geo/core/errs"
	"experts-geo/core/kv"
	"experts-geo/core/kv/mocks"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testItem is a minimal entity used to exercise the cache
type testItem struct {
	URL   string
	Title string
	Tags  []string
}

type testAdapter struct {
	formatErr error
}

func (testAdapter) Type() string { return "note" }

func (testAdapter) ItemID(item *testItem, index int) string {
	return DeriveID(item.URL, "", index)
}

func (a testAdapter) IsUnchanged(item *testItem, existing Record) bool {
	fields, err := a.Format(item, "")
	return err == nil && SameFields(fields, existing)
}

func (a testAdapter) Format(item *testItem, session string) (map[string]string, error) {
	if a.formatErr != nil {
		return nil, a.formatErr
	}
	tags, err := EncodeJSON(item.Tags)
	if err != nil {
		return nil, err
	}
	return map[string]string{"url": item.URL, "title": item.Title, "tags": tags}, nil
}

func (testAdapter) Parse(rec Record) (*testItem, error) {
	item := &testItem{URL: rec.String("url"), Title: rec.String("title")}
	if err := rec.Decode("tags", &item.Tags); err != nil {
		return nil, err
	}
	return item, nil
}

// sequentialSessions returns session ids s1, s2, ... in order
func sequentialSessions() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func newTestCache(t *testing.T) (*Cache[testItem], *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	c := New[testItem](testAdapter{}, kv.NewRedisConnector(kv.Config{Addr: srv.Addr()}), zap.NewNop(),
		WithSessionIDs(sequentialSessions()),
		WithClock(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
	return c, srv
}

func TestWrite_ClassifiesNewUpdatedUnchanged(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	first := []*testItem{
		{URL: "https://experts.ucdavis.edu/note/a", Title: "Alpha", Tags: []string{"x"}},
		{URL: "https://experts.ucdavis.edu/note/b", Title: "Beta"},
	}
	res, err := c.Write(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "s1", res.Session)
	assert.Equal(t, 2, res.New)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, res.Unchanged)

	assert.Equal(t, "Alpha", srv.HGet("note:a", "title"))
	assert.Equal(t, `["x"]`, srv.HGet("note:a", "tags"))
	assert.Equal(t, "[]", srv.HGet("note:b", "tags"))
	assert.Equal(t, "s1", srv.HGet("note:a", FieldSession))
	assert.Equal(t, "2025-03-01T12:00:00Z", srv.HGet("note:a", FieldCachedAt))

	second := []*testItem{
		{URL: "https://experts.ucdavis.edu/note/a", Title: "Alpha", Tags: []string{"x"}},
		{URL: "https://experts.ucdavis.edu/note/b", Title: "Beta (revised)"},
		{URL: "https://experts.ucdavis.edu/note/c", Title: "Gamma"},
	}
	res, err = c.Write(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "s2", res.Session)
	assert.Equal(t, 1, res.New)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, "s1", srv.HGet("note:a", FieldSession), "unchanged records keep their session")
	assert.Equal(t, "s2", srv.HGet("note:b", FieldSession))

	assert.Equal(t, "s2", srv.HGet("note:metadata", "last_session"))
	assert.Equal(t, "3", srv.HGet("note:metadata", "total_count"))
	assert.Equal(t, "1", srv.HGet("note:metadata", "unchanged_count"))
}

func TestWrite_IdempotentUnchangedDiff(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	items := []*testItem{
		{URL: "/note/1", Title: "One"},
		{URL: "/note/2", Title: "Two", Tags: []string{"a", "b"}},
		{URL: "/note/3", Title: "Three"},
	}

	first, err := c.Write(ctx, items)
	require.NoError(t, err)

	second, err := c.Write(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 0, second.New)
	assert.Equal(t, first.New+first.Updated, second.Unchanged)
}

func TestWrite_UpdateReplacesRecord(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	_, err := c.Write(ctx, []*testItem{{URL: "/note/1", Title: "One"}})
	require.NoError(t, err)
	srv.HSet("note:1", "legacy", "left over")

	res, err := c.Write(ctx, []*testItem{{URL: "/note/1", Title: "One v2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, srv.HGet("note:1", "legacy"), "fields missing from the new version are removed")

	again, err := c.Write(ctx, []*testItem{{URL: "/note/1", Title: "One v2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Unchanged)
	assert.Equal(t, 0, again.Updated)
}

func TestWrite_DropsNilItems(t *testing.T) {
	c, _ := newTestCache(t)

	res, err := c.Write(context.Background(), []*testItem{nil, {URL: "/note/1", Title: "One"}, nil})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, 1, res.New)
}

func TestWrite_DuplicateIDsInBatch(t *testing.T) {
	c, _ := newTestCache(t)

	res, err := c.Write(context.Background(), []*testItem{
		{URL: "/note/1", Title: "One"},
		{URL: "/note/1", Title: "One"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.New)
	assert.Equal(t, 1, res.Unchanged)
}

func TestWrite_FormatErrorAbortsBatch(t *testing.T) {
	srv := miniredis.RunT(t)
	c := New[testItem](testAdapter{formatErr: errors.New("bad item")}, kv.NewRedisConnector(kv.Config{Addr: srv.Addr()}), zap.NewNop())

	_, err := c.Write(context.Background(), []*testItem{{URL: "/note/1"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidationFailed))
	assert.False(t, srv.Exists("note:metadata"), "metadata is not refreshed on failure")
}

func TestWrite_StoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Connect fails", func(t *testing.T) {
		conn := new(mocks.Connector)
		conn.On("Connect", mock.Anything).Return(nil, errors.New("dial tcp: refused"))

		c := New[testItem](testAdapter{}, conn, zap.NewNop())
		_, err := c.Write(ctx, []*testItem{{URL: "/note/1"}})
		assert.True(t, errors.Is(err, errs.ErrStoreUnavailable))
	})

	t.Run("Second write fails after first landed", func(t *testing.T) {
		store := new(mocks.Store)
		store.On("Keys", mock.Anything, "note:*").Return([]string{}, nil)
		store.On("Replace", mock.Anything, "note:1", mock.Anything, mock.Anything).Return(nil)
		store.On("Replace", mock.Anything, "note:2", mock.Anything, mock.Anything).Return(errors.New("OOM"))
		store.On("Close").Return(nil)
		conn := new(mocks.Connector)
		conn.On("Connect", mock.Anything).Return(store, nil)

		c := New[testItem](testAdapter{}, conn, zap.NewNop())
		res, err := c.Write(ctx, []*testItem{{URL: "/note/1"}, {URL: "/note/2"}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrPartialFailure))
		assert.Equal(t, 1, res.New)
		store.AssertCalled(t, "Close")
		store.AssertNotCalled(t, "RPush", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReadRecent_SessionMonotonicity(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, err := c.Write(ctx, []*testItem{{URL: "/note/1", Title: "One"}, {URL: "/note/2", Title: "Two"}})
	require.NoError(t, err)
	second, err := c.Write(ctx, []*testItem{
		{URL: "/note/1", Title: "One"},
		{URL: "/note/2", Title: "Two v2"},
		{URL: "/note/3", Title: "Three", Tags: []string{"new"}},
	})
	require.NoError(t, err)

	recent, err := c.ReadRecent(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Session, recent.Session)
	assert.Len(t, recent.Items, second.New+second.Updated)

	titles := []string{}
	for _, item := range recent.Items {
		titles = append(titles, item.Title)
	}
	assert.ElementsMatch(t, []string{"Two v2", "Three"}, titles)

	old, err := c.ReadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, old.Items, 1)
	assert.Equal(t, "One", old.Items[0].Title)

	sessions, err := c.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, sessions)
}

func TestReadRecent_NoSession(t *testing.T) {
	c, _ := newTestCache(t)

	res, err := c.ReadRecent(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.Contains(t, err.Error(), "no recent cache session")
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestReadRecent_FallsBackToMetadata(t *testing.T) {
	c, srv := newTestCache(t)
	srv.HSet("note:metadata", "last_session", "legacy")
	srv.HSet("note:1", "url", "/note/1", "title", "Legacy", FieldSession, "legacy")
	srv.HSet("note:2", "url", "/note/2", "title", "Older", FieldSession, "older")

	res, err := c.ReadRecent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "legacy", res.Session)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Legacy", res.Items[0].Title)
}

func TestReadRecent_SkipsMalformedRecords(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()
	_, err := c.Write(ctx, []*testItem{{URL: "/note/1", Title: "One"}})
	require.NoError(t, err)

	srv.HSet("note:2", "title", "Broken", "tags", "[not json", FieldSession, "s1")

	res, err := c.ReadRecent(ctx)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "One", res.Items[0].Title)
}

func TestReadAll(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	_, err := c.Write(ctx, []*testItem{{URL: "/note/1", Title: "One"}, {URL: "/note/2", Title: "Two"}})
	require.NoError(t, err)

	all, err := c.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := c.ReadAll(ctx, "2", "missing")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "Two", some[0].Title)
}

func TestReadAll_FailsOpen(t *testing.T) {
	store := new(mocks.Store)
	store.On("Keys", mock.Anything, "note:*").Return(nil, errors.New("READONLY"))
	store.On("Close").Return(nil)
	conn := new(mocks.Connector)
	conn.On("Connect", mock.Anything).Return(store, nil)

	c := New[testItem](testAdapter{}, conn, zap.NewNop())
	items, err := c.ReadAll(context.Background())
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.True(t, errors.Is(err, errs.ErrStoreUnavailable))
}

func TestMetadata(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, err := c.Metadata(ctx)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = c.Write(ctx, []*testItem{{URL: "/note/1"}})
	require.NoError(t, err)

	meta, err := c.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", meta.LastSession)
	assert.Equal(t, 1, meta.NewCount)
	assert.Equal(t, 1, meta.TotalCount)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), meta.Timestamp)
}
