package locations

import (
	"context"
	"errors"
	"testing"

	"experts-geo/core/storage/mocks"
	"experts-geo/feature/experts"
	"experts-geo/feature/geo/index"

	"github.com/minio/minio-go/v7"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	answers map[string][]Extraction
	fail    map[string]bool
}

func (f *fakeExtractor) Extract(_ context.Context, text string) ([]Extraction, error) {
	if f.fail[text] {
		return nil, errors.New("model unavailable")
	}
	return f.answers[text], nil
}

type fakeGeocoder struct {
	places map[string]*Place
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (*Place, error) {
	p, ok := f.places[query]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Query = query
	return &cp, nil
}

func pipelineFixture() ([]*experts.Work, []*experts.Grant, *fakeExtractor, *fakeGeocoder) {
	alice := experts.Ref{ID: "alice", Name: "Alice Smith"}
	bob := experts.Ref{ID: "bob", Name: "Bob Jones"}
	carol := experts.Ref{ID: "carol", Name: "Carol White"}

	works := []*experts.Work{
		{ID: "w1", Title: "Drought in Davis", RelatedExperts: []experts.Ref{alice}},
		{ID: "w2", Title: "Water law in Davis and the US", RelatedExperts: []experts.Ref{alice, bob}},
		{ID: "w3", Title: "Protein folding", RelatedExperts: []experts.Ref{bob}},
		{ID: "w4", Title: "Broken", RelatedExperts: []experts.Ref{bob}},
		{ID: "w5", Title: "Myths of Atlantis", RelatedExperts: []experts.Ref{bob}},
	}
	grants := []*experts.Grant{
		{ID: "g1", Title: "Maize in Kenya", Funder: "USAID", RelatedExperts: []experts.Ref{carol}},
	}

	ex := &fakeExtractor{
		answers: map[string][]Extraction{
			"Drought in Davis":              {{Location: "Davis, CA", Confidence: 90, HasConfidence: true}},
			"Water law in Davis and the US": {{Location: "Davis, California", Confidence: 80, HasConfidence: true}, {Location: "the United States", Confidence: 95, HasConfidence: true}},
			"Protein folding":               nil,
			"Myths of Atlantis":             {{Location: "Atlantis", Confidence: 50, HasConfidence: true}},
			"Maize in Kenya":                {{Location: "Kenya"}},
		},
		fail: map[string]bool{"Broken": true},
	}

	davis := &Place{OSMID: 112149, OSMType: "relation", Lat: 38.54, Lon: -121.74, PlaceRank: 16, DisplayName: "Davis, California, United States", Country: "United States", CountryCode: "us"}
	geo := &fakeGeocoder{places: map[string]*Place{
		"Davis, CA":         davis,
		"Davis, California": davis,
		"USA":               {OSMID: 148838, OSMType: "relation", Lat: 39.78, Lon: -100.44, PlaceRank: 4, DisplayName: "United States", Country: "United States", CountryCode: "us"},
		"Kenya":             {OSMID: 192798, OSMType: "relation", Lat: 1.44, Lon: 38.43, PlaceRank: 4, DisplayName: "Kenya", Country: "Kenya", CountryCode: "ke"},
	}}
	return works, grants, ex, geo
}

func TestPipeline_Run(t *testing.T) {
	works, grants, ex, geo := pipelineFixture()
	p := NewPipeline(PipelineConfig{Concurrency: 3}, ex, geo, nil, nil, "", nil, nil)

	out, err := p.Run(context.Background(), works, grants)
	require.NoError(t, err)

	assert.Equal(t, 3, out.Stats.Experts)
	assert.Equal(t, 5, out.Stats.Works)
	assert.Equal(t, 1, out.Stats.Grants)
	assert.Equal(t, 5, out.Stats.Extracted)
	assert.Equal(t, 1, out.Stats.FailedExtractions)
	assert.Equal(t, 3, out.Stats.Locations)
	assert.Equal(t, []string{"Atlantis"}, out.Stats.FailedGeocodes)

	require.Len(t, out.Works.Features, 2)
	davis := out.Works.Features[0]
	assert.Equal(t, "Davis, CA", davis.Properties[index.PropName])
	assert.Equal(t, "USA", davis.Properties[index.PropCountry])
	assert.Equal(t, 16, davis.Properties[index.PropPlaceRank])
	assert.Equal(t, orb.Point{-121.74, 38.54}, davis.Geometry)

	entries, err := index.Entries(davis.Properties, index.PropWorks)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "w1", entries[0].ID)
	assert.Equal(t, 90.0, entries[0].Confidence)
	assert.Equal(t, "w2", entries[1].ID)
	assert.Len(t, entries[1].RelatedExperts, 2)

	usa := out.Works.Features[1]
	assert.Equal(t, "USA", usa.Properties[index.PropName])
	assert.Equal(t, "USA", usa.Properties[index.PropCountry])

	require.Len(t, out.Grants.Features, 1)
	kenya := out.Grants.Features[0]
	assert.Equal(t, "Kenya", kenya.Properties[index.PropName])
	grantEntries, err := index.Entries(kenya.Properties, index.PropGrants)
	require.NoError(t, err)
	require.Len(t, grantEntries, 1)
	assert.Nil(t, grantEntries[0].Confidence)
	assert.Equal(t, "USAID", grantEntries[0].Funder)
}

func TestPipeline_OutputFeedsIndex(t *testing.T) {
	works, grants, ex, geo := pipelineFixture()
	out, err := NewPipeline(PipelineConfig{}, ex, geo, nil, nil, "", nil, nil).Run(context.Background(), works, grants)
	require.NoError(t, err)

	res := index.NewBuilder(nil).BuildFromCollections(out.Works, out.Grants, "")

	set := res.Works
	require.Contains(t, set.Locations, "USA")
	assert.ElementsMatch(t, []string{"w2", "w1"}, set.Locations["USA"].WorkIDs)
	assert.Contains(t, set.Experts, "alice")
	assert.Contains(t, res.Grants.Locations, "Kenya")
}

func TestPipeline_ContextCancelled(t *testing.T) {
	works, grants, ex, geo := pipelineFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cancelling := &ctxExtractor{inner: ex}
	_, err := NewPipeline(PipelineConfig{}, cancelling, geo, nil, nil, "", nil, nil).Run(ctx, works, grants)

	assert.ErrorIs(t, err, context.Canceled)
}

type ctxExtractor struct{ inner Extractor }

func (c *ctxExtractor) Extract(ctx context.Context, text string) ([]Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.inner.Extract(ctx, text)
}

func TestPipeline_Publish(t *testing.T) {
	works, grants, ex, geo := pipelineFixture()
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "geo").Return(true, nil)
	for _, name := range []string{"geojson/works.geojson", "geojson/grants.geojson", "geojson/stats.json"} {
		client.On("PutObject", mock.Anything, "geo", name, mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, nil).Once()
	}

	p := NewPipeline(PipelineConfig{ArtifactPrefix: "geojson/"}, ex, geo, nil, client, "geo", nil, nil)
	_, err := p.Run(context.Background(), works, grants)

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestPipeline_WriteBatch(t *testing.T) {
	works, grants, ex, geo := pipelineFixture()
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "geo").Return(true, nil)
	client.On("PutObject", mock.Anything, "geo", mock.MatchedBy(func(name string) bool {
		return len(name) > len("batches/") && name[:len("batches/")] == "batches/"
	}), mock.Anything, mock.Anything, mock.MatchedBy(func(o minio.PutObjectOptions) bool {
		return o.ContentType == "application/jsonl"
	})).Return(minio.UploadInfo{}, nil)

	p := NewPipeline(PipelineConfig{BatchPrefix: "batches/"}, ex, geo, nil, client, "geo", nil, nil)
	name, err := p.WriteBatch(context.Background(), "llama", works, grants)

	require.NoError(t, err)
	assert.Contains(t, name, "batches/requests_")
	client.AssertExpectations(t)

	_, err = NewPipeline(PipelineConfig{}, ex, geo, nil, nil, "", nil, nil).WriteBatch(context.Background(), "llama", works, grants)
	assert.Error(t, err)
}

func TestCollectionBuilder_KeepsHighestConfidence(t *testing.T) {
	b := newCollectionBuilder()
	place := &Place{Query: "Lima", OSMID: 1, OSMType: "node", PlaceRank: 16, Country: "Peru", CountryCode: "pe"}

	b.add(place, index.KindWork, index.Entry{ID: "w", Title: "T", Confidence: 40.0})
	b.add(place, index.KindWork, index.Entry{ID: "w", Title: "T", Confidence: 70.0})
	b.add(place, index.KindWork, index.Entry{ID: "w", Title: "T", Confidence: 55.0})

	works, grants := b.build()
	require.Len(t, works.Features, 1)
	assert.Empty(t, grants.Features)

	f := works.Features[0]
	assert.Equal(t, "Peru", f.Properties[index.PropCountry])
	entries := f.Properties[index.PropWorks].([]index.Entry)
	require.Len(t, entries, 1)
	assert.Equal(t, 70.0, entries[0].Confidence)
}
