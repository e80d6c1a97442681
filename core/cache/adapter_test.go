package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveID(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		explicit string
		index    int
		want     string
	}{
		{"URL suffix", "https://experts.ucdavis.edu/expert/abc123", "", 0, "abc123"},
		{"URL trailing slash", "https://experts.ucdavis.edu/expert/abc123/", "", 0, "abc123"},
		{"Relative path", "expert/xyz", "", 0, "xyz"},
		{"Explicit ID", "", "w1", 3, "w1"},
		{"Explicit ID with path", "", "ark:/87287/d7mh2m/12345", 3, "12345"},
		{"Positional fallback", "", "  ", 7, "item_7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveID(tt.url, tt.explicit, tt.index))
		})
	}
}

func TestSameFields(t *testing.T) {
	existing := DecodeRecord(map[string]string{
		"title":       "Alpha",
		"tags":        `["x"]`,
		FieldSession:  "s1",
		FieldCachedAt: "2025-01-01T00:00:00Z",
	})

	assert.True(t, SameFields(map[string]string{"title": "Alpha", "tags": `["x"]`}, existing))
	assert.True(t, SameFields(map[string]string{"title": "Alpha", "tags": `["x"]`, FieldSession: "s9"}, existing))
	assert.False(t, SameFields(map[string]string{"title": "Alpha", "tags": `["y"]`}, existing))
	assert.False(t, SameFields(map[string]string{"title": "Alpha"}, existing), "removed fields count as a change")
	assert.False(t, SameFields(map[string]string{"title": "Alpha", "tags": `["x"]`, "extra": "1"}, existing))
}

func TestDecodeRecord(t *testing.T) {
	rec := DecodeRecord(map[string]string{
		"name":    "Davis",
		"works":   `["w1","w2"]`,
		"broken":  `[unterminated`,
		"count":   "4",
		"address": `{"country":"USA"}`,
	})

	assert.Equal(t, FieldRaw, rec["name"].Kind)
	assert.Equal(t, FieldParsed, rec["works"].Kind)
	assert.Equal(t, []any{"w1", "w2"}, rec["works"].Parsed)
	assert.Equal(t, FieldRaw, rec["broken"].Kind)
	assert.Equal(t, FieldParsed, rec["address"].Kind)
	assert.Equal(t, 4, rec.Int("count"))
	assert.Equal(t, 0, rec.Int("missing"))

	var works []string
	assert.NoError(t, rec.Decode("works", &works))
	assert.Equal(t, []string{"w1", "w2"}, works)
	assert.Error(t, rec.Decode("broken", &works))
	assert.NoError(t, rec.Decode("missing", &works))
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		key  string
		id   string
		isID bool
	}{
		{"expert:123", "123", true},
		{"expert:metadata", "", false},
		{"expert:sessions", "", false},
		{"expert:123:entry:0", "", false},
		{"work:123", "", false},
		{"expert:", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			id, ok := recordID("expert", tt.key)
			assert.Equal(t, tt.isID, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}
