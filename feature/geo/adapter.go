package geo

import (
	"fmt"
	"strconv"
	"strings"

	"experts-geo/core/cache"
	"experts-geo/core/utils"
	"experts-geo/feature/geo/index"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"
)

// Cache types of the location features.
const (
	TypeWorksFeature  = "worksFeature"
	TypeGrantsFeature = "grantsFeature"
)

// Fields of a feature record. Entries live in their own hashes.
const (
	fieldName        = "name"
	fieldCountry     = "country"
	fieldDisplayName = "display_name"
	fieldPlaceRank   = "place_rank"
	fieldOSMID       = "osm_id"
	fieldGeometry    = "geometry"
	fieldDigest      = "entries_digest"
)

// FeatureAdapter stores location features with their works or grants as
// nested entries under <type>:<name>:entry:<n>.
type FeatureAdapter struct {
	typ string
	key string
}

// WorksFeatureAdapter returns the adapter for work location features.
func WorksFeatureAdapter() FeatureAdapter {
	return FeatureAdapter{typ: TypeWorksFeature, key: index.PropWorks}
}

// GrantsFeatureAdapter returns the adapter for grant location features.
func GrantsFeatureAdapter() FeatureAdapter {
	return FeatureAdapter{typ: TypeGrantsFeature, key: index.PropGrants}
}

func (a FeatureAdapter) Type() string { return a.typ }

// ItemID is the location name as is, or the positional fallback. Names are
// not URLs, so a slash in one is kept.
func (a FeatureAdapter) ItemID(f *geojson.Feature, i int) string {
	if name := strings.TrimSpace(utils.ToString(f.Properties[index.PropName])); name != "" {
		return name
	}
	return cache.DeriveID("", "", i)
}

func (a FeatureAdapter) IsUnchanged(f *geojson.Feature, existing cache.Record) bool {
	formatted, err := a.Format(f, "")
	if err != nil {
		return false
	}
	return cache.SameFields(formatted, existing)
}

func (a FeatureAdapter) Format(f *geojson.Feature, _ string) (map[string]string, error) {
	if f.Geometry == nil {
		return nil, fmt.Errorf("feature %v has no geometry", f.Properties[index.PropName])
	}
	geom, err := json.Marshal(geojson.NewGeometry(f.Geometry))
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	entries, err := index.Entries(f.Properties, a.key)
	if err != nil {
		return nil, err
	}
	digest, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.key, err)
	}

	out := map[string]string{
		fieldName:             utils.ToString(f.Properties[index.PropName]),
		fieldGeometry:         string(geom),
		fieldDigest:           strconv.FormatUint(xxhash.Sum64(digest), 16),
		cache.FieldEntryCount: strconv.Itoa(len(entries)),
	}
	optional := map[string]any{
		fieldCountry:     f.Properties[index.PropCountry],
		fieldDisplayName: f.Properties[index.PropDisplayName],
		fieldPlaceRank:   f.Properties[index.PropPlaceRank],
		fieldOSMID:       f.Properties[index.PropOSMID],
	}
	for k, v := range optional {
		if s := utils.ToString(v); s != "" {
			out[k] = s
		}
	}
	return out, nil
}

func (a FeatureAdapter) Parse(rec cache.Record) (*geojson.Feature, error) {
	var geom geojson.Geometry
	if err := rec.Decode(fieldGeometry, &geom); err != nil {
		return nil, err
	}
	if geom.Coordinates == nil && geom.Geometries == nil {
		return nil, fmt.Errorf("record %s has no geometry", rec.String(fieldName))
	}
	f := geojson.NewFeature(geom.Geometry())
	f.Properties[index.PropName] = rec.String(fieldName)
	if v := rec.String(fieldCountry); v != "" {
		f.Properties[index.PropCountry] = v
	}
	if v := rec.String(fieldDisplayName); v != "" {
		f.Properties[index.PropDisplayName] = v
	}
	if _, ok := rec[fieldPlaceRank]; ok {
		f.Properties[index.PropPlaceRank] = rec.Int(fieldPlaceRank)
	}
	if v := rec.String(fieldOSMID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.Properties[index.PropOSMID] = id
		}
	}
	f.Properties[a.key] = []index.Entry{}
	return f, nil
}

// FormatEntries writes one hash per work or grant.
func (a FeatureAdapter) FormatEntries(f *geojson.Feature, _ string) ([]map[string]string, error) {
	entries, err := index.Entries(f.Properties, a.key)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		experts, err := cache.EncodeJSON(e.RelatedExperts)
		if err != nil {
			return nil, fmt.Errorf("experts of %s: %w", e.ID, err)
		}
		h := map[string]string{
			"title":          e.Title,
			"relatedExperts": experts,
		}
		for k, v := range map[string]string{
			"id":         e.ID,
			"abstract":   e.Abstract,
			"issued":     e.Issued,
			"funder":     e.Funder,
			"startDate":  e.StartDate,
			"endDate":    e.EndDate,
			"confidence": utils.ToString(e.Confidence),
		} {
			if v != "" {
				h[k] = v
			}
		}
		out = append(out, h)
	}
	return out, nil
}

// ParseEntries attaches the stored entries to the feature.
func (a FeatureAdapter) ParseEntries(f *geojson.Feature, records []cache.Record) error {
	entries := make([]index.Entry, 0, len(records))
	for _, rec := range records {
		e := index.Entry{
			ID:        rec.String("id"),
			Title:     rec.String("title"),
			Abstract:  rec.String("abstract"),
			Issued:    rec.String("issued"),
			Funder:    rec.String("funder"),
			StartDate: rec.String("startDate"),
			EndDate:   rec.String("endDate"),
		}
		if v := rec.String("confidence"); v != "" {
			if c, ok := utils.ParseFloat(v); ok {
				e.Confidence = c
			} else {
				e.Confidence = v
			}
		}
		if err := rec.Decode("relatedExperts", &e.RelatedExperts); err != nil {
			return err
		}
		entries = append(entries, e)
	}
	f.Properties[a.key] = entries
	return nil
}
