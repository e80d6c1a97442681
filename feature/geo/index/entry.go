package index

import (
	"fmt"

	"experts-geo/core/utils"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"
)

// Entries decodes the work or grant entries stored under key in props.
// Values are either []Entry or decoded JSON arrays.
func Entries(props geojson.Properties, key string) ([]Entry, error) {
	raw, ok := props[key]
	if !ok || raw == nil {
		return nil, nil
	}
	if typed, ok := raw.([]Entry); ok {
		return typed, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return entries, nil
}

// ConfidenceValue returns the numeric confidence of the entry and whether it has one.
func (e Entry) ConfidenceValue() (float64, bool) {
	return utils.ParseFloat(e.Confidence)
}

// Date returns the date text used for keyword matching.
func (e Entry) Date() string {
	if e.Issued != "" {
		return e.Issued
	}
	if e.StartDate != "" && e.EndDate != "" {
		return e.StartDate + " " + e.EndDate
	}
	if e.StartDate != "" {
		return e.StartDate
	}
	return e.EndDate
}
