package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WriteResult summarises one Write call.
type WriteResult struct {
	// Session is the id stamped on every record written by this call.
	Session string `json:"session_id"`
	// New counts items that had no stored record.
	New int `json:"new_count"`
	// Updated counts items whose stored record differed.
	Updated int `json:"updated_count"`
	// Unchanged counts items whose stored record already matched.
	Unchanged int `json:"unchanged_count"`
	// Dropped counts nil items skipped with a warning.
	Dropped int `json:"dropped_count"`
}

// Total returns the number of items classified by the call.
func (r WriteResult) Total() int {
	return r.New + r.Updated + r.Unchanged
}

// ReadResult holds the records of a single session.
type ReadResult[T any] struct {
	Session string `json:"session_id"`
	Items   []*T   `json:"items"`
}

// Metadata is the per-type summary written after every batch.
type Metadata struct {
	LastSession    string    `json:"last_session"`
	TotalCount     int       `json:"total_count"`
	NewCount       int       `json:"new_count"`
	UpdatedCount   int       `json:"updated_count"`
	UnchangedCount int       `json:"unchanged_count"`
	Timestamp      time.Time `json:"timestamp"`
}

func (m Metadata) fields() map[string]string {
	return map[string]string{
		"last_session":    m.LastSession,
		"total_count":     strconv.Itoa(m.TotalCount),
		"new_count":       strconv.Itoa(m.NewCount),
		"updated_count":   strconv.Itoa(m.UpdatedCount),
		"unchanged_count": strconv.Itoa(m.UnchangedCount),
		"timestamp":       m.Timestamp.UTC().Format(time.RFC3339),
	}
}

func metadataFromHash(raw map[string]string) Metadata {
	rec := DecodeRecord(raw)
	ts, _ := time.Parse(time.RFC3339, rec.String("timestamp"))
	return Metadata{
		LastSession:    rec.String("last_session"),
		TotalCount:     rec.Int("total_count"),
		NewCount:       rec.Int("new_count"),
		UpdatedCount:   rec.Int("updated_count"),
		UnchangedCount: rec.Int("unchanged_count"),
		Timestamp:      ts,
	}
}

const entryMarker = ":entry:"

// RecordKey returns the hash key of a record.
func RecordKey(typ, id string) string {
	return typ + ":" + id
}

// EntryKey returns the hash key of the n-th nested entry of a record.
func EntryKey(typ, id string, n int) string {
	return fmt.Sprintf("%s:%s%s%d", typ, id, entryMarker, n)
}

// MetadataKey returns the metadata hash key of a type.
func MetadataKey(typ string) string {
	return typ + ":metadata"
}

// SessionsKey returns the session log key of a type.
func SessionsKey(typ string) string {
	return typ + ":sessions"
}

// recordID returns the id of key if it is a top-level record key of typ.
func recordID(typ, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, typ+":")
	if !ok || rest == "" {
		return "", false
	}
	if rest == "metadata" || rest == "sessions" || strings.Contains(rest, entryMarker) {
		return "", false
	}
	return rest, true
}
