package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const (
	// FieldSession holds the session id of the batch that last wrote the record.
	FieldSession = "cache_session"
	// FieldCachedAt holds the RFC3339 time the record was last written.
	FieldCachedAt = "cached_at"
)

// FieldKind tags how a stored value was interpreted at the store boundary.
type FieldKind uint8

const (
	// FieldRaw is a plain scalar string.
	FieldRaw FieldKind = iota
	// FieldParsed is a JSON array or object decoded into Parsed.
	FieldParsed
)

// Field is a single stored value. Raw always holds the stored string so
// records can be compared byte for byte; Parsed is set for JSON values.
type Field struct {
	Kind   FieldKind
	Raw    string
	Parsed any
}

// Decode unmarshals the field into v.
func (f Field) Decode(v any) error {
	if f.Raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(f.Raw), v)
}

// Record is a stored hash with JSON values parsed once.
type Record map[string]Field

// DecodeRecord converts a raw hash into a Record. Values that look like JSON
// arrays or objects are parsed; if parsing fails they stay raw.
func DecodeRecord(raw map[string]string) Record {
	rec := make(Record, len(raw))
	for k, v := range raw {
		f := Field{Kind: FieldRaw, Raw: v}
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
			var parsed any
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				f.Kind = FieldParsed
				f.Parsed = parsed
			}
		}
		rec[k] = f
	}
	return rec
}

// String returns the raw value of a field, or "" when absent.
func (r Record) String(name string) string {
	return r[name].Raw
}

// Int returns a field as int, or 0 when absent or malformed.
func (r Record) Int(name string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(r[name].Raw))
	return n
}

// Decode unmarshals a JSON field into v. Absent fields leave v untouched.
func (r Record) Decode(name string, v any) error {
	f, ok := r[name]
	if !ok {
		return nil
	}
	if err := f.Decode(v); err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	return nil
}

// Session returns the session stamp of the record.
func (r Record) Session() string {
	return r.String(FieldSession)
}

// Raw returns the record as a plain hash.
func (r Record) Raw() map[string]string {
	out := make(map[string]string, len(r))
	for k, f := range r {
		out[k] = f.Raw
	}
	return out
}

// EncodeJSON marshals v for storage in a hash field. nil slices become "[]".
func EncodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

// FieldEntryCount is the field an EntryAdapter sets to the number of nested
// entries stored under the record.
const FieldEntryCount = "entry_count"
