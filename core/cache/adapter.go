package cache

import (
	"net/url"
	"strconv"
	"strings"
)

// Adapter defines how one entity type maps onto flat cache records.
type Adapter[T any] interface {
	// Type returns the key prefix for this entity type (e.g. "expert", "work").
	Type() string

	// ItemID returns a stable ID for the item. index is the item's position in
	// the batch and is only meant as a last-resort fallback (see DeriveID).
	ItemID(item *T, index int) string

	// IsUnchanged reports whether the stored record already holds the item's
	// content. Session and cache timestamp fields must be ignored.
	IsUnchanged(item *T, existing Record) bool

	// Format serialises the item into a flat hash. Arrays and objects are
	// JSON-encoded. The cache adds the session and timestamp fields itself.
	Format(item *T, session string) (map[string]string, error)

	// Parse rebuilds an item from a stored record.
	Parse(rec Record) (*T, error)
}

// EntryAdapter is implemented by adapters whose items own a nested collection
// that is stored under <type>:<id>:entry:<n>.
type EntryAdapter[T any] interface {
	Adapter[T]

	// FormatEntries serialises the nested collection, one hash per entry.
	FormatEntries(item *T, session string) ([]map[string]string, error)

	// ParseEntries attaches stored entries (in order) to a parsed item.
	ParseEntries(item *T, entries []Record) error
}

// DeriveID picks a stable ID from, in order: the last path segment of a URL,
// an explicit ID, or the positional index.
func DeriveID(rawURL, explicit string, index int) string {
	if rawURL != "" {
		if id := lastSegment(rawURL); id != "" {
			return id
		}
	}
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if strings.Contains(explicit, "/") {
			if id := lastSegment(explicit); id != "" {
				return id
			}
		}
		return explicit
	}
	return "item_" + strconv.Itoa(index)
}

func lastSegment(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSpace(path)
}

// SameFields reports whether a freshly formatted hash matches a stored record,
// ignoring session and cache timestamp fields on both sides.
func SameFields(formatted map[string]string, existing Record) bool {
	n := 0
	for k, v := range formatted {
		if isStampField(k) {
			continue
		}
		n++
		f, ok := existing[k]
		if !ok || f.Raw != v {
			return false
		}
	}
	m := 0
	for k := range existing {
		if !isStampField(k) {
			m++
		}
	}
	return n == m
}

func isStampField(name string) bool {
	return name == FieldSession || name == FieldCachedAt
}
