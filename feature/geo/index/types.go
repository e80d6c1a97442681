package index

import (
	"github.com/paulmach/orb/geojson"
)

// Property keys of a location feature.
const (
	PropName        = "name"
	PropCountry     = "country"
	PropDisplayName = "display_name"
	PropPlaceRank   = "place_rank"
	PropOSMID       = "osm_id"
	PropWorks       = "works"
	PropGrants      = "grants"
)

// Kind distinguishes work and grant entries.
type Kind string

const (
	KindWork  Kind = "work"
	KindGrant Kind = "grant"
)

// ExpertRef is an expert attached to an entry.
type ExpertRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Entry is a work or grant attached to a location feature.
type Entry struct {
	ID             string      `json:"id,omitempty"`
	Title          string      `json:"title"`
	Abstract       string      `json:"abstract,omitempty"`
	Issued         string      `json:"issued,omitempty"`
	Funder         string      `json:"funder,omitempty"`
	StartDate      string      `json:"startDate,omitempty"`
	EndDate        string      `json:"endDate,omitempty"`
	Confidence     any         `json:"confidence,omitempty"`
	RelatedExperts []ExpertRef `json:"relatedExperts,omitempty"`
}

// Location is a node of the index.
type Location struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Country     string            `json:"country,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	PlaceRank   int               `json:"place_rank,omitempty"`
	Geometry    *geojson.Geometry `json:"geometry,omitempty"`
	WorkIDs     []string          `json:"workIDs"`
	GrantIDs    []string          `json:"grantIDs"`
	ExpertIDs   []string          `json:"expertIDs"`
}

// Work is an indexed work.
type Work struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Abstract         string   `json:"abstract,omitempty"`
	Issued           string   `json:"issued,omitempty"`
	Confidence       any      `json:"confidence,omitempty"`
	MatchedFields    []string `json:"matchedFields,omitempty"`
	LocationIDs      []string `json:"locationIDs"`
	RelatedExpertIDs []string `json:"relatedExpertIDs"`
}

// Grant is an indexed grant.
type Grant struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Funder           string   `json:"funder,omitempty"`
	StartDate        string   `json:"startDate,omitempty"`
	EndDate          string   `json:"endDate,omitempty"`
	Confidence       any      `json:"confidence,omitempty"`
	MatchedFields    []string `json:"matchedFields,omitempty"`
	LocationIDs      []string `json:"locationIDs"`
	RelatedExpertIDs []string `json:"relatedExpertIDs"`
}

// Expert is an indexed expert.
type Expert struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URL         string   `json:"url,omitempty"`
	WorkIDs     []string `json:"workIDs"`
	GrantIDs    []string `json:"grantIDs"`
	LocationIDs []string `json:"locationIDs"`
}

// IndexSet holds the four mutually referencing maps.
type IndexSet struct {
	Locations map[string]*Location `json:"locations"`
	Works     map[string]*Work     `json:"works"`
	Grants    map[string]*Grant    `json:"grants"`
	Experts   map[string]*Expert   `json:"experts"`
}

// NewIndexSet returns an empty set.
func NewIndexSet() *IndexSet {
	return &IndexSet{
		Locations: map[string]*Location{},
		Works:     map[string]*Work{},
		Grants:    map[string]*Grant{},
		Experts:   map[string]*Expert{},
	}
}

// Result holds one IndexSet per overlap category.
type Result struct {
	Combined *IndexSet `json:"combined"`
	Works    *IndexSet `json:"works"`
	Grants   *IndexSet `json:"grants"`
}

// LocationBucket groups the work and grant features of one location.
type LocationBucket struct {
	Location string
	Works    []*geojson.Feature
	Grants   []*geojson.Feature
}

// first returns the feature whose properties describe the location.
func (b LocationBucket) first() *geojson.Feature {
	if len(b.Works) > 0 {
		return b.Works[0]
	}
	if len(b.Grants) > 0 {
		return b.Grants[0]
	}
	return nil
}

// appendUnique appends id unless already present.
func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
