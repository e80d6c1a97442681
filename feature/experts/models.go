package experts

import (
	"strings"

	"experts-geo/core/cache"
)

// Ref identifies an expert attached to a work or grant.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Expert is a researcher profile.
type Expert struct {
	URL          string   `json:"@id,omitempty"`
	ID           string   `json:"id,omitempty"`
	FullName     string   `json:"name,omitempty"`
	FirstName    string   `json:"firstName,omitempty"`
	LastName     string   `json:"lastName,omitempty"`
	Title        string   `json:"title,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Modified     string   `json:"modified,omitempty"`
	Works        []*Work  `json:"works,omitempty"`
	Grants       []*Grant `json:"grants,omitempty"`
}

// Key returns the stable expert id.
func (e *Expert) Key() string {
	return cache.DeriveID(e.URL, e.ID, 0)
}

// DisplayName renders the full name, falling back to first and last name.
func (e *Expert) DisplayName() string {
	if name := strings.TrimSpace(e.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Ref returns a reference to the expert.
func (e *Expert) Ref() Ref {
	return Ref{ID: e.Key(), Name: e.DisplayName(), URL: e.URL}
}

// Work is a publication.
type Work struct {
	URL            string   `json:"@id,omitempty"`
	ID             string   `json:"id,omitempty"`
	Title          string   `json:"title"`
	Abstract       string   `json:"abstract,omitempty"`
	Issued         string   `json:"issued,omitempty"`
	Type           string   `json:"type,omitempty"`
	Authors        []string `json:"authors,omitempty"`
	RelatedExperts []Ref    `json:"relatedExperts,omitempty"`
}

// Key returns the stable work id, or "" when the work carries no identifier.
func (w *Work) Key() string {
	if w.URL == "" && strings.TrimSpace(w.ID) == "" {
		return ""
	}
	return cache.DeriveID(w.URL, w.ID, 0)
}

// Grant is a funded project.
type Grant struct {
	URL            string `json:"@id,omitempty"`
	ID             string `json:"id,omitempty"`
	Title          string `json:"title"`
	Funder         string `json:"funder,omitempty"`
	StartDate      string `json:"startDate,omitempty"`
	EndDate        string `json:"endDate,omitempty"`
	Role           string `json:"role,omitempty"`
	RelatedExperts []Ref  `json:"relatedExperts,omitempty"`
}

// Key returns the stable grant id, or "" when the grant carries no identifier.
func (g *Grant) Key() string {
	if g.URL == "" && strings.TrimSpace(g.ID) == "" {
		return ""
	}
	return cache.DeriveID(g.URL, g.ID, 0)
}

func addRef(refs []Ref, r Ref) []Ref {
	for _, existing := range refs {
		if existing.ID == r.ID && existing.Name == r.Name {
			return refs
		}
	}
	return append(refs, r)
}

// Collect flattens the works and grants of every expert, attaching the owning
// expert to each. Records sharing an id are merged into one with all experts.
// Records without an id are kept as they are.
func Collect(list []*Expert) ([]*Work, []*Grant) {
	var works []*Work
	var grants []*Grant
	workByKey := map[string]*Work{}
	grantByKey := map[string]*Grant{}

	for _, e := range list {
		if e == nil {
			continue
		}
		ref := e.Ref()
		for _, w := range e.Works {
			if w == nil {
				continue
			}
			key := w.Key()
			if existing, ok := workByKey[key]; ok && key != "" {
				existing.RelatedExperts = addRef(existing.RelatedExperts, ref)
				continue
			}
			cp := *w
			cp.RelatedExperts = addRef(append([]Ref(nil), w.RelatedExperts...), ref)
			works = append(works, &cp)
			if key != "" {
				workByKey[key] = &cp
			}
		}
		for _, g := range e.Grants {
			if g == nil {
				continue
			}
			key := g.Key()
			if existing, ok := grantByKey[key]; ok && key != "" {
				existing.RelatedExperts = addRef(existing.RelatedExperts, ref)
				continue
			}
			cp := *g
			cp.RelatedExperts = addRef(append([]Ref(nil), g.RelatedExperts...), ref)
			grants = append(grants, &cp)
			if key != "" {
				grantByKey[key] = &cp
			}
		}
	}
	return works, grants
}
