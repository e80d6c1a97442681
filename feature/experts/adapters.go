package experts

import (
	"fmt"

	"experts-geo/core/cache"
)

const (
	TypeExpert = "expert"
	TypeWork   = "work"
	TypeGrant  = "grant"
)

// ExpertAdapter maps experts onto expert:<id> hashes. Works and grants are
// stored inline as JSON arrays.
type ExpertAdapter struct{}

func (ExpertAdapter) Type() string { return TypeExpert }

func (ExpertAdapter) ItemID(e *Expert, index int) string {
	return cache.DeriveID(e.URL, e.ID, index)
}

func (a ExpertAdapter) IsUnchanged(e *Expert, existing cache.Record) bool {
	fields, err := a.Format(e, "")
	return err == nil && cache.SameFields(fields, existing)
}

func (ExpertAdapter) Format(e *Expert, _ string) (map[string]string, error) {
	works, err := cache.EncodeJSON(e.Works)
	if err != nil {
		return nil, fmt.Errorf("works: %w", err)
	}
	grants, err := cache.EncodeJSON(e.Grants)
	if err != nil {
		return nil, fmt.Errorf("grants: %w", err)
	}
	return map[string]string{
		"id":           e.Key(),
		"url":          e.URL,
		"name":         e.DisplayName(),
		"first_name":   e.FirstName,
		"last_name":    e.LastName,
		"title":        e.Title,
		"organization": e.Organization,
		"modified":     e.Modified,
		"works":        works,
		"grants":       grants,
	}, nil
}

func (ExpertAdapter) Parse(rec cache.Record) (*Expert, error) {
	e := &Expert{
		URL:          rec.String("url"),
		ID:           rec.String("id"),
		FullName:     rec.String("name"),
		FirstName:    rec.String("first_name"),
		LastName:     rec.String("last_name"),
		Title:        rec.String("title"),
		Organization: rec.String("organization"),
		Modified:     rec.String("modified"),
	}
	if err := rec.Decode("works", &e.Works); err != nil {
		return nil, err
	}
	if err := rec.Decode("grants", &e.Grants); err != nil {
		return nil, err
	}
	return e, nil
}

// WorkAdapter maps works onto work:<id> hashes.
type WorkAdapter struct{}

func (WorkAdapter) Type() string { return TypeWork }

func (WorkAdapter) ItemID(w *Work, index int) string {
	return cache.DeriveID(w.URL, w.ID, index)
}

func (a WorkAdapter) IsUnchanged(w *Work, existing cache.Record) bool {
	fields, err := a.Format(w, "")
	return err == nil && cache.SameFields(fields, existing)
}

func (WorkAdapter) Format(w *Work, _ string) (map[string]string, error) {
	authors, err := cache.EncodeJSON(w.Authors)
	if err != nil {
		return nil, fmt.Errorf("authors: %w", err)
	}
	related, err := cache.EncodeJSON(w.RelatedExperts)
	if err != nil {
		return nil, fmt.Errorf("related experts: %w", err)
	}
	return map[string]string{
		"id":              w.ID,
		"url":             w.URL,
		"title":           w.Title,
		"abstract":        w.Abstract,
		"issued":          w.Issued,
		"type":            w.Type,
		"authors":         authors,
		"related_experts": related,
	}, nil
}

func (WorkAdapter) Parse(rec cache.Record) (*Work, error) {
	w := &Work{
		URL:      rec.String("url"),
		ID:       rec.String("id"),
		Title:    rec.String("title"),
		Abstract: rec.String("abstract"),
		Issued:   rec.String("issued"),
		Type:     rec.String("type"),
	}
	if err := rec.Decode("authors", &w.Authors); err != nil {
		return nil, err
	}
	if err := rec.Decode("related_experts", &w.RelatedExperts); err != nil {
		return nil, err
	}
	return w, nil
}

// GrantAdapter maps grants onto grant:<id> hashes.
type GrantAdapter struct{}

func (GrantAdapter) Type() string { return TypeGrant }

func (GrantAdapter) ItemID(g *Grant, index int) string {
	return cache.DeriveID(g.URL, g.ID, index)
}

func (a GrantAdapter) IsUnchanged(g *Grant, existing cache.Record) bool {
	fields, err := a.Format(g, "")
	return err == nil && cache.SameFields(fields, existing)
}

func (GrantAdapter) Format(g *Grant, _ string) (map[string]string, error) {
	related, err := cache.EncodeJSON(g.RelatedExperts)
	if err != nil {
		return nil, fmt.Errorf("related experts: %w", err)
	}
	return map[string]string{
		"id":              g.ID,
		"url":             g.URL,
		"title":           g.Title,
		"funder":          g.Funder,
		"start_date":      g.StartDate,
		"end_date":        g.EndDate,
		"role":            g.Role,
		"related_experts": related,
	}, nil
}

func (GrantAdapter) Parse(rec cache.Record) (*Grant, error) {
	g := &Grant{
		URL:       rec.String("url"),
		ID:        rec.String("id"),
		Title:     rec.String("title"),
		Funder:    rec.String("funder"),
		StartDate: rec.String("start_date"),
		EndDate:   rec.String("end_date"),
		Role:      rec.String("role"),
	}
	if err := rec.Decode("related_experts", &g.RelatedExperts); err != nil {
		return nil, err
	}
	return g, nil
}
