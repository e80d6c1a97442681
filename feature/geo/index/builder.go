package index

import (
	"fmt"
	"sort"
	"strings"

	"experts-geo/core/utils"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// DefaultMinConfidence is the confidence below which entries are left out.
const DefaultMinConfidence = 60.0

// ExpertIdentity selects how related experts are matched to index nodes.
type ExpertIdentity int

const (
	// ByName merges experts whose rendered names are equal.
	ByName ExpertIdentity = iota
	// ByID merges experts by upstream id and falls back to the name when no id is known.
	ByID
)

// Option configures a Builder.
type Option func(*Builder)

// WithMinConfidence overrides the confidence floor.
func WithMinConfidence(v float64) Option {
	return func(b *Builder) { b.minConfidence = v }
}

// WithExpertIdentity selects the expert matching mode.
func WithExpertIdentity(mode ExpertIdentity) Option {
	return func(b *Builder) { b.identity = mode }
}

// Builder turns per-location feature buckets into index sets.
type Builder struct {
	logger        *zap.Logger
	minConfidence float64
	identity      ExpertIdentity
}

// NewBuilder creates a Builder.
func NewBuilder(logger *zap.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{logger: logger, minConfidence: DefaultMinConfidence}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build indexes the three bucket categories into separate sets and rolls
// sub-national locations up into their country in each set.
func (b *Builder) Build(overlapping, workOnly, grantOnly []LocationBucket, keyword string) *Result {
	q := ParseQuery(keyword)
	res := &Result{
		Combined: b.buildSet(overlapping, q),
		Works:    b.buildSet(workOnly, q),
		Grants:   b.buildSet(grantOnly, q),
	}
	b.logger.Debug("Index built",
		zap.String("keyword", keyword),
		zap.Int("combined_locations", len(res.Combined.Locations)),
		zap.Int("work_locations", len(res.Works.Locations)),
		zap.Int("grant_locations", len(res.Grants.Locations)))
	return res
}

// BuildFromCollections partitions the collections and builds the index.
func (b *Builder) BuildFromCollections(works, grants *geojson.FeatureCollection, keyword string) *Result {
	overlapping, workOnly, grantOnly := Partition(works, grants)
	return b.Build(overlapping, workOnly, grantOnly, keyword)
}

// state carries lookup tables that are not part of the published set.
type state struct {
	set    *IndexSet
	byName map[string]string
}

func (b *Builder) buildSet(buckets []LocationBucket, q Query) *IndexSet {
	st := &state{set: NewIndexSet(), byName: map[string]string{}}
	for _, bucket := range buckets {
		b.addBucket(st, bucket, q)
	}
	b.RollUpCountries(st.set)
	return st.set
}

func (b *Builder) addBucket(st *state, bucket LocationBucket, q Query) {
	first := bucket.first()
	if first == nil || len(first.Properties) == 0 {
		b.logger.Warn("Skipping location without properties", zap.String("location", bucket.Location))
		return
	}
	props := first.Properties
	name := strings.TrimSpace(utils.ToString(props[PropName]))
	if name == "" {
		name = bucket.Location
	}
	if name == "" {
		b.logger.Warn("Skipping unnamed location")
		return
	}

	proto := &Location{
		ID:          name,
		Name:        name,
		Country:     utils.ToString(props[PropCountry]),
		DisplayName: utils.ToString(props[PropDisplayName]),
		PlaceRank:   utils.ToInt(props[PropPlaceRank]),
	}
	if first.Geometry != nil {
		proto.Geometry = geojson.NewGeometry(first.Geometry)
	}

	n := 0
	for _, f := range bucket.Works {
		entries, err := Entries(f.Properties, PropWorks)
		if err != nil {
			b.logger.Warn("Skipping unreadable works", zap.String("location", name), zap.Error(err))
			continue
		}
		for _, e := range entries {
			b.addEntry(st, proto, KindWork, e, n, q)
			n++
		}
	}
	n = 0
	for _, f := range bucket.Grants {
		entries, err := Entries(f.Properties, PropGrants)
		if err != nil {
			b.logger.Warn("Skipping unreadable grants", zap.String("location", name), zap.Error(err))
			continue
		}
		for _, e := range entries {
			b.addEntry(st, proto, KindGrant, e, n, q)
			n++
		}
	}
}

// addEntry links one entry into the set, creating its location on first use.
func (b *Builder) addEntry(st *state, proto *Location, kind Kind, e Entry, n int, q Query) {
	var matched []string
	if !q.Empty() {
		if matched = q.Match(e); len(matched) == 0 {
			return
		}
	}
	if c, ok := e.ConfidenceValue(); ok && c < b.minConfidence {
		return
	}

	loc, ok := st.set.Locations[proto.ID]
	if !ok {
		cp := *proto
		cp.WorkIDs, cp.GrantIDs, cp.ExpertIDs = []string{}, []string{}, []string{}
		loc = &cp
		st.set.Locations[loc.ID] = loc
	}

	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = fmt.Sprintf("%s_%s_%d", kind, loc.Name, n)
	}

	var related *[]string
	switch kind {
	case KindWork:
		w, ok := st.set.Works[id]
		if !ok {
			w = &Work{
				ID: id, Title: e.Title, Abstract: e.Abstract, Issued: e.Issued, Confidence: e.Confidence,
				LocationIDs: []string{}, RelatedExpertIDs: []string{},
			}
			st.set.Works[id] = w
		}
		w.MatchedFields = union(w.MatchedFields, matched)
		w.LocationIDs = appendUnique(w.LocationIDs, loc.ID)
		loc.WorkIDs = appendUnique(loc.WorkIDs, id)
		related = &w.RelatedExpertIDs
	case KindGrant:
		g, ok := st.set.Grants[id]
		if !ok {
			g = &Grant{
				ID: id, Title: e.Title, Funder: e.Funder, StartDate: e.StartDate, EndDate: e.EndDate, Confidence: e.Confidence,
				LocationIDs: []string{}, RelatedExpertIDs: []string{},
			}
			st.set.Grants[id] = g
		}
		g.MatchedFields = union(g.MatchedFields, matched)
		g.LocationIDs = appendUnique(g.LocationIDs, loc.ID)
		loc.GrantIDs = appendUnique(loc.GrantIDs, id)
		related = &g.RelatedExpertIDs
	}

	for _, ref := range e.RelatedExperts {
		ex := b.resolveExpert(st, ref)
		if ex == nil {
			continue
		}
		if kind == KindWork {
			ex.WorkIDs = appendUnique(ex.WorkIDs, id)
		} else {
			ex.GrantIDs = appendUnique(ex.GrantIDs, id)
		}
		ex.LocationIDs = appendUnique(ex.LocationIDs, loc.ID)
		*related = appendUnique(*related, ex.ID)
		loc.ExpertIDs = appendUnique(loc.ExpertIDs, ex.ID)
	}
}

// resolveExpert finds or creates the expert node for ref.
func (b *Builder) resolveExpert(st *state, ref ExpertRef) *Expert {
	name := strings.TrimSpace(ref.Name)
	refID := strings.TrimSpace(ref.ID)
	if name == "" && refID == "" {
		b.logger.Warn("Skipping related expert without name or id")
		return nil
	}

	if b.identity == ByID && refID != "" {
		if ex, ok := st.set.Experts[refID]; ok {
			return ex
		}
		return b.newExpert(st, refID, name, ref.URL)
	}

	if name != "" {
		if id, ok := st.byName[name]; ok {
			return st.set.Experts[id]
		}
	}
	id := refID
	if _, taken := st.set.Experts[id]; id == "" || taken {
		id = b.mintExpertID(st)
	}
	return b.newExpert(st, id, name, ref.URL)
}

func (b *Builder) newExpert(st *state, id, name, url string) *Expert {
	ex := &Expert{ID: id, Name: name, URL: url, WorkIDs: []string{}, GrantIDs: []string{}, LocationIDs: []string{}}
	st.set.Experts[id] = ex
	if name != "" {
		if _, ok := st.byName[name]; !ok {
			st.byName[name] = id
		}
	}
	return ex
}

func (b *Builder) mintExpertID(st *state) string {
	for n := len(st.set.Experts) + 1; ; n++ {
		id := fmt.Sprintf("expert_%d", n)
		if _, taken := st.set.Experts[id]; !taken {
			return id
		}
	}
}

// RollUpCountries copies the work, grant and expert ids of every location into
// the location named after its country, and adds that country location to the
// copied records' locationIDs. It makes a single pass and is idempotent.
func (b *Builder) RollUpCountries(set *IndexSet) {
	ids := make([]string, 0, len(set.Locations))
	for id := range set.Locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	countries := map[string]*Location{}
	for _, id := range ids {
		loc := set.Locations[id]
		if loc.Country != "" && loc.Name == loc.Country {
			countries[loc.Country] = loc
		}
	}

	for _, id := range ids {
		loc := set.Locations[id]
		parent, ok := countries[loc.Country]
		if !ok || parent == loc {
			continue
		}
		for _, wid := range loc.WorkIDs {
			w, ok := set.Works[wid]
			if !ok {
				b.logger.Warn("Work missing during roll-up", zap.String("work", wid), zap.String("location", loc.ID))
				continue
			}
			parent.WorkIDs = appendUnique(parent.WorkIDs, wid)
			w.LocationIDs = appendUnique(w.LocationIDs, parent.ID)
		}
		for _, gid := range loc.GrantIDs {
			g, ok := set.Grants[gid]
			if !ok {
				b.logger.Warn("Grant missing during roll-up", zap.String("grant", gid), zap.String("location", loc.ID))
				continue
			}
			parent.GrantIDs = appendUnique(parent.GrantIDs, gid)
			g.LocationIDs = appendUnique(g.LocationIDs, parent.ID)
		}
		for _, eid := range loc.ExpertIDs {
			ex, ok := set.Experts[eid]
			if !ok {
				b.logger.Warn("Expert missing during roll-up", zap.String("expert", eid), zap.String("location", loc.ID))
				continue
			}
			parent.ExpertIDs = appendUnique(parent.ExpertIDs, eid)
			ex.LocationIDs = appendUnique(ex.LocationIDs, parent.ID)
		}
	}
}

func union(a, b []string) []string {
	for _, s := range b {
		a = appendUnique(a, s)
	}
	return a
}
