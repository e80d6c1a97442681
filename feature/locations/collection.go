package locations

import (
	"fmt"

	"experts-geo/feature/geo/index"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// locationNode accumulates the entries geocoded to one place.
type locationNode struct {
	place   *Place
	name    string
	works   []index.Entry
	grants  []index.Entry
	entryAt map[string]int
}

// collectionBuilder merges geocoded entries per place. Places are keyed by
// OSM id so aliases of one place share the name they were first seen under.
type collectionBuilder struct {
	byOSM map[string]*locationNode
	order []*locationNode
}

func newCollectionBuilder() *collectionBuilder {
	return &collectionBuilder{byOSM: map[string]*locationNode{}}
}

func placeKey(p *Place) string {
	if p.OSMID == 0 {
		return "q:" + p.Query
	}
	return fmt.Sprintf("%s:%d", p.OSMType, p.OSMID)
}

// add attaches entry to the place. An entry already present at the place keeps
// its highest confidence.
func (b *collectionBuilder) add(p *Place, kind index.Kind, entry index.Entry) {
	key := placeKey(p)
	node, ok := b.byOSM[key]
	if !ok {
		node = &locationNode{place: p, name: NormalizeName(p.Query), entryAt: map[string]int{}}
		b.byOSM[key] = node
		b.order = append(b.order, node)
	}

	list := &node.works
	if kind == index.KindGrant {
		list = &node.grants
	}
	if entry.ID != "" {
		slot := string(kind) + ":" + entry.ID
		if i, ok := node.entryAt[slot]; ok {
			if higherConfidence(entry, (*list)[i]) {
				(*list)[i].Confidence = entry.Confidence
			}
			return
		}
		node.entryAt[slot] = len(*list)
	}
	*list = append(*list, entry)
}

func higherConfidence(a, b index.Entry) bool {
	ca, okA := a.ConfidenceValue()
	cb, okB := b.ConfidenceValue()
	return okA && (!okB || ca > cb)
}

// countries names the country of every node. Countries take their own name;
// other places take the name of the country location sharing their country
// code, or the normalised country from the geocoder address.
func (b *collectionBuilder) countries() map[*locationNode]string {
	byCode := map[string]string{}
	for _, n := range b.order {
		if n.place.IsCountry() && n.place.CountryCode != "" {
			if _, ok := byCode[n.place.CountryCode]; !ok {
				byCode[n.place.CountryCode] = n.name
			}
		}
	}
	out := make(map[*locationNode]string, len(b.order))
	for _, n := range b.order {
		switch {
		case n.place.IsCountry():
			out[n] = n.name
		case byCode[n.place.CountryCode] != "":
			out[n] = byCode[n.place.CountryCode]
		default:
			out[n] = NormalizeName(n.place.Country)
		}
	}
	return out
}

// build renders one collection of work locations and one of grant locations.
func (b *collectionBuilder) build() (works, grants *geojson.FeatureCollection) {
	works = geojson.NewFeatureCollection()
	grants = geojson.NewFeatureCollection()
	country := b.countries()

	for _, n := range b.order {
		if len(n.works) > 0 {
			works.Append(n.feature(country[n], index.PropWorks, n.works))
		}
		if len(n.grants) > 0 {
			grants.Append(n.feature(country[n], index.PropGrants, n.grants))
		}
	}
	return works, grants
}

func (n *locationNode) feature(country, key string, entries []index.Entry) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{n.place.Lon, n.place.Lat})
	f.Properties[index.PropName] = n.name
	f.Properties[index.PropCountry] = country
	f.Properties[index.PropDisplayName] = n.place.DisplayName
	f.Properties[index.PropPlaceRank] = n.place.PlaceRank
	if n.place.OSMID != 0 {
		f.Properties[index.PropOSMID] = n.place.OSMID
	}
	f.Properties[key] = append([]index.Entry(nil), entries...)
	return f
}
