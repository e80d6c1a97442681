package index

import (
	"fmt"
	"strings"

	"experts-geo/core/utils"

	"github.com/paulmach/orb/geojson"
)

// Partition groups work and grant features by location name and splits the
// groups into locations with both kinds, works only and grants only. Groups
// keep the order in which their location first appears.
func Partition(works, grants *geojson.FeatureCollection) (overlapping, workOnly, grantOnly []LocationBucket) {
	var order []string
	buckets := map[string]*LocationBucket{}

	get := func(key string) *LocationBucket {
		b, ok := buckets[key]
		if !ok {
			b = &LocationBucket{Location: key}
			buckets[key] = b
			order = append(order, key)
		}
		return b
	}

	if works != nil {
		for i, f := range works.Features {
			if f == nil {
				continue
			}
			b := get(featureKey(f, "work", i))
			b.Works = append(b.Works, f)
		}
	}
	if grants != nil {
		for i, f := range grants.Features {
			if f == nil {
				continue
			}
			b := get(featureKey(f, "grant", i))
			b.Grants = append(b.Grants, f)
		}
	}

	for _, key := range order {
		b := *buckets[key]
		switch {
		case len(b.Works) > 0 && len(b.Grants) > 0:
			overlapping = append(overlapping, b)
		case len(b.Works) > 0:
			workOnly = append(workOnly, b)
		default:
			grantOnly = append(grantOnly, b)
		}
	}
	return overlapping, workOnly, grantOnly
}

func featureKey(f *geojson.Feature, kind string, i int) string {
	if name := strings.TrimSpace(utils.ToString(f.Properties[PropName])); name != "" {
		return name
	}
	if f.ID != nil {
		return utils.ToString(f.ID)
	}
	return fmt.Sprintf("%s_feature_%d", kind, i)
}
