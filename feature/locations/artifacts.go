package locations

import (
	"context"
	"fmt"
	"os"

	"experts-geo/core/errs"
	"experts-geo/core/storage"

	"github.com/paulmach/orb/geojson"
)

// BatchExtractor answers from a finished offline batch. Results are keyed by
// the position of the text in Texts order.
type BatchExtractor struct {
	byText map[string][]Extraction
}

// NewBatchExtractor pairs batch results with the texts they were requested for.
func NewBatchExtractor(texts []string, results map[int][]Extraction) *BatchExtractor {
	byText := make(map[string][]Extraction, len(results))
	for i, list := range results {
		if i >= 0 && i < len(texts) {
			byText[texts[i]] = list
		}
	}
	return &BatchExtractor{byText: byText}
}

// Extract returns the batch answer for text.
func (b *BatchExtractor) Extract(_ context.Context, text string) ([]Extraction, error) {
	return b.byText[text], nil
}

// LoadCollections downloads the published works and grants collections.
func LoadCollections(ctx context.Context, client storage.Client, bucket, prefix string) (works, grants *geojson.FeatureCollection, err error) {
	data, err := storage.GetArtifact(ctx, client, bucket, prefix+WorksArtifact)
	if err != nil {
		return nil, nil, errs.E(errs.KindStoreUnavailable, "locations.load", err)
	}
	if works, err = geojson.UnmarshalFeatureCollection(data); err != nil {
		return nil, nil, errs.E(errs.KindValidationFailed, "locations.load", fmt.Errorf("%s: %w", WorksArtifact, err))
	}
	data, err = storage.GetArtifact(ctx, client, bucket, prefix+GrantsArtifact)
	if err != nil {
		return nil, nil, errs.E(errs.KindStoreUnavailable, "locations.load", err)
	}
	if grants, err = geojson.UnmarshalFeatureCollection(data); err != nil {
		return nil, nil, errs.E(errs.KindValidationFailed, "locations.load", fmt.Errorf("%s: %w", GrantsArtifact, err))
	}
	return works, grants, nil
}

// ReadCollectionFile reads a FeatureCollection from a local file.
func ReadCollectionFile(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errs.E(errs.KindValidationFailed, "locations.read", fmt.Errorf("%s: %w", path, err))
	}
	return fc, nil
}
