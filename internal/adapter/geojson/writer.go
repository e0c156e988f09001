package geojson

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mchastel/referendum-rollup/internal/domain"
)

type outFeature struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type outCollection struct {
	Type     string       `json:"type"`
	Features []outFeature `json:"features"`
}

// Marshal renders annotated regions as a FeatureCollection whose feature
// properties are the region results. Regions without geometry are skipped:
// a renderer can do nothing with a property bag it cannot place.
func Marshal(regions []domain.AnnotatedRegion) ([]byte, error) {
	fc := outCollection{Type: "FeatureCollection", Features: make([]outFeature, 0, len(regions))}
	for _, r := range regions {
		if len(r.Geometry) == 0 {
			continue
		}
		props, err := json.Marshal(r.RegionResult)
		if err != nil {
			return nil, fmt.Errorf("marshal region %s: %w", r.Code, err)
		}
		fc.Features = append(fc.Features, outFeature{
			Type:       "Feature",
			Properties: props,
			Geometry:   r.Geometry,
		})
	}
	return json.MarshalIndent(fc, "", "  ")
}

// WriteAnnotated writes the annotated FeatureCollection to path.
func WriteAnnotated(path string, regions []domain.AnnotatedRegion) error {
	data, err := Marshal(regions)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write annotated geojson: %w", err)
	}
	return nil
}
