package domain

import (
	"encoding/json"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// GeometrySource supplies geometry for a region, looked up by canonical
// region code first and by match key (see [NameMatchKey]) second. The
// reference geojson keys polygons by the region's display name, accents
// and all, which is why the fallback exists.
type GeometrySource interface {
	GeometryByCode(code string) (json.RawMessage, bool)
	GeometryByName(nameKey string) (json.RawMessage, bool)
}

// AnnotatedRegion is a RegionResult with its polygon attached, ready to
// hand off to a renderer. Geometry stays an opaque GeoJSON fragment; the
// rollup never inspects coordinates, projections, or styling.
type AnnotatedRegion struct {
	RegionResult
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

// Annotate attaches geometry to each result. Results with no geometry are
// kept (with nil Geometry) and counted, so a renderer can decide whether a
// hole in the map is acceptable.
func Annotate(results []RegionResult, source GeometrySource, logger *slog.Logger) ([]AnnotatedRegion, int) {
	if logger == nil {
		logger = slog.Default()
	}

	annotated := make([]AnnotatedRegion, 0, len(results))
	unmatched := 0
	for _, res := range results {
		geom, ok := source.GeometryByCode(res.Code)
		if !ok {
			geom, ok = source.GeometryByName(NameMatchKey(res.Name))
		}
		if !ok {
			unmatched++
			logger.Warn("no geometry for region", "region_code", res.Code, "region_name", res.Name)
		}
		annotated = append(annotated, AnnotatedRegion{RegionResult: res, Geometry: geom})
	}
	return annotated, unmatched
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NameMatchKey folds a region name for equality matching across sources:
// lowercased, accents stripped, hyphens and apostrophes collapsed to
// spaces ("Auvergne-Rhône-Alpes" and "auvergne rhone alpes" produce the
// same key).
func NameMatchKey(name string) string {
	folded, _, err := transform.String(stripAccents, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}
	replacer := strings.NewReplacer("-", " ", "'", " ", "’", " ")
	return strings.Join(strings.Fields(replacer.Replace(folded)), " ")
}
