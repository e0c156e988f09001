// Package geojson adapts a GeoJSON FeatureCollection into a
// domain.GeometrySource. Geometries stay opaque raw JSON; only feature
// properties are inspected, to build the code and name indexes.
package geojson

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mchastel/referendum-rollup/internal/domain"
)

// Property names tried, in order, when indexing features. French
// open-data region files key polygons by "code"/"nom"; some mirrors use
// the English names.
var (
	codeProperties = []string{"code", "code_reg", "insee_reg"}
	nameProperties = []string{"nom", "name", "name_reg"}
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// Source indexes a FeatureCollection by region code and by folded region
// name. It implements domain.GeometrySource.
type Source struct {
	byCode map[string]json.RawMessage
	byName map[string]json.RawMessage
}

// Load reads and indexes a GeoJSON file.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load geojson: %w", err)
	}
	return Parse(data)
}

// Parse indexes an in-memory FeatureCollection document.
func Parse(data []byte) (*Source, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("parse geojson: expected FeatureCollection, got %q", fc.Type)
	}

	s := &Source{
		byCode: make(map[string]json.RawMessage, len(fc.Features)),
		byName: make(map[string]json.RawMessage, len(fc.Features)),
	}
	for _, f := range fc.Features {
		if len(f.Geometry) == 0 || string(f.Geometry) == "null" {
			continue
		}
		if code, ok := stringProperty(f.Properties, codeProperties); ok {
			s.byCode[code] = f.Geometry
		}
		if name, ok := stringProperty(f.Properties, nameProperties); ok {
			s.byName[domain.NameMatchKey(name)] = f.Geometry
		}
	}
	return s, nil
}

// GeometryByCode returns the polygon indexed under a region code.
func (s *Source) GeometryByCode(code string) (json.RawMessage, bool) {
	g, ok := s.byCode[code]
	return g, ok
}

// GeometryByName returns the polygon indexed under a folded region name.
// The key must come from domain.NameMatchKey.
func (s *Source) GeometryByName(nameKey string) (json.RawMessage, bool) {
	g, ok := s.byName[nameKey]
	return g, ok
}

// Len returns the number of features carrying geometry.
func (s *Source) Len() int {
	if len(s.byCode) > len(s.byName) {
		return len(s.byCode)
	}
	return len(s.byName)
}

func stringProperty(props map[string]any, names []string) (string, bool) {
	for _, n := range names {
		if v, ok := props[n].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
