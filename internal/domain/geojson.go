package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidRoutePath reports a route_path payload that is not a usable line.
var ErrInvalidRoutePath = errors.New("invalid route path")

// ParseRoutePath reads the server's road-following geometry. It accepts a
// GeoJSON LineString or MultiLineString geometry, a Feature or
// FeatureCollection carrying one, a bare [[lon,lat],...] array, or any of
// those encoded as a JSON string. Empty input yields an empty path.
func ParseRoutePath(raw json.RawMessage) ([]Coordinate, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Coordinate{}, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRoutePath, err)
		}
		if inner == "" {
			return []Coordinate{}, nil
		}
		return ParseRoutePath(json.RawMessage(inner))
	}

	if raw[0] == '[' {
		var pts [][]float64
		if err := json.Unmarshal(raw, &pts); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRoutePath, err)
		}
		line := make(orb.LineString, 0, len(pts))
		for i, p := range pts {
			if len(p) < 2 {
				return nil, fmt.Errorf("%w: position %d has %d values", ErrInvalidRoutePath, i, len(p))
			}
			line = append(line, orb.Point{p[0], p[1]})
		}
		return lineCoordinates(line)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoutePath, err)
	}

	var g orb.Geometry
	switch probe.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRoutePath, err)
		}
		g = f.Geometry
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRoutePath, err)
		}
		for _, f := range fc.Features {
			if isLine(f.Geometry) {
				g = f.Geometry
				break
			}
		}
	default:
		geom, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRoutePath, err)
		}
		g = geom.Geometry()
	}

	switch line := g.(type) {
	case orb.LineString:
		return lineCoordinates(line)
	case orb.MultiLineString:
		var joined orb.LineString
		for _, part := range line {
			joined = append(joined, part...)
		}
		return lineCoordinates(joined)
	default:
		return nil, fmt.Errorf("%w: want a line geometry, got %q", ErrInvalidRoutePath, probe.Type)
	}
}

func isLine(g orb.Geometry) bool {
	switch g.(type) {
	case orb.LineString, orb.MultiLineString:
		return true
	}
	return false
}

func lineCoordinates(line orb.LineString) ([]Coordinate, error) {
	out := make([]Coordinate, 0, len(line))
	for i, p := range line {
		if !finite(p.Lon()) || !finite(p.Lat()) {
			return nil, fmt.Errorf("%w: position %d is not finite", ErrInvalidRoutePath, i)
		}
		out = append(out, Coordinate{Lon: p.Lon(), Lat: p.Lat()})
	}
	return out, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FeatureCollection exports the model as GeoJSON for widgets that consume it
// directly. GeoJSON positions are [lon, lat], so positions are swapped back.
func (m MapModel) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, mk := range m.Markers {
		c := mk.Position.Coordinate()
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.Properties["kind"] = string(mk.Kind)
		f.Properties["label"] = mk.Label
		f.Properties["color_key"] = mk.ColorKey
		f.Properties["color"] = ColorPalette[mk.ColorKey]
		if mk.IncidentID != 0 {
			f.Properties["incident_id"] = mk.IncidentID
		}
		if mk.Place != "" {
			f.Properties["place"] = mk.Place
		}
		fc.Append(f)
	}

	if len(m.Polyline) > 1 {
		f := geojson.NewFeature(toLineString(m.Polyline))
		f.Properties["kind"] = "route"
		fc.Append(f)
	}
	if len(m.RoadPath) > 1 {
		f := geojson.NewFeature(toLineString(m.RoadPath))
		f.Properties["kind"] = "road_path"
		fc.Append(f)
	}
	return fc
}

func toLineString(path []LatLng) orb.LineString {
	line := make(orb.LineString, 0, len(path))
	for _, p := range path {
		line = append(line, orb.Point{p[1], p[0]})
	}
	return line
}
