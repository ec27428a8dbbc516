package domain

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoutePath(t *testing.T) {
	want := []Coordinate{{Lon: 38.1, Lat: -3.1}, {Lon: 38.2, Lat: -3.2}}

	tests := []struct {
		name string
		raw  string
	}{
		{"line string", `{"type":"LineString","coordinates":[[38.1,-3.1],[38.2,-3.2]]}`},
		{"feature", `{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[38.1,-3.1],[38.2,-3.2]]}}`},
		{"feature collection", `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,1]}},
			{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[38.1,-3.1],[38.2,-3.2]]}}]}`},
		{"multi line string", `{"type":"MultiLineString","coordinates":[[[38.1,-3.1]],[[38.2,-3.2]]]}`},
		{"bare array", `[[38.1,-3.1],[38.2,-3.2]]`},
		{"array with altitude", `[[38.1,-3.1,1200],[38.2,-3.2,1210]]`},
		{"encoded string", `"{\"type\":\"LineString\",\"coordinates\":[[38.1,-3.1],[38.2,-3.2]]}"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoutePath(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseRoutePath_Empty(t *testing.T) {
	for _, raw := range []string{``, `null`, `""`, `  `} {
		got, err := ParseRoutePath(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestParseRoutePath_Invalid(t *testing.T) {
	inputs := []string{
		`{"type":"Point","coordinates":[38.1,-3.1]}`,
		`[[38.1]]`,
		`{"type":"LineString","coordinates":"nope"}`,
		`{not json`,
		`{"type":"FeatureCollection","features":[]}`,
	}
	for _, raw := range inputs {
		_, err := ParseRoutePath(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrInvalidRoutePath, raw)
	}
}

func TestMapModel_FeatureCollection(t *testing.T) {
	m := MapModel{
		Markers: []Marker{
			{Position: LatLng{-3.0, 38.0}, Label: StartLabel, ColorKey: ColorStart, Kind: MarkerStart},
			{Position: LatLng{-3.1, 38.1}, Label: "1", ColorKey: ColorHigh, Kind: MarkerIncident, IncidentID: 4, Place: "Voi"},
		},
		Polyline: []LatLng{{-3.0, 38.0}, {-3.1, 38.1}},
		RoadPath: []LatLng{{-3.0, 38.0}, {-3.05, 38.02}, {-3.1, 38.1}},
	}

	fc := m.FeatureCollection()

	require.Len(t, fc.Features, 4)

	start := fc.Features[0]
	assert.Equal(t, orb.Point{38.0, -3.0}, start.Geometry)
	assert.Equal(t, "start", start.Properties["kind"])
	assert.Equal(t, "#4caf50", start.Properties["color"])
	assert.NotContains(t, start.Properties, "incident_id")

	inc := fc.Features[1]
	assert.Equal(t, orb.Point{38.1, -3.1}, inc.Geometry)
	assert.Equal(t, int64(4), inc.Properties["incident_id"])
	assert.Equal(t, "Voi", inc.Properties["place"])

	route := fc.Features[2]
	assert.Equal(t, "route", route.Properties["kind"])
	assert.Equal(t, orb.LineString{{38.0, -3.0}, {38.1, -3.1}}, route.Geometry)

	assert.Equal(t, "road_path", fc.Features[3].Properties["kind"])
}

func TestMapModel_FeatureCollection_Empty(t *testing.T) {
	fc := BuildMap(nil, nil, true).FeatureCollection()

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}
