package domain

import "strconv"

const (
	// StartLabel marks the route origin.
	StartLabel = "S"
	// UnsequencedLabel marks an incident that is not on the route.
	UnsequencedLabel = "?"
)

// Color keys understood by the map widget. See ColorPalette.
const (
	ColorStart    = "start"
	ColorLow      = "low"
	ColorMedium   = "medium"
	ColorHigh     = "high"
	ColorCritical = "critical"
	ColorUnknown  = "unknown"
)

// ColorPalette maps color keys to the dashboard's marker colors.
var ColorPalette = map[string]string{
	ColorStart:    "#4caf50",
	ColorLow:      "#4caf50",
	ColorMedium:   "#ffa500",
	ColorHigh:     "#ff6b6b",
	ColorCritical: "#d32f2f",
	ColorUnknown:  "#999999",
}

// SeverityColorKey returns the marker color key for s.
func SeverityColorKey(s Severity) string {
	switch s {
	case SeverityLow:
		return ColorLow
	case SeverityMedium:
		return ColorMedium
	case SeverityHigh:
		return ColorHigh
	case SeverityCritical:
		return ColorCritical
	default:
		return ColorUnknown
	}
}

// LatLng is a renderer position, latitude first.
type LatLng [2]float64

// ToLatLng swaps c into renderer order.
func ToLatLng(c Coordinate) LatLng { return LatLng{c.Lat, c.Lon} }

// Coordinate swaps p back into wire order.
func (p LatLng) Coordinate() Coordinate { return Coordinate{Lon: p[1], Lat: p[0]} }

// MarkerKind distinguishes the route origin from incidents.
type MarkerKind string

const (
	MarkerStart    MarkerKind = "start"
	MarkerIncident MarkerKind = "incident"
)

// Marker is one pin on the map.
type Marker struct {
	Position   LatLng     `json:"position" yaml:"position"`
	Label      string     `json:"label" yaml:"label"`
	ColorKey   string     `json:"color_key" yaml:"color_key"`
	Kind       MarkerKind `json:"kind" yaml:"kind"`
	IncidentID int64      `json:"incident_id,omitempty" yaml:"incident_id,omitempty"`
	Sequence   int        `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Category   string     `json:"category,omitempty" yaml:"category,omitempty"`
	Severity   Severity   `json:"severity,omitempty" yaml:"severity,omitempty"`
	Status     Status     `json:"status,omitempty" yaml:"status,omitempty"`
	Place      string     `json:"place,omitempty" yaml:"place,omitempty"`
}

// MapModel is everything the map widget needs. It is rebuilt, never patched.
type MapModel struct {
	Markers  []Marker `json:"markers" yaml:"markers"`
	Bounds   []LatLng `json:"bounds" yaml:"bounds"`
	Polyline []LatLng `json:"polyline" yaml:"polyline"`

	// RoadPath is the server's road-following geometry, when it sent one.
	RoadPath []LatLng `json:"road_path" yaml:"road_path"`
}

// MapBuilder turns a route and the visible incidents into a MapModel.
// Build has no failure mode.
type MapBuilder struct {
	// Region, when set, hides incidents outside it.
	Region *BoundingBox
	// DefaultCenter is the viewport when no marker can be placed.
	DefaultCenter Coordinate
	Diagnostics   Diagnostics
}

// BuildMap uses a MapBuilder centered on the operating region.
func BuildMap(route *RouteModel, incidents []IncidentRecord, showRoute bool) MapModel {
	return MapBuilder{DefaultCenter: TaitaTavetaCentroid}.Build(route, incidents, showRoute)
}

// Build places the start marker (when route is non-nil), then one marker per
// incident with usable coordinates, in input order. Route stops are labelled
// by sequence and other incidents with UnsequencedLabel. The polyline runs
// start → stops and is drawn only when showRoute is set and the route has
// at least one stop.
func (b MapBuilder) Build(route *RouteModel, incidents []IncidentRecord, showRoute bool) MapModel {
	diag := orNop(b.Diagnostics)

	m := MapModel{
		Markers:  make([]Marker, 0, len(incidents)+1),
		Bounds:   make([]LatLng, 0, len(incidents)+1),
		Polyline: []LatLng{},
		RoadPath: []LatLng{},
	}

	if route != nil {
		m.Markers = append(m.Markers, Marker{
			Position: ToLatLng(route.Start),
			Label:    StartLabel,
			ColorKey: ColorStart,
			Kind:     MarkerStart,
			Place:    FormatCoordinate(route.Start),
		})
	}

	sequences := route.Sequences()
	for _, inc := range incidents {
		c, err := ParseCoordinate(inc.Coordinates, b.Region)
		if err != nil {
			diag.Record(Diagnostic{
				Kind:       DiagUnplacedIncident,
				IncidentID: inc.ID,
				Input:      inc.Coordinates,
				Reason:     ReasonFor(err),
				Detail:     err.Error(),
			})
			continue
		}

		mk := Marker{
			Position:   ToLatLng(c),
			Label:      UnsequencedLabel,
			ColorKey:   SeverityColorKey(inc.Severity),
			Kind:       MarkerIncident,
			IncidentID: inc.ID,
			Category:   inc.Category,
			Severity:   inc.Severity,
			Status:     inc.Status,
			Place:      inc.LocationDescription,
		}
		if seq, ok := sequences[inc.ID]; ok {
			mk.Label = strconv.Itoa(seq)
			mk.Sequence = seq
		}
		m.Markers = append(m.Markers, mk)
	}

	for _, mk := range m.Markers {
		m.Bounds = append(m.Bounds, mk.Position)
	}
	if len(m.Bounds) == 0 {
		m.Bounds = append(m.Bounds, ToLatLng(b.DefaultCenter))
	}

	if showRoute && route != nil && len(route.Stops) > 0 {
		m.Polyline = make([]LatLng, 0, len(route.Stops)+1)
		m.Polyline = append(m.Polyline, ToLatLng(route.Start))
		for _, s := range route.Stops {
			m.Polyline = append(m.Polyline, ToLatLng(s.Coordinate))
		}
	}
	return m
}

// CountUnplaced returns how many incidents cannot be drawn under region.
func CountUnplaced(incidents []IncidentRecord, region *BoundingBox) int {
	n := 0
	for _, inc := range incidents {
		if _, err := ParseCoordinate(inc.Coordinates, region); err != nil {
			n++
		}
	}
	return n
}
