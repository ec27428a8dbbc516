package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RoutePlan is the server's answer to a route calculation: where the
// responder starts and the order in which to visit incidents.
type RoutePlan struct {
	RouteID       int64           `json:"route_id,omitempty"`
	StartPoint    string          `json:"start_point_gps"`
	Order         []int64         `json:"route_order"`
	TotalDistance float64         `json:"total_distance,omitempty"` // meters
	TotalDuration float64         `json:"total_duration,omitempty"` // seconds
	Path          json.RawMessage `json:"route_path,omitempty"`
}

// Snapshot is the latest view of the data a map is rendered from.
type Snapshot struct {
	Incidents []IncidentRecord
	Route     *RoutePlan
	ShowRoute bool

	// Issues are recoverable problems found while decoding the wire form.
	// Render reports them with its own diagnostics.
	Issues []Diagnostic
}

// RouteSummary carries display-ready route totals.
type RouteSummary struct {
	RouteID  int64  `json:"route_id,omitempty" yaml:"route_id,omitempty"`
	Stops    int    `json:"stops" yaml:"stops"`
	Distance string `json:"distance,omitempty" yaml:"distance,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// RenderResult is the full output of one render. RouteError is set when a
// route was requested but its start point was unusable; the map is still
// produced without route.
type RenderResult struct {
	Map              MapModel      `json:"map" yaml:"map"`
	Route            *RouteModel   `json:"route,omitempty" yaml:"route,omitempty"`
	RouteError       string        `json:"route_error,omitempty" yaml:"route_error,omitempty"`
	Summary          *RouteSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	InvalidIncidents int           `json:"invalid_incidents" yaml:"invalid_incidents"`
}

// Renderer runs assemble → build over one normalized snapshot. It holds no
// state between calls, so identical snapshots render identically.
type Renderer struct {
	Region        *BoundingBox
	DefaultCenter Coordinate
	Diagnostics   Diagnostics
}

// NewRenderer returns a Renderer centered on the operating region.
func NewRenderer(region *BoundingBox, diag Diagnostics) Renderer {
	return Renderer{Region: region, DefaultCenter: TaitaTavetaCentroid, Diagnostics: diag}
}

// Render builds the map for s. It never fails; problems are reported to the
// Renderer's Diagnostics and surfaced in the result.
func (r Renderer) Render(s Snapshot) RenderResult {
	diag := orNop(r.Diagnostics)
	res := RenderResult{InvalidIncidents: CountUnplaced(s.Incidents, r.Region)}

	for _, issue := range s.Issues {
		diag.Record(issue)
	}
	for _, inc := range s.Incidents {
		if inc.CreatedAtInferred {
			diag.Record(Diagnostic{Kind: DiagInferredTimestamp, IncidentID: inc.ID})
		}
	}

	var route *RouteModel
	if s.Route != nil {
		asm := Assembler{Region: r.Region, Diagnostics: diag}
		var err error
		route, err = asm.Assemble(s.Route.StartPoint, s.Incidents, s.Route.Order)
		if err != nil {
			res.RouteError = err.Error()
		}
	}

	builder := MapBuilder{Region: r.Region, DefaultCenter: r.DefaultCenter, Diagnostics: diag}
	res.Map = builder.Build(route, s.Incidents, s.ShowRoute)

	if route != nil {
		res.Route = route
		res.Summary = &RouteSummary{
			RouteID:  s.Route.RouteID,
			Stops:    len(route.Stops),
			Distance: FormatDistance(s.Route.TotalDistance),
			Duration: FormatDuration(s.Route.TotalDuration),
		}
		if s.ShowRoute && len(route.Stops) > 0 {
			res.Map.RoadPath = roadPath(s.Route.Path, diag)
		}
	}
	return res
}

func roadPath(raw json.RawMessage, diag Diagnostics) []LatLng {
	coords, err := ParseRoutePath(raw)
	if err != nil {
		diag.Record(Diagnostic{Kind: DiagInvalidRoutePath, Detail: err.Error()})
		return []LatLng{}
	}
	out := make([]LatLng, 0, len(coords))
	for _, c := range coords {
		out = append(out, ToLatLng(c))
	}
	return out
}

// snapshotWire is the JSON input contract shared by HTTP and Kafka. Fields
// stay raw so one badly typed value is reported instead of failing the
// whole snapshot.
type snapshotWire struct {
	Incidents json.RawMessage `json:"incidents"`
	Route     json.RawMessage `json:"route"`
	ShowRoute json.RawMessage `json:"show_route"`
}

// routePlanWire tolerates the key spellings seen across backend versions.
type routePlanWire struct {
	RouteID       json.RawMessage `json:"route_id"`
	StartPointGPS json.RawMessage `json:"start_point_gps"`
	StartPoint    json.RawMessage `json:"start_point"`
	RouteOrder    json.RawMessage `json:"route_order"`
	CaseOrder     json.RawMessage `json:"case_order"`
	CaseIDs       json.RawMessage `json:"case_ids"`
	TotalDistance json.RawMessage `json:"total_distance"`
	TotalDuration json.RawMessage `json:"total_duration"`
	EstimatedTime json.RawMessage `json:"estimated_time"` // minutes
	RoutePath     json.RawMessage `json:"route_path"`
}

// DecodeSnapshot reads the wire form. Incidents are normalized; show_route
// defaults to true. Only a body that is not a JSON object is an error. Fields
// of the wrong type fall back to their zero value and are listed in
// Snapshot.Issues.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	var r wireReader
	s := Snapshot{
		Incidents: normalizeRawMessages(r.array("incidents", w.Incidents)),
		ShowRoute: r.flag("show_route", w.ShowRoute, true),
	}
	if present(w.Route) {
		var rw routePlanWire
		if err := json.Unmarshal(w.Route, &rw); err != nil {
			r.invalid("route", w.Route, "not an object")
		} else {
			s.Route = r.plan(&rw)
		}
	}
	s.Issues = r.issues
	return s, nil
}

// wireReader converts raw wire values, collecting a Diagnostic for each one
// it has to drop.
type wireReader struct {
	issues []Diagnostic
}

func (r *wireReader) invalid(field string, raw json.RawMessage, detail string) {
	r.issues = append(r.issues, Diagnostic{
		Kind:   DiagInvalidField,
		Input:  string(bytes.TrimSpace(raw)),
		Detail: field + ": " + detail,
	})
}

func (r *wireReader) plan(w *routePlanWire) *RoutePlan {
	p := &RoutePlan{
		StartPoint:    firstNonEmpty(r.text("route.start_point_gps", w.StartPointGPS), r.text("route.start_point", w.StartPoint)),
		TotalDistance: r.number("route.total_distance", w.TotalDistance),
		TotalDuration: r.number("route.total_duration", w.TotalDuration),
		Path:          w.RoutePath,
	}
	if present(w.RouteID) {
		if id, ok := identifier(looseValue(w.RouteID)); ok {
			p.RouteID = id
		} else {
			r.invalid("route.route_id", w.RouteID, "not a numeric id")
		}
	}
	if p.TotalDuration == 0 {
		p.TotalDuration = r.number("route.estimated_time", w.EstimatedTime) * 60
	}

	p.Order = []int64{}
	for _, candidate := range []struct {
		field string
		raw   json.RawMessage
	}{
		{"route.route_order", w.RouteOrder},
		{"route.case_order", w.CaseOrder},
		{"route.case_ids", w.CaseIDs},
	} {
		if elems := r.array(candidate.field, candidate.raw); len(elems) > 0 {
			p.Order = r.order(elems)
			break
		}
	}
	return p
}

// order keeps the usable incident ids. Entries that are not ids are reported
// as unresolved references, as an unknown id would be.
func (r *wireReader) order(elems []json.RawMessage) []int64 {
	ids := make([]int64, 0, len(elems))
	for _, elem := range elems {
		id, ok := identifier(looseValue(elem))
		if !ok {
			r.issues = append(r.issues, Diagnostic{
				Kind:   DiagUnresolvedRef,
				Input:  string(bytes.TrimSpace(elem)),
				Detail: "visit order entry is not an incident id",
			})
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (r *wireReader) array(field string, raw json.RawMessage) []json.RawMessage {
	if !present(raw) {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		r.invalid(field, raw, "not an array")
		return nil
	}
	return elems
}

func (r *wireReader) text(field string, raw json.RawMessage) string {
	if !present(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		r.invalid(field, raw, "not a string")
		return ""
	}
	return s
}

// number accepts JSON numbers and numeric strings. Anything else, including
// negative and non-finite values, becomes 0.
func (r *wireReader) number(field string, raw json.RawMessage) float64 {
	if !present(raw) {
		return 0
	}
	var f float64
	var err error
	switch v := looseValue(raw).(type) {
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		err = errors.New("unsupported type")
	}
	if err != nil || !finite(f) || f < 0 {
		r.invalid(field, raw, "not a non-negative number")
		return 0
	}
	return f
}

func (r *wireReader) flag(field string, raw json.RawMessage, def bool) bool {
	if !present(raw) {
		return def
	}
	switch v := looseValue(raw).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	r.invalid(field, raw, "not a boolean")
	return def
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// looseValue decodes raw with numbers kept as json.Number. Invalid input
// yields nil.
func looseValue(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// FormatDistance renders meters as "850 m" below a kilometer and "5.23 km"
// above. Zero renders as "".
func FormatDistance(meters float64) string {
	if meters <= 0 || !finite(meters) {
		return ""
	}
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatDuration renders seconds as "15m" or "1h 5m". Zero renders as "".
func FormatDuration(seconds float64) string {
	if seconds <= 0 || !finite(seconds) {
		return ""
	}
	total := int(math.Floor(seconds))
	hours := total / 3600
	minutes := (total % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
