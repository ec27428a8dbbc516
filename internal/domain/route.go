package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidStart is returned when the route start point cannot be parsed.
// No route can be drawn without it.
var ErrInvalidStart = errors.New("invalid route start point")

// RouteStop is one renderable visit. Sequence is dense and 1-based.
type RouteStop struct {
	IncidentID int64      `json:"incident_id" yaml:"incident_id"`
	Coordinate Coordinate `json:"coordinate" yaml:"coordinate"`
	Sequence   int        `json:"sequence" yaml:"sequence"`
}

// ExcludedStop is an incident the visit order referenced but that cannot be
// placed on the map. It is kept for diagnostic display.
type ExcludedStop struct {
	IncidentID  int64           `json:"incident_id" yaml:"incident_id"`
	Coordinates string          `json:"coordinates" yaml:"coordinates"`
	Reason      ExclusionReason `json:"reason" yaml:"reason"`
	Detail      string          `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// RouteModel is the renderable form of a server-computed visit order.
type RouteModel struct {
	Start    Coordinate     `json:"start" yaml:"start"`
	Stops    []RouteStop    `json:"stops" yaml:"stops"`
	Excluded []ExcludedStop `json:"excluded" yaml:"excluded"`
}

// StopSequence returns the 1-based position of id in the route, if present.
func (r *RouteModel) StopSequence(id int64) (int, bool) {
	if r == nil {
		return 0, false
	}
	for _, s := range r.Stops {
		if s.IncidentID == id {
			return s.Sequence, true
		}
	}
	return 0, false
}

// Sequences indexes stop sequence by incident id. A nil route yields an
// empty map.
func (r *RouteModel) Sequences() map[int64]int {
	if r == nil {
		return map[int64]int{}
	}
	seq := make(map[int64]int, len(r.Stops))
	for _, s := range r.Stops {
		if _, dup := seq[s.IncidentID]; !dup {
			seq[s.IncidentID] = s.Sequence
		}
	}
	return seq
}

// Assembler rebuilds the ordered path from a visit order. The zero value
// accepts any finite coordinate and discards diagnostics.
type Assembler struct {
	// Region, when set, rejects incident and start coordinates outside it.
	Region      *BoundingBox
	Diagnostics Diagnostics
}

// Assemble uses the zero Assembler.
func Assemble(start string, incidents []IncidentRecord, order []int64) (*RouteModel, error) {
	return Assembler{}.Assemble(start, incidents, order)
}

// Assemble walks order and emits a stop for each referenced incident whose
// coordinates parse. The order is authoritative: it is never sorted or
// optimized here.
//
// Identifiers missing from incidents are skipped. So is every repeat of an
// identifier already consumed, so each incident is visited at most once.
// Incidents with bad coordinates land in Excluded. Only an unparseable start
// is an error, wrapping ErrInvalidStart; no RouteModel is returned then.
func (a Assembler) Assemble(start string, incidents []IncidentRecord, order []int64) (*RouteModel, error) {
	diag := orNop(a.Diagnostics)

	origin, err := ParseCoordinate(start, a.Region)
	if err != nil {
		diag.Record(Diagnostic{Kind: DiagInvalidStart, Input: start, Reason: ReasonFor(err), Detail: err.Error()})
		return nil, fmt.Errorf("assemble route: %w: %w", ErrInvalidStart, err)
	}

	byID := make(map[int64]IncidentRecord, len(incidents))
	for _, inc := range incidents {
		if _, dup := byID[inc.ID]; !dup {
			byID[inc.ID] = inc
		}
	}

	route := &RouteModel{
		Start:    origin,
		Stops:    make([]RouteStop, 0, len(order)),
		Excluded: []ExcludedStop{},
	}
	consumed := make(map[int64]bool, len(order))

	for _, id := range order {
		if consumed[id] {
			diag.Record(Diagnostic{Kind: DiagDuplicateRef, IncidentID: id, Detail: "identifier already visited"})
			continue
		}
		inc, ok := byID[id]
		if !ok {
			diag.Record(Diagnostic{Kind: DiagUnresolvedRef, IncidentID: id, Detail: "incident " + strconv.FormatInt(id, 10) + " not in snapshot"})
			continue
		}
		consumed[id] = true

		c, err := ParseCoordinate(inc.Coordinates, a.Region)
		if err != nil {
			ex := ExcludedStop{IncidentID: id, Coordinates: inc.Coordinates, Reason: ReasonFor(err), Detail: err.Error()}
			route.Excluded = append(route.Excluded, ex)
			diag.Record(Diagnostic{Kind: DiagExcludedStop, IncidentID: id, Input: inc.Coordinates, Reason: ex.Reason, Detail: ex.Detail})
			continue
		}

		route.Stops = append(route.Stops, RouteStop{
			IncidentID: id,
			Coordinate: c,
			Sequence:   len(route.Stops) + 1,
		})
	}
	return route, nil
}
