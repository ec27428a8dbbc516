package domain

// DiagnosticKind classifies a recoverable data problem found while building a map.
type DiagnosticKind string

const (
	DiagExcludedStop       DiagnosticKind = "excluded_stop"
	DiagUnresolvedRef      DiagnosticKind = "unresolved_reference"
	DiagDuplicateRef       DiagnosticKind = "duplicate_reference"
	DiagInvalidStart       DiagnosticKind = "invalid_start"
	DiagUnplacedIncident   DiagnosticKind = "unplaced_incident"
	DiagInvalidRoutePath   DiagnosticKind = "invalid_route_path"
	DiagInferredTimestamp  DiagnosticKind = "inferred_timestamp"
	DiagGeocodeUnavailable DiagnosticKind = "geocode_unavailable"
	DiagInvalidField       DiagnosticKind = "invalid_field"
)

// Diagnostic is one recoverable condition. IncidentID is zero when the
// condition is not tied to an incident.
type Diagnostic struct {
	Kind       DiagnosticKind  `json:"kind" yaml:"kind"`
	IncidentID int64           `json:"incident_id,omitempty" yaml:"incident_id,omitempty"`
	Reason     ExclusionReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Input      string          `json:"input,omitempty" yaml:"input,omitempty"`
	Detail     string          `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Diagnostics receives recoverable conditions. Implementations decide whether
// to log, count or collect them; callers never depend on the outcome.
type Diagnostics interface {
	Record(d Diagnostic)
}

// NopDiagnostics discards everything.
type NopDiagnostics struct{}

func (NopDiagnostics) Record(Diagnostic) {}

// DiagnosticLog collects entries in order. It is meant for a single render
// and is not safe for concurrent use.
type DiagnosticLog struct {
	Entries []Diagnostic
}

func (l *DiagnosticLog) Record(d Diagnostic) {
	l.Entries = append(l.Entries, d)
}

// Count returns how many entries have the given kind.
func (l *DiagnosticLog) Count(kind DiagnosticKind) int {
	n := 0
	for _, d := range l.Entries {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// TeeDiagnostics forwards every entry to each non-nil target.
func TeeDiagnostics(targets ...Diagnostics) Diagnostics {
	out := make(teeDiagnostics, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

type teeDiagnostics []Diagnostics

func (t teeDiagnostics) Record(d Diagnostic) {
	for _, target := range t {
		target.Record(d)
	}
}

func orNop(d Diagnostics) Diagnostics {
	if d == nil {
		return NopDiagnostics{}
	}
	return d
}
