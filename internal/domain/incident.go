package domain

import (
	"strings"
	"time"
)

// Unknown is the sentinel for enum fields that could not be resolved.
const Unknown = "Unknown"

// Severity is the canonical incident priority.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
	SeverityUnknown  Severity = Unknown
)

// Status is the canonical incident lifecycle state.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
	StatusUnknown    Status = Unknown
)

var severityAliases = map[string]Severity{
	"low":      SeverityLow,
	"medium":   SeverityMedium,
	"moderate": SeverityMedium,
	"high":     SeverityHigh,
	"critical": SeverityCritical,
}

var statusAliases = map[string]Status{
	"pending":    StatusPending,
	"open":       StatusPending,
	"assigned":   StatusAssigned,
	"inprogress": StatusInProgress,
	"resolved":   StatusResolved,
	"closed":     StatusResolved,
}

// ParseSeverity maps upstream spellings ("HIGH", "high", "High") onto a Severity.
// Anything unrecognized is SeverityUnknown.
func ParseSeverity(s string) Severity {
	if v, ok := severityAliases[enumKey(s)]; ok {
		return v
	}
	return SeverityUnknown
}

// ParseStatus maps upstream spellings ("IN_PROGRESS", "in progress") onto a Status.
// Anything unrecognized is StatusUnknown.
func ParseStatus(s string) Status {
	if v, ok := statusAliases[enumKey(s)]; ok {
		return v
	}
	return StatusUnknown
}

// enumKey lowercases s and drops separators so IN_PROGRESS, in-progress and
// InProgress compare equal.
func enumKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// IncidentRecord is the canonical incident shape regardless of which API
// schema produced it. Records are values; a re-fetch replaces them.
type IncidentRecord struct {
	ID                  int64     `json:"id"`
	Category            string    `json:"category"`
	Severity            Severity  `json:"severity"`
	Status              Status    `json:"status"`
	LocationDescription string    `json:"location_description,omitempty"`
	Coordinates         string    `json:"coordinates"`
	Description         string    `json:"description,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	AssignedResponderID *int64    `json:"assigned_responder_id,omitempty"`

	// CreatedAtInferred is set when CreatedAt was substituted with the
	// normalization time because the source carried no usable timestamp.
	CreatedAtInferred bool `json:"created_at_inferred,omitempty"`
}
