package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawIncident is one incident object as decoded from the API, before any
// schema reconciliation. Numbers are json.Number when decoded by
// NormalizeIncidents.
type RawIncident map[string]any

// canonicalField names a field of IncidentRecord that is resolved through a
// fallback chain.
type canonicalField string

const (
	fieldID          canonicalField = "id"
	fieldCategory    canonicalField = "category"
	fieldStatus      canonicalField = "status"
	fieldSeverity    canonicalField = "severity"
	fieldLocation    canonicalField = "location"
	fieldCoordinates canonicalField = "coordinates"
	fieldCreatedAt   canonicalField = "created_at"
	fieldResponder   canonicalField = "responder"
	fieldDescription canonicalField = "description"
)

// sourceKeys lists, per canonical field, the upstream keys to try in order.
// The current-schema key comes first and the legacy key second. Supporting a
// new schema variant means appending a key here.
var sourceKeys = map[canonicalField][]string{
	fieldID:          {"case_id", "id", "incident_id"},
	fieldCategory:    {"emergency_type", "disaster_type", "type", "category"},
	fieldStatus:      {"case_status", "status", "state"},
	fieldSeverity:    {"priority_level", "severity", "priority"},
	fieldLocation:    {"village", "location_name", "address"},
	fieldCoordinates: {"location", "gps_coordinates", "coordinates"},
	fieldCreatedAt:   {"created_at", "reported_at", "timestamp"},
	fieldResponder:   {"assigned_responder_id", "assigned_to", "responder_id"},
	fieldDescription: {"description", "details"},
}

// timestampLayouts are tried in order. Zone-less layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NormalizeIncident reconciles one raw record into the canonical shape.
// It never fails: unresolved enums become Unknown, a missing timestamp is
// replaced with the current clock time and flagged, and optional fields stay
// empty. The input map is not modified.
func NormalizeIncident(raw RawIncident) IncidentRecord {
	rec := IncidentRecord{
		ID:                  resolveInt(raw, fieldID),
		Category:            resolveString(raw, fieldCategory),
		Severity:            ParseSeverity(resolveString(raw, fieldSeverity)),
		Status:              ParseStatus(resolveString(raw, fieldStatus)),
		LocationDescription: resolveString(raw, fieldLocation),
		Coordinates:         resolveText(raw, fieldCoordinates),
		Description:         resolveString(raw, fieldDescription),
	}
	if rec.Category == "" {
		rec.Category = Unknown
	}

	if id := resolveInt(raw, fieldResponder); id != 0 {
		rec.AssignedResponderID = &id
	}

	if ts, ok := resolveTime(raw, fieldCreatedAt); ok {
		rec.CreatedAt = ts
	} else {
		rec.CreatedAt = clock.Now().UTC()
		rec.CreatedAtInferred = true
	}
	return rec
}

// NormalizeIncidents decodes a JSON array of raw incidents and normalizes each.
// Only an undecodable array is an error; elements that are not objects yield
// an all-Unknown record so one bad element never drops the batch.
func NormalizeIncidents(data []byte) ([]IncidentRecord, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("decode incidents: %w", err)
	}
	return normalizeRawMessages(elems), nil
}

func normalizeRawMessages(elems []json.RawMessage) []IncidentRecord {
	out := make([]IncidentRecord, 0, len(elems))
	for _, elem := range elems {
		out = append(out, NormalizeIncident(decodeRawIncident(elem)))
	}
	return out
}

// decodeRawIncident decodes one element with json.Number preserved so large
// identifiers survive. Non-objects decode to an empty RawIncident.
func decodeRawIncident(elem json.RawMessage) RawIncident {
	dec := json.NewDecoder(bytes.NewReader(elem))
	dec.UseNumber()
	var raw RawIncident
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return RawIncident{}
	}
	return raw
}

// firstUsable walks the key chain and returns the first value conv accepts.
// A present value of the wrong shape does not end the chain; the next key is
// tried.
func firstUsable[T any](raw RawIncident, field canonicalField, conv func(any) (T, bool)) (T, bool) {
	for _, key := range sourceKeys[field] {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if out, ok := conv(v); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

func resolveString(raw RawIncident, field canonicalField) string {
	s, _ := firstUsable(raw, field, scalarText)
	return s
}

// resolveText only accepts JSON strings, for fields such as coordinates where
// a bare number is never meaningful.
func resolveText(raw RawIncident, field canonicalField) string {
	s, _ := firstUsable(raw, field, stringText)
	return s
}

// resolveInt accepts JSON numbers and numeric strings. Anything else is 0.
func resolveInt(raw RawIncident, field canonicalField) int64 {
	n, _ := firstUsable(raw, field, identifier)
	return n
}

func resolveTime(raw RawIncident, field canonicalField) (time.Time, bool) {
	return firstUsable(raw, field, timestamp)
}

func stringText(v any) (string, bool) {
	t, ok := v.(string)
	if !ok {
		return "", false
	}
	s := strings.TrimSpace(t)
	return s, s != ""
}

func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return stringText(t)
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// identifier converts v to a non-zero id.
func identifier(v any) (int64, bool) {
	var n int64
	switch t := v.(type) {
	case json.Number:
		var err error
		if n, err = t.Int64(); err != nil {
			n = floatToID(t.String())
		}
	case float64:
		n = wholeFloat(t)
	case int:
		n = int64(t)
	case int64:
		n = t
	case string:
		s := strings.TrimSpace(t)
		var err error
		if n, err = strconv.ParseInt(s, 10, 64); err != nil {
			n = floatToID(s)
		}
	}
	return n, n != 0
}

func floatToID(s string) int64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return wholeFloat(f)
}

// wholeFloat converts integral floats such as 12.0; fractional ids are rejected.
func wholeFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0
	}
	return int64(f)
}

// timestamp accepts the string layouts in timestampLayouts and positive Unix
// seconds.
func timestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		return parseTimestamp(t)
	case json.Number:
		if secs, err := t.Int64(); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC(), true
		}
	case float64:
		if t > 0 && !math.IsInf(t, 0) {
			return time.Unix(int64(t), 0).UTC(), true
		}
	}
	return time.Time{}, false
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
