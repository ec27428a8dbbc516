package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incident(id int64, coords string) IncidentRecord {
	return IncidentRecord{ID: id, Coordinates: coords, Category: "Flood", Severity: SeverityHigh, Status: StatusPending}
}

func TestAssemble_ExcludesBadCoordinates(t *testing.T) {
	incidents := []IncidentRecord{incident(1, "38.0,-3.5"), incident(2, "bad")}

	route, err := Assemble("38.37,-3.50", incidents, []int64{2, 1})
	require.NoError(t, err)
	require.NotNil(t, route)

	require.Len(t, route.Stops, 1)
	assert.Equal(t, RouteStop{IncidentID: 1, Coordinate: Coordinate{Lon: 38.0, Lat: -3.5}, Sequence: 1}, route.Stops[0])

	require.Len(t, route.Excluded, 1)
	assert.Equal(t, int64(2), route.Excluded[0].IncidentID)
	assert.Equal(t, "bad", route.Excluded[0].Coordinates)
	assert.Equal(t, ReasonMalformed, route.Excluded[0].Reason)
}

func TestAssemble_InvalidStart(t *testing.T) {
	var diag DiagnosticLog
	asm := Assembler{Diagnostics: &diag}

	route, err := asm.Assemble("not-a-point", []IncidentRecord{incident(1, "38.0,-3.5")}, []int64{1})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStart)
	assert.ErrorIs(t, err, ErrMalformedCoordinate)
	assert.Nil(t, route)
	assert.Equal(t, 1, diag.Count(DiagInvalidStart))
}

func TestAssemble_PreservesServerOrder(t *testing.T) {
	incidents := []IncidentRecord{
		incident(1, "38.1,-3.1"),
		incident(2, "38.2,-3.2"),
		incident(3, "38.3,-3.3"),
	}

	route, err := Assemble("38.0,-3.0", incidents, []int64{3, 1, 2})
	require.NoError(t, err)

	ids := make([]int64, 0, len(route.Stops))
	for i, s := range route.Stops {
		ids = append(ids, s.IncidentID)
		assert.Equal(t, i+1, s.Sequence)
	}
	assert.Equal(t, []int64{3, 1, 2}, ids)
}

func TestAssemble_SkipsUnresolvedReferences(t *testing.T) {
	var diag DiagnosticLog
	asm := Assembler{Diagnostics: &diag}

	route, err := asm.Assemble("38.0,-3.0", []IncidentRecord{incident(1, "38.1,-3.1")}, []int64{99, 1})
	require.NoError(t, err)

	require.Len(t, route.Stops, 1)
	assert.Equal(t, int64(1), route.Stops[0].IncidentID)
	assert.Equal(t, 1, route.Stops[0].Sequence)
	assert.Empty(t, route.Excluded)
	require.Equal(t, 1, diag.Count(DiagUnresolvedRef))
	assert.Equal(t, int64(99), diag.Entries[0].IncidentID)
}

func TestAssemble_DuplicateFirstOccurrenceWins(t *testing.T) {
	var diag DiagnosticLog
	asm := Assembler{Diagnostics: &diag}
	incidents := []IncidentRecord{incident(1, "38.1,-3.1"), incident(2, "38.2,-3.2")}

	route, err := asm.Assemble("38.0,-3.0", incidents, []int64{1, 2, 1})
	require.NoError(t, err)

	require.Len(t, route.Stops, 2)
	assert.Equal(t, int64(1), route.Stops[0].IncidentID)
	assert.Equal(t, int64(2), route.Stops[1].IncidentID)
	assert.Equal(t, 1, diag.Count(DiagDuplicateRef))
}

func TestAssemble_DuplicateOfExcludedIsNotRetried(t *testing.T) {
	route, err := Assemble("38.0,-3.0", []IncidentRecord{incident(1, "bad")}, []int64{1, 1})
	require.NoError(t, err)

	assert.Empty(t, route.Stops)
	assert.Len(t, route.Excluded, 1)
}

func TestAssemble_RegionEnforced(t *testing.T) {
	region := TaitaTavetaRegion
	asm := Assembler{Region: &region}
	incidents := []IncidentRecord{incident(1, "36.8219,-1.2921"), incident(2, "38.3736,-3.5025")}

	route, err := asm.Assemble("38.2167,-3.3167", incidents, []int64{1, 2})
	require.NoError(t, err)

	require.Len(t, route.Stops, 1)
	assert.Equal(t, int64(2), route.Stops[0].IncidentID)
	require.Len(t, route.Excluded, 1)
	assert.Equal(t, ReasonOutOfRegion, route.Excluded[0].Reason)

	_, err = asm.Assemble("36.8219,-1.2921", incidents, []int64{2})
	assert.ErrorIs(t, err, ErrInvalidStart)
	assert.ErrorIs(t, err, ErrOutOfRegion)
}

func TestAssemble_EmptyOrder(t *testing.T) {
	route, err := Assemble("38.0,-3.0", nil, nil)
	require.NoError(t, err)

	assert.NotNil(t, route.Stops)
	assert.NotNil(t, route.Excluded)
	assert.Empty(t, route.Stops)
	assert.Equal(t, Coordinate{Lon: 38.0, Lat: -3.0}, route.Start)
}

func TestRouteModel_StopSequence(t *testing.T) {
	var nilRoute *RouteModel
	_, ok := nilRoute.StopSequence(1)
	assert.False(t, ok)

	route := &RouteModel{Stops: []RouteStop{{IncidentID: 5, Sequence: 1}, {IncidentID: 3, Sequence: 2}}}
	seq, ok := route.StopSequence(3)
	assert.True(t, ok)
	assert.Equal(t, 2, seq)
}

func TestRouteModel_Sequences(t *testing.T) {
	var nilRoute *RouteModel
	assert.Empty(t, nilRoute.Sequences())

	route := &RouteModel{Stops: []RouteStop{{IncidentID: 5, Sequence: 1}, {IncidentID: 3, Sequence: 2}}}
	assert.Equal(t, map[int64]int{5: 1, 3: 2}, route.Sequences())
}
