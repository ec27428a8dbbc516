package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills the Place of incident markers that arrived
// without a location description. The input model is not modified.
//
// Geocoding is best effort: with a nil geocoder the model is returned as is,
// and a failed lookup leaves that marker's Place empty and records
// DiagGeocodeUnavailable. Lookups stop once ctx is done.
func EnrichWithGeocoding(ctx context.Context, m MapModel, geocoder Geocoder, diag Diagnostics, logger *slog.Logger) MapModel {
	if geocoder == nil {
		return m
	}
	diag = orNop(diag)

	markers := make([]Marker, len(m.Markers))
	copy(markers, m.Markers)

	for i := range markers {
		mk := &markers[i]
		if mk.Kind != MarkerIncident || mk.Place != "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		c := mk.Position.Coordinate()
		place, err := geocoder.ReverseGeocode(ctx, c)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"incident_id", mk.IncidentID,
				"coordinate", c.String(),
				"error", err,
			)
			diag.Record(Diagnostic{
				Kind:       DiagGeocodeUnavailable,
				IncidentID: mk.IncidentID,
				Input:      c.String(),
				Detail:     err.Error(),
			})
			continue
		}

		switch {
		case place.Name != "":
			mk.Place = place.Name
		case place.FormattedAddress != "":
			mk.Place = place.FormattedAddress
		}
	}

	m.Markers = markers
	return m
}
