package observability

import (
	"log/slog"

	"github.com/couchcryptid/response-map-service/internal/domain"
)

// DiagnosticsRecorder logs each diagnostic at debug level and counts it by kind.
// It is safe for concurrent use.
type DiagnosticsRecorder struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewDiagnosticsRecorder returns a recorder. A nil metrics disables counting.
func NewDiagnosticsRecorder(logger *slog.Logger, metrics *Metrics) *DiagnosticsRecorder {
	return &DiagnosticsRecorder{logger: logger, metrics: metrics}
}

func (r *DiagnosticsRecorder) Record(d domain.Diagnostic) {
	if r.metrics != nil {
		r.metrics.Diagnostics.WithLabelValues(string(d.Kind)).Inc()
	}

	attrs := []any{"kind", string(d.Kind)}
	if d.IncidentID != 0 {
		attrs = append(attrs, "incident_id", d.IncidentID)
	}
	if d.Reason != "" {
		attrs = append(attrs, "reason", string(d.Reason))
	}
	if d.Input != "" {
		attrs = append(attrs, "input", d.Input)
	}
	if d.Detail != "" {
		attrs = append(attrs, "detail", d.Detail)
	}
	r.logger.Debug("render diagnostic", attrs...)
}
