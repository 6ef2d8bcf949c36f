package timeline

import (
	"time"

	"go.uber.org/zap"
)

// AnomalyKind classifies a recovered inconsistency
type AnomalyKind string

const (
	// AnomalyProtocolViolation is a finish without start, or the reverse
	AnomalyProtocolViolation AnomalyKind = "protocol_violation"
	// AnomalyFormatChanged is a trace artifact that no longer parses as expected
	AnomalyFormatChanged AnomalyKind = "artifact_format_changed"
	// AnomalyImplausibleDuration is an iteration span past the sanity threshold
	AnomalyImplausibleDuration AnomalyKind = "implausible_duration"
	// AnomalyStorageCorruption is a stored session that failed to decode
	AnomalyStorageCorruption AnomalyKind = "storage_corruption"
)

// Anomaly describes one recovered problem. Nothing is ever returned to the
// hook caller; anomalies are logged, counted and passed to OnAnomaly.
type Anomaly struct {
	Kind      AnomalyKind `json:"kind"`
	Iteration string      `json:"iteration,omitempty"`
	Unit      string      `json:"unit,omitempty"`
	Detail    string      `json:"detail"`
	At        time.Time   `json:"at"`
}

func (r *Recorder) report(a Anomaly) {
	r.anomalies.Add(1)

	fields := []zap.Field{
		zap.String("kind", string(a.Kind)),
		zap.String("iteration", a.Iteration),
		zap.String("reason", a.Detail),
	}
	if a.Unit != "" {
		fields = append(fields, zap.String("unit", a.Unit))
	}
	if a.Kind == AnomalyFormatChanged {
		r.log.Error("trace artifact format changed", fields...)
	} else {
		r.log.Warn("recovered timeline anomaly", fields...)
	}

	if r.opts.OnAnomaly != nil {
		r.opts.OnAnomaly(a)
	}
}
