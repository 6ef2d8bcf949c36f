// Package reconcile maps trace-relative microsecond timestamps onto the
// wall clock used by the recorder.
package reconcile

import (
	"errors"
	"time"

	"github.com/vburojevic/buildtl/internal/domain"
)

// ErrNoAnchor is returned when neither wall-clock phase boundary is known
var ErrNoAnchor = errors.New("no wall-clock compilation boundary to anchor the trace on")

// Window is the compilation phase as observed on the wall clock
type Window struct {
	Started  time.Time
	Finished time.Time
}

// Mapping converts trace timestamps (µs, arbitrary origin) to absolute time
type Mapping struct {
	origin time.Time // absolute time of the first trace timestamp
	first  int64
	drift  time.Duration
}

// New builds a mapping for a trace whose timestamps span [first, last].
//
// When the wall clock saw a longer compilation than the trace reports, the
// difference is placed before the first trace event; it is never negative.
// Without a known start, the trace end is aligned on the observed finish.
func New(first, last int64, wall Window) (Mapping, error) {
	traceSpan := micros(max(last-first, 0))
	switch {
	case !wall.Started.IsZero():
		var drift time.Duration
		if !wall.Finished.IsZero() {
			drift = max(wall.Finished.Sub(wall.Started)-traceSpan, 0)
		}
		return Mapping{origin: wall.Started.Add(drift), first: first, drift: drift}, nil
	case !wall.Finished.IsZero():
		return Mapping{origin: wall.Finished.Add(-traceSpan), first: first}, nil
	default:
		return Mapping{}, ErrNoAnchor
	}
}

// At returns the absolute time of trace timestamp ts
func (m Mapping) At(ts int64) time.Time {
	return m.origin.Add(micros(ts - m.first))
}

// Span maps a trace event to absolute start and end. Negative durations clamp to zero.
func (m Mapping) Span(ts, dur int64) (start, end time.Time) {
	start = m.At(ts)
	return start, start.Add(micros(max(dur, 0)))
}

// Drift is the leading offset attributed to time the trace did not capture
func (m Mapping) Drift() time.Duration {
	return m.drift
}

// Widen moves the iteration's compilation boundaries outward so they enclose
// every unit: the trace is more precise than the host's phase events.
// Running units are ignored for the finish boundary.
func Widen(it *domain.Iteration) {
	for _, u := range it.Units {
		if !u.Start.IsZero() && (it.CompilationStarted.IsZero() || u.Start.Before(it.CompilationStarted)) {
			it.CompilationStarted = u.Start
		}
		if !u.End.IsZero() && (it.CompilationFinished.IsZero() || u.End.After(it.CompilationFinished)) {
			it.CompilationFinished = u.End
		}
	}
}

func micros(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
