package timeline

import (
	"time"

	"github.com/samber/lo"

	"github.com/vburojevic/buildtl/internal/domain"
)

// Report aggregates timings across a session
type Report struct {
	Iterations  int           `json:"iterations"`
	Units       int           `json:"units"`
	Errors      int           `json:"errors"`
	Warnings    int           `json:"warnings"`
	Total       time.Duration `json:"total"`       // compilation start to reload end, per iteration
	Compilation time.Duration `json:"compilation"` // compilation start to finish
	UnitSpan    time.Duration `json:"unit_span"`   // first unit start to last unit end
	Reload      time.Duration `json:"reload"`
	Running     bool          `json:"running"`
	Traced      int           `json:"traced"`
}

// Summarize computes a report over every iteration of s. Open phases are
// measured up to now.
func Summarize(s *domain.Session, now time.Time) Report {
	var r Report
	if s == nil {
		return r
	}
	for _, it := range s.Iterations {
		if it.Empty() {
			continue
		}
		r.Iterations++
		r.Units += len(it.Units)
		r.Errors += lo.SumBy(it.Units, func(u domain.Unit) int { return u.Errors })
		r.Warnings += lo.SumBy(it.Units, func(u domain.Unit) int { return u.Warnings })
		if it.HasTrace {
			r.Traced++
		}
		if lo.SomeBy(it.Units, domain.Unit.Running) || it.Phase() == domain.PhaseCompiling {
			r.Running = true
		}

		r.Total += it.Span(now)
		if !it.CompilationStarted.IsZero() {
			end := it.CompilationFinished
			if end.IsZero() {
				end = now
			}
			r.Compilation += max(end.Sub(it.CompilationStarted), 0)
		}
		if first, last, ok := it.UnitBounds(now); ok {
			r.UnitSpan += max(last.Sub(first), 0)
		}
		r.Reload += it.ReloadSpan()
	}
	return r
}

// Report summarizes the published snapshot
func (r *Recorder) Report() Report {
	return Summarize(r.Snapshot(), r.Now())
}
