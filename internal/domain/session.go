package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Severity of a compiler diagnostic
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is a single compiler message reported with a unit finish
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Unit is one compiled unit (module/assembly) within an iteration.
// A zero End means the unit is still compiling.
type Unit struct {
	ID          string
	Start       time.Time
	End         time.Time
	Synthesized bool // Start was estimated rather than observed
	Errors      int
	Warnings    int
}

// Running reports whether the unit has not finished yet
func (u Unit) Running() bool {
	return u.End.IsZero()
}

// EndOr returns the end time, or now while the unit is still running.
// The result is never before Start.
func (u Unit) EndOr(now time.Time) time.Time {
	end := u.End
	if end.IsZero() {
		end = now
	}
	if end.Before(u.Start) {
		return u.Start
	}
	return end
}

// Duration returns the unit span, using now for running units
func (u Unit) Duration(now time.Time) time.Duration {
	return u.EndOr(now).Sub(u.Start)
}

// Phase is the derived state of an iteration
type Phase string

const (
	PhaseNotStarted      Phase = "not_started"
	PhaseCompiling       Phase = "compiling"
	PhaseCompilationDone Phase = "compilation_done"
	PhaseReloadPending   Phase = "reload_pending"
	PhaseReloadDone      Phase = "reload_done"
)

// Iteration is one compile pass. Zero timestamps are unset.
type Iteration struct {
	ID                  string
	CompilationStarted  time.Time
	CompilationFinished time.Time
	BeforeReload        time.Time
	AfterReload         time.Time
	Units               []Unit
	HasTrace            bool // unit timing comes from a trace artifact

	// ResumedAt is the compilation start of the latest continuation, unset
	// while the iteration has a single pass.
	ResumedAt time.Time
	// PriorReload sums the reload spans of passes before the latest continuation
	PriorReload time.Duration
}

// NewIteration creates an empty iteration with a fresh ID
func NewIteration(started time.Time) Iteration {
	return Iteration{
		ID:                 uuid.NewString(),
		CompilationStarted: started,
	}
}

// Phase derives the iteration state from which timestamps are set
func (it Iteration) Phase() Phase {
	switch {
	case !it.AfterReload.IsZero():
		return PhaseReloadDone
	case !it.BeforeReload.IsZero():
		return PhaseReloadPending
	case !it.CompilationFinished.IsZero():
		return PhaseCompilationDone
	case !it.CompilationStarted.IsZero() || len(it.Units) > 0:
		return PhaseCompiling
	default:
		return PhaseNotStarted
	}
}

// Empty reports whether nothing has been recorded into the iteration
func (it Iteration) Empty() bool {
	return it.Phase() == PhaseNotStarted
}

// LastUnitIndex returns the index of the most recent unit with the given id, or -1
func (it Iteration) LastUnitIndex(id string) int {
	_, idx, ok := lo.FindLastIndexOf(it.Units, func(u Unit) bool { return u.ID == id })
	if !ok {
		return -1
	}
	return idx
}

// AllUnitsFinished reports whether at least one unit exists and none are running
func (it Iteration) AllUnitsFinished() bool {
	return len(it.Units) > 0 && lo.NoneBy(it.Units, Unit.Running)
}

// UnitBounds returns the earliest unit start and the latest unit end.
// Running units count as ending at now.
func (it Iteration) UnitBounds(now time.Time) (first, last time.Time, ok bool) {
	if len(it.Units) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first = lo.MinBy(it.Units, func(a, b Unit) bool { return a.Start.Before(b.Start) }).Start
	last = lo.MaxBy(it.Units, func(a, b Unit) bool { return a.EndOr(now).After(b.EndOr(now)) }).EndOr(now)
	return first, last, true
}

// PassStart is where the latest pass of the iteration began
func (it Iteration) PassStart() time.Time {
	if !it.ResumedAt.IsZero() {
		return it.ResumedAt
	}
	return it.CompilationStarted
}

// Resume turns the iteration back into compiling for a continuation pass
// started at now. The finished reload is carried in PriorReload.
func (it *Iteration) Resume(now time.Time) {
	it.PriorReload = it.ReloadSpan()
	it.ResumedAt = now
	it.CompilationFinished = time.Time{}
	it.BeforeReload = time.Time{}
	it.AfterReload = time.Time{}
}

// LatestMark returns the most advanced phase timestamp that is set. An
// iteration whose units all finished without a compilation finish (a failed
// pass that never reloads) ends at its last unit; otherwise an open iteration
// runs until now.
func (it Iteration) LatestMark(now time.Time) time.Time {
	switch {
	case !it.AfterReload.IsZero():
		return it.AfterReload
	case !it.CompilationFinished.IsZero():
		return it.CompilationFinished
	case it.AllUnitsFinished():
		_, last, _ := it.UnitBounds(now)
		return last
	default:
		return now
	}
}

// Span is the elapsed time from compilation start to the latest mark
func (it Iteration) Span(now time.Time) time.Duration {
	if it.CompilationStarted.IsZero() {
		return 0
	}
	return it.LatestMark(now).Sub(it.CompilationStarted)
}

// ReloadSpan is afterReload - beforeReload plus the reloads of earlier
// passes. The current reload counts 0 while either timestamp is unset.
func (it Iteration) ReloadSpan() time.Duration {
	return it.PriorReload + it.LastReloadSpan()
}

// LastReloadSpan is afterReload - beforeReload of the latest pass only
func (it Iteration) LastReloadSpan() time.Duration {
	if it.BeforeReload.IsZero() || it.AfterReload.IsZero() {
		return 0
	}
	return it.AfterReload.Sub(it.BeforeReload)
}

// Clone returns a deep copy
func (it Iteration) Clone() Iteration {
	out := it
	out.Units = append([]Unit(nil), it.Units...)
	return out
}

// Session is the ordered history of iterations; the last one is current
type Session struct {
	Iterations []Iteration
}

// Current returns the current iteration, or nil when nothing has been observed
func (s *Session) Current() *Iteration {
	if s == nil || len(s.Iterations) == 0 {
		return nil
	}
	return &s.Iterations[len(s.Iterations)-1]
}

// Find returns the iteration with the given ID
func (s *Session) Find(id string) (*Iteration, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Iterations {
		if s.Iterations[i].ID == id {
			return &s.Iterations[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return &Session{}
	}
	return &Session{
		Iterations: lo.Map(s.Iterations, func(it Iteration, _ int) Iteration { return it.Clone() }),
	}
}
