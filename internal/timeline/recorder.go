package timeline

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/buildtl/internal/domain"
	"github.com/vburojevic/buildtl/internal/store"
	"github.com/vburojevic/buildtl/internal/trace"
)

// Recorder turns build hook events into a persisted session of iterations.
// Hook methods never fail: inconsistencies are recovered and reported as
// anomalies. Readers get immutable snapshots and never block on writers
// longer than a pointer load.
type Recorder struct {
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	session *domain.Session // writer's copy, nil until loaded

	published atomic.Pointer[domain.Session]
	locked    atomic.Bool
	suspended atomic.Bool
	anomalies atomic.Int64
}

// NewRecorder creates a recorder. The session is loaded from storage lazily.
func NewRecorder(opts Options) *Recorder {
	opts = opts.withDefaults()
	return &Recorder{
		opts: opts,
		log:  opts.Logger,
	}
}

// CompilationStarted records the start of a compile pass. A start shortly
// after the previous reload continues the current iteration.
func (r *Recorder) CompilationStarted() {
	r.mutate("compilation_started", func(s *domain.Session, now time.Time) bool {
		r.startPass(s, now)
		return true
	})
}

// CompilationFinished records the end of compilation and merges the trace
// artifact when one is configured.
func (r *Recorder) CompilationFinished() {
	r.mutate("compilation_finished", func(s *domain.Session, now time.Time) bool {
		cur := s.Current()
		if cur == nil || cur.Empty() {
			r.violation(cur, "", "compilation finished without a start", now)
			return false
		}
		end := now
		if !cur.CompilationStarted.IsZero() && end.Before(cur.CompilationStarted) {
			end = cur.CompilationStarted
		}
		r.finishCompilation(cur, end)
		return true
	})
}

// UnitStarted records the start of one unit. A duplicate start of a unit that
// is still compiling is ignored.
func (r *Recorder) UnitStarted(id string) {
	r.mutate("unit_started", func(s *domain.Session, now time.Time) bool {
		cur, opened := r.openFor(s, now)
		if idx := cur.LastUnitIndex(id); idx >= 0 && cur.Units[idx].Running() {
			r.log.Debug("ignoring duplicate unit start", zap.String("unit", id))
			return opened
		}
		start := now
		if start.Before(cur.CompilationStarted) {
			start = cur.CompilationStarted
		}
		cur.Units = append(cur.Units, domain.Unit{ID: id, Start: start})
		return true
	})
}

// UnitFinished records the end of one unit along with its diagnostics
func (r *Recorder) UnitFinished(id string, diags []domain.Diagnostic) {
	r.mutate("unit_finished", func(s *domain.Session, now time.Time) bool {
		cur := s.Current()
		idx := -1
		if cur != nil {
			idx = cur.LastUnitIndex(id)
		}

		switch {
		case idx >= 0 && cur.Units[idx].Running():
		case r.opts.Pipeline == PipelineFinishOnly:
			cur, _ = r.openFor(s, now)
			cur.Units = append(cur.Units, domain.Unit{
				ID:          id,
				Start:       estimatedStart(cur, now),
				Synthesized: true,
			})
			idx = len(cur.Units) - 1
		case idx >= 0:
			r.violation(cur, id, "unit finished twice", now)
			return false
		default:
			r.violation(cur, id, "unit finished without a start", now)
			return false
		}

		u := &cur.Units[idx]
		u.End = now
		if u.End.Before(u.Start) {
			u.End = u.Start
		}
		for _, d := range diags {
			r.log.Debug("unit diagnostic",
				zap.String("unit", id),
				zap.String("iteration", cur.ID),
				zap.String("severity", string(d.Severity)),
				zap.String("message", d.Message),
			)
			switch d.Severity {
			case domain.SeverityError:
				u.Errors++
			case domain.SeverityWarning:
				u.Warnings++
			}
		}
		return true
	})
}

// BeforeReload records the start of the reload phase
func (r *Recorder) BeforeReload() {
	r.reloadHook("before_reload", func(cur *domain.Iteration, now time.Time) {
		cur.BeforeReload = now
	})
}

// AfterReload records the end of the reload phase
func (r *Recorder) AfterReload() {
	r.reloadHook("after_reload", func(cur *domain.Iteration, now time.Time) {
		cur.AfterReload = now
	})
}

func (r *Recorder) reloadHook(op string, set func(*domain.Iteration, time.Time)) {
	if r.suspended.Load() {
		r.log.Debug("reload hook ignored while suspended", zap.String("op", op))
		return
	}
	r.mutate(op, func(s *domain.Session, now time.Time) bool {
		cur := s.Current()
		if cur == nil || cur.Empty() {
			r.violation(cur, "", op+" without a compilation", now)
			return false
		}
		if cur.CompilationFinished.IsZero() && cur.AllUnitsFinished() {
			_, last, _ := cur.UnitBounds(now)
			r.finishCompilation(cur, last)
		}
		set(cur, now)
		return true
	})
}

// Clear discards all recorded history and leaves one empty iteration
func (r *Recorder) Clear() {
	r.mutate("clear", func(s *domain.Session, now time.Time) bool {
		prev := ""
		if cur := s.Current(); cur != nil {
			prev = cur.ID
		}
		r.reset(s, prev, now)
		return true
	})
}

// Prune drops the oldest iterations so at most keep remain and returns how
// many were removed.
func (r *Recorder) Prune(keep int) int {
	removed := 0
	r.mutate("prune", func(s *domain.Session, now time.Time) bool {
		removed = r.prune(s, keep, now)
		return removed > 0
	})
	return removed
}

// ApplyTrace merges a trace artifact into the current iteration
func (r *Recorder) ApplyTrace(raw []byte) error {
	return r.applyTrace("apply_trace", func(in *trace.Ingestor, target domain.Iteration) (domain.Iteration, error) {
		return in.Ingest(raw, target)
	})
}

// IngestTraceFile merges the trace artifact at path into the current iteration
func (r *Recorder) IngestTraceFile(path string) error {
	return r.applyTrace("ingest_trace_file", func(in *trace.Ingestor, target domain.Iteration) (domain.Iteration, error) {
		return in.IngestFile(path, target)
	})
}

func (r *Recorder) applyTrace(op string, ingest func(*trace.Ingestor, domain.Iteration) (domain.Iteration, error)) error {
	var ingestErr error
	r.mutate(op, func(s *domain.Session, now time.Time) bool {
		cur := s.Current()
		if cur == nil || cur.Empty() {
			ingestErr = &trace.IngestError{Kind: trace.KindNotAvailable, Err: errors.New("no iteration recorded")}
			return false
		}
		it, err := ingest(r.ingestor(), *cur)
		if err != nil {
			ingestErr = err
			if errors.Is(err, trace.ErrFormatChanged) {
				r.report(Anomaly{Kind: AnomalyFormatChanged, Iteration: cur.ID, Detail: err.Error(), At: now})
			}
			return false
		}
		*cur = it
		return true
	})
	return ingestErr
}

// SetLockState freezes the published snapshot while locked. Events are still
// recorded; unlocking publishes everything recorded in the meantime.
func (r *Recorder) SetLockState(locked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.locked.Store(locked)
	if !locked {
		r.published.Store(r.session)
	}
}

// Locked reports whether the published snapshot is frozen
func (r *Recorder) Locked() bool {
	return r.locked.Load()
}

// SetSuspended makes reload hooks no-ops, e.g. while the host is in play mode
func (r *Recorder) SetSuspended(suspended bool) {
	r.suspended.Store(suspended)
}

// Invalidate drops the in-memory session so the next access reloads it from
// storage. A locked snapshot stays frozen.
func (r *Recorder) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.session = nil
	if !r.locked.Load() {
		r.published.Store(nil)
	}
}

// Snapshot returns a deep copy of the published session
func (r *Recorder) Snapshot() *domain.Session {
	if s := r.published.Load(); s != nil {
		return s.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked(r.opts.Clock.Now())
	if s := r.published.Load(); s != nil {
		return s.Clone()
	}
	return r.session.Clone()
}

// Iteration returns a copy of the iteration with the given ID
func (r *Recorder) Iteration(id string) (domain.Iteration, bool) {
	it, ok := r.Snapshot().Find(id)
	if !ok {
		return domain.Iteration{}, false
	}
	return *it, true
}

// Anomalies returns how many anomalies were recovered since creation
func (r *Recorder) Anomalies() int64 {
	return r.anomalies.Load()
}

// Now returns the recorder clock's current time
func (r *Recorder) Now() time.Time {
	return r.opts.Clock.Now()
}

// mutate applies fn to a private copy of the session, then persists and
// publishes it. Writers are serialized; readers keep their old snapshot.
func (r *Recorder) mutate(op string, fn func(s *domain.Session, now time.Time) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.Clock.Now()
	r.loadLocked(now)

	next := r.session.Clone()
	guarded := r.guard(next, now)
	changed := fn(next, now)
	if !changed && !guarded {
		return
	}

	r.session = next
	if err := r.opts.Storage.Save(next); err != nil {
		r.log.Warn("failed to persist session", zap.String("op", op), zap.Error(err))
	}
	if !r.locked.Load() {
		r.published.Store(next)
	}
}

func (r *Recorder) loadLocked(now time.Time) {
	if r.session != nil {
		return
	}

	s, err := r.opts.Storage.Load()
	switch {
	case errors.Is(err, store.ErrCorrupt):
		r.report(Anomaly{Kind: AnomalyStorageCorruption, Detail: err.Error(), At: now})
		s = &domain.Session{}
		if err := r.opts.Storage.Save(s); err != nil {
			r.log.Warn("failed to reset corrupt session", zap.Error(err))
		}
	case err != nil:
		r.log.Warn("failed to load session", zap.Error(err))
		s = &domain.Session{}
	case s == nil:
		s = &domain.Session{}
	}

	r.session = s
	if !r.locked.Load() || r.published.Load() == nil {
		r.published.Store(s)
	}
}

// guard discards the current iteration when its span is implausible
func (r *Recorder) guard(s *domain.Session, now time.Time) bool {
	cur := s.Current()
	if cur == nil {
		return false
	}
	span, reload := cur.Span(now), cur.LastReloadSpan()
	if span <= r.opts.ImplausibleSpan && reload <= r.opts.ImplausibleSpan {
		return false
	}
	r.report(Anomaly{
		Kind:      AnomalyImplausibleDuration,
		Iteration: cur.ID,
		Detail:    fmt.Sprintf("span %s, reload %s exceeds %s", span, reload, r.opts.ImplausibleSpan),
		At:        now,
	})
	r.reset(s, cur.ID, now)
	return true
}

func (r *Recorder) startPass(s *domain.Session, now time.Time) {
	cur := s.Current()
	if cur != nil && !cur.AfterReload.IsZero() {
		since := now.Sub(cur.AfterReload)
		if since < r.opts.ContinuationWindow && since >= -r.opts.ClockSkew {
			cur.Resume(now)
			r.emit(cur.ID, cur.ID, len(s.Iterations), domain.ReasonContinuation, now)
			return
		}
	}
	if cur != nil && cur.Empty() {
		cur.CompilationStarted = now
		r.emit(cur.ID, "", len(s.Iterations), domain.ReasonNewPass, now)
		return
	}

	prev := ""
	if cur != nil {
		prev = cur.ID
	}
	if r.opts.Retention == RetentionReplace {
		s.Iterations = nil
	}
	s.Iterations = append(s.Iterations, domain.NewIteration(now))
	r.emit(s.Current().ID, prev, len(s.Iterations), domain.ReasonNewPass, now)
	if r.opts.MaxIterations > 0 {
		r.prune(s, r.opts.MaxIterations, now)
	}
}

// abandoned reports a legacy pass whose units all finished but which never
// reloaded, e.g. because compilation failed. It is over once the
// continuation window has passed since its last unit ended.
func (r *Recorder) abandoned(cur *domain.Iteration, now time.Time) bool {
	if !cur.AllUnitsFinished() {
		return false
	}
	_, last, _ := cur.UnitBounds(now)
	return now.Sub(last) >= r.opts.ContinuationWindow
}

// openFor returns the iteration unit events belong to, opening one when the
// pipeline does not report compilation start.
func (r *Recorder) openFor(s *domain.Session, now time.Time) (*domain.Iteration, bool) {
	cur := s.Current()
	if r.opts.Pipeline == PipelineLegacy && (cur == nil || !cur.CompilationFinished.IsZero() || r.abandoned(cur, now)) {
		r.startPass(s, now)
		return s.Current(), true
	}
	if cur == nil {
		r.violation(nil, "", "unit event before any compilation start", now)
		s.Iterations = append(s.Iterations, domain.NewIteration(now))
		return s.Current(), true
	}
	if cur.CompilationStarted.IsZero() {
		cur.CompilationStarted = now
		return cur, true
	}
	return cur, false
}

func (r *Recorder) finishCompilation(cur *domain.Iteration, at time.Time) {
	cur.CompilationFinished = at
	if r.opts.Trace == nil || r.opts.TracePath == "" {
		return
	}
	it, err := r.opts.Trace.IngestFile(r.opts.TracePath, *cur)
	switch {
	case err == nil:
		*cur = it
	case errors.Is(err, trace.ErrFormatChanged):
		r.report(Anomaly{Kind: AnomalyFormatChanged, Iteration: cur.ID, Detail: err.Error(), At: at})
	default:
		r.log.Debug("trace not available", zap.String("path", r.opts.TracePath), zap.Error(err))
	}
}

func (r *Recorder) reset(s *domain.Session, prev string, now time.Time) {
	s.Iterations = []domain.Iteration{domain.NewIteration(time.Time{})}
	r.emit(s.Current().ID, prev, 1, domain.ReasonCleared, now)
}

func (r *Recorder) prune(s *domain.Session, keep int, now time.Time) int {
	if keep < 1 {
		keep = 1
	}
	extra := len(s.Iterations) - keep
	if extra <= 0 {
		return 0
	}
	s.Iterations = append([]domain.Iteration(nil), s.Iterations[extra:]...)
	r.emit(s.Current().ID, "", len(s.Iterations), domain.ReasonPruned, now)
	return extra
}

func (r *Recorder) violation(cur *domain.Iteration, unit, detail string, now time.Time) {
	a := Anomaly{Kind: AnomalyProtocolViolation, Unit: unit, Detail: detail, At: now}
	if cur != nil {
		a.Iteration = cur.ID
	}
	r.report(a)
}

func (r *Recorder) emit(id, prev string, count int, reason string, now time.Time) {
	r.log.Debug("iteration change",
		zap.String("iteration", id),
		zap.String("reason", reason),
		zap.Int("count", count),
	)
	if r.opts.OnIteration == nil {
		return
	}
	r.opts.OnIteration(domain.IterationChange{
		Type:          "iteration_change",
		SchemaVersion: 1,
		Iteration:     id,
		PrevIteration: prev,
		Count:         count,
		Reason:        reason,
		Timestamp:     now.UTC().Format(time.RFC3339Nano),
	})
}

func (r *Recorder) ingestor() *trace.Ingestor {
	if r.opts.Trace != nil {
		return r.opts.Trace
	}
	return trace.NewIngestor(trace.Options{Logger: r.log})
}

// estimatedStart places a synthesized unit after the last unit seen so far
func estimatedStart(cur *domain.Iteration, now time.Time) time.Time {
	start := cur.CompilationStarted
	if n := len(cur.Units); n > 0 {
		if end := cur.Units[n-1].EndOr(now); end.After(start) {
			start = end
		}
	}
	if start.IsZero() || start.After(now) {
		return now
	}
	return start
}
