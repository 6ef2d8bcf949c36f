package layout

import (
	"time"

	"github.com/vburojevic/buildtl/internal/domain"
)

// Entry is one unit placed on the timeline
type Entry struct {
	Iteration int    // index into Session.Iterations
	Unit      int    // index into Iteration.Units
	UnitID    string
	Slot      int
	Offset    time.Duration // from the first iteration's compilation start
	Duration  time.Duration
	Running   bool
}

// Marker is the gap between compilation end and the next section of an iteration
type Marker struct {
	Iteration int
	Offset    time.Duration
	Width     time.Duration
	Reload    time.Duration
}

// Timeline is a packed, render-ready view of a session
type Timeline struct {
	Entries []Entry
	Markers []Marker
	Slots   int
	Total   time.Duration
}

// Options control how iterations are laid end to end
type Options struct {
	// ShowReloads places the next iteration after the reload instead of after compilation
	ShowReloads bool
}

// Build lays out every unit of the session. Iterations are concatenated:
// each starts where the previous one's section ended, so idle time between
// passes is not drawn. Running units extend to now.
func Build(s *domain.Session, now time.Time, opts Options) Timeline {
	var tl Timeline
	if s == nil || len(s.Iterations) == 0 {
		return tl
	}

	var cursor time.Duration // end of the previous section relative to first
	var intervals []Interval[int, time.Duration]

	for i, it := range s.Iterations {
		start := anchor(it, now)
		for j, u := range it.Units {
			unitStart := u.Start
			if unitStart.IsZero() {
				unitStart = start
			}
			offset := unitStart.Sub(start) + cursor
			dur := u.EndOr(now).Sub(unitStart)
			if dur < 0 {
				dur = 0
			}
			tl.Entries = append(tl.Entries, Entry{
				Iteration: i,
				Unit:      j,
				UnitID:    u.ID,
				Offset:    offset,
				Duration:  dur,
				Running:   u.Running(),
			})
			intervals = append(intervals, Interval[int, time.Duration]{
				ID:    len(intervals),
				Start: offset,
				End:   offset + dur,
			})
		}

		finished := it.CompilationFinished
		if finished.IsZero() {
			finished = sectionEnd(it, now)
		}
		section := finished
		if opts.ShowReloads && !it.AfterReload.IsZero() {
			section = it.AfterReload
		}
		compileSpan := max(finished.Sub(start), 0)
		width := max(section.Sub(finished), 0)
		tl.Markers = append(tl.Markers, Marker{
			Iteration: i,
			Offset:    cursor + compileSpan,
			Width:     width,
			Reload:    it.ReloadSpan(),
		})
		cursor += compileSpan + width
	}

	slots := Assign(intervals)
	for i := range tl.Entries {
		tl.Entries[i].Slot = slots[i]
	}
	tl.Slots = SlotCount(slots)
	tl.Total = cursor
	for _, e := range tl.Entries {
		tl.Total = max(tl.Total, e.Offset+e.Duration)
	}
	return tl
}

// anchor is the iteration start used for offsets. A missing compilation start
// is replaced by the earliest unit start.
func anchor(it domain.Iteration, now time.Time) time.Time {
	if !it.CompilationStarted.IsZero() {
		return it.CompilationStarted
	}
	if first, _, ok := it.UnitBounds(now); ok {
		return first
	}
	return now
}

// sectionEnd estimates compilation end for an open iteration
func sectionEnd(it domain.Iteration, now time.Time) time.Time {
	if _, last, ok := it.UnitBounds(now); ok && it.AllUnitsFinished() {
		return last
	}
	return now
}

// Row is a flattened, display-ready entry
type Row struct {
	Iteration   string        `json:"iteration"`
	Unit        string        `json:"unit"`
	Slot        int           `json:"slot"`
	Offset      time.Duration `json:"-"`
	Duration    time.Duration `json:"-"`
	OffsetMS    float64       `json:"offset_ms"`
	DurationMS  float64       `json:"duration_ms"`
	Running     bool          `json:"running"`
	Synthesized bool          `json:"synthesized,omitempty"`
	Traced      bool          `json:"traced,omitempty"`
	Errors      int           `json:"errors,omitempty"`
	Warnings    int           `json:"warnings,omitempty"`
}

// Rows flattens the entries of tl, which must have been built from s
func Rows(s *domain.Session, tl Timeline) []Row {
	rows := make([]Row, 0, len(tl.Entries))
	for _, e := range tl.Entries {
		it := s.Iterations[e.Iteration]
		u := it.Units[e.Unit]
		rows = append(rows, Row{
			Iteration:   it.ID,
			Unit:        e.UnitID,
			Slot:        e.Slot,
			Offset:      e.Offset,
			Duration:    e.Duration,
			OffsetMS:    Millis(e.Offset),
			DurationMS:  Millis(e.Duration),
			Running:     e.Running,
			Synthesized: u.Synthesized,
			Traced:      it.HasTrace,
			Errors:      u.Errors,
			Warnings:    u.Warnings,
		})
	}
	return rows
}

// Millis converts d to fractional milliseconds
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
