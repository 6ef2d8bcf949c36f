package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 12, 14, 22, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return base.Add(time.Duration(ms) * time.Millisecond)
}

func TestIterationPhase(t *testing.T) {
	tests := []struct {
		name     string
		it       Iteration
		expected Phase
	}{
		{"empty", Iteration{}, PhaseNotStarted},
		{"started", Iteration{CompilationStarted: at(0)}, PhaseCompiling},
		{"units only", Iteration{Units: []Unit{{ID: "A", Start: at(1)}}}, PhaseCompiling},
		{"finished", Iteration{CompilationStarted: at(0), CompilationFinished: at(10)}, PhaseCompilationDone},
		{"before reload", Iteration{CompilationStarted: at(0), CompilationFinished: at(10), BeforeReload: at(10)}, PhaseReloadPending},
		{"after reload", Iteration{CompilationStarted: at(0), CompilationFinished: at(10), BeforeReload: at(10), AfterReload: at(12)}, PhaseReloadDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.it.Phase())
		})
	}
}

func TestUnitEndOr(t *testing.T) {
	running := Unit{ID: "A", Start: at(100)}
	assert.True(t, running.Running())
	assert.Equal(t, at(500), running.EndOr(at(500)))
	assert.Equal(t, 400*time.Millisecond, running.Duration(at(500)))

	// negative spans clamp to the start
	skewed := Unit{ID: "B", Start: at(100), End: at(50)}
	assert.Equal(t, at(100), skewed.EndOr(at(500)))
	assert.Zero(t, skewed.Duration(at(500)))
}

func TestLastUnitIndexSearchesMostRecentFirst(t *testing.T) {
	it := Iteration{Units: []Unit{
		{ID: "A", Start: at(0), End: at(10)},
		{ID: "B", Start: at(1)},
		{ID: "A", Start: at(20)},
	}}
	assert.Equal(t, 2, it.LastUnitIndex("A"))
	assert.Equal(t, 1, it.LastUnitIndex("B"))
	assert.Equal(t, -1, it.LastUnitIndex("C"))
}

func TestUnitBounds(t *testing.T) {
	it := Iteration{Units: []Unit{
		{ID: "A", Start: at(100), End: at(400)},
		{ID: "B", Start: at(200), End: at(900)},
		{ID: "C", Start: at(300)},
	}}
	first, last, ok := it.UnitBounds(at(1000))
	require.True(t, ok)
	assert.Equal(t, at(100), first)
	assert.Equal(t, at(1000), last)
	assert.False(t, it.AllUnitsFinished())

	_, _, ok = Iteration{}.UnitBounds(at(0))
	assert.False(t, ok)
}

func TestIterationSpan(t *testing.T) {
	it := Iteration{CompilationStarted: at(0)}
	assert.Equal(t, 5*time.Second, it.Span(at(5000)))

	it.CompilationFinished = at(1000)
	assert.Equal(t, time.Second, it.Span(at(5000)))

	it.BeforeReload = at(1000)
	it.AfterReload = at(1200)
	assert.Equal(t, 1200*time.Millisecond, it.Span(at(5000)))
	assert.Equal(t, 200*time.Millisecond, it.ReloadSpan())
}

func TestLatestMarkStopsAtLastFinishedUnit(t *testing.T) {
	it := Iteration{CompilationStarted: at(0), Units: []Unit{
		{ID: "A", Start: at(0), End: at(300)},
		{ID: "B", Start: at(100), End: at(700)},
	}}
	later := base.Add(40 * time.Minute)
	assert.Equal(t, at(700), it.LatestMark(later))
	assert.Equal(t, 700*time.Millisecond, it.Span(later))

	it.Units = append(it.Units, Unit{ID: "C", Start: at(800)})
	assert.Equal(t, later, it.LatestMark(later))
}

func TestResumeCarriesReload(t *testing.T) {
	it := Iteration{
		CompilationStarted:  at(0),
		CompilationFinished: at(1000),
		BeforeReload:        at(1000),
		AfterReload:         at(1200),
	}
	assert.Equal(t, at(0), it.PassStart())

	it.Resume(at(3000))
	assert.Equal(t, at(3000), it.PassStart())
	assert.Equal(t, at(0), it.CompilationStarted)
	assert.Equal(t, PhaseCompiling, it.Phase())
	assert.Equal(t, 200*time.Millisecond, it.ReloadSpan())
	assert.Zero(t, it.LastReloadSpan())

	it.CompilationFinished = at(3500)
	it.BeforeReload = at(3500)
	it.AfterReload = at(3600)
	assert.Equal(t, 300*time.Millisecond, it.ReloadSpan())
	assert.Equal(t, 100*time.Millisecond, it.LastReloadSpan())
}

func TestCloneIsDeep(t *testing.T) {
	s := &Session{Iterations: []Iteration{{ID: "1", Units: []Unit{{ID: "A"}}}}}
	c := s.Clone()
	c.Iterations[0].Units[0].ID = "changed"
	c.Iterations[0].ID = "2"

	assert.Equal(t, "A", s.Iterations[0].Units[0].ID)
	assert.Equal(t, "1", s.Iterations[0].ID)
}

func TestSessionRoundTripKeepsUnsetTimestamps(t *testing.T) {
	s := Session{Iterations: []Iteration{
		{
			ID:                  "it-1",
			CompilationStarted:  at(0),
			CompilationFinished: at(1000),
			BeforeReload:        at(1000),
			AfterReload:         at(1200),
			HasTrace:            true,
			Units: []Unit{
				{ID: "A", Start: at(100), End: at(400), Errors: 1},
				{ID: "B", Start: base.Add(123456789 * time.Nanosecond), End: at(900), Warnings: 2, Synthesized: true},
			},
		},
		{
			ID:                 "it-2",
			CompilationStarted: at(10000),
			Units:              []Unit{{ID: "C", Start: at(10100)}},
		},
	}}

	b, err := json.Marshal(s)
	require.NoError(t, err)

	var got Session
	require.NoError(t, json.Unmarshal(b, &got))
	require.Len(t, got.Iterations, 2)

	first := got.Iterations[0]
	assert.True(t, first.CompilationStarted.Equal(at(0)))
	assert.True(t, first.AfterReload.Equal(at(1200)))
	assert.True(t, first.HasTrace)
	assert.True(t, first.Units[1].Start.Equal(base.Add(123456789*time.Nanosecond)))
	assert.True(t, first.Units[1].Synthesized)
	assert.Equal(t, 1, first.Units[0].Errors)
	assert.Equal(t, 2, first.Units[1].Warnings)

	second := got.Iterations[1]
	assert.True(t, second.CompilationFinished.IsZero())
	assert.True(t, second.BeforeReload.IsZero())
	assert.True(t, second.AfterReload.IsZero())
	assert.True(t, second.Units[0].End.IsZero())
	assert.True(t, second.Units[0].Running())
	assert.Equal(t, PhaseCompiling, second.Phase())
}

func TestSessionRoundTripKeepsContinuation(t *testing.T) {
	it := Iteration{ID: "it-1", CompilationStarted: at(0), CompilationFinished: at(3500)}
	it.ResumedAt = at(3000)
	it.PriorReload = 200 * time.Millisecond

	b, err := json.Marshal(Session{Iterations: []Iteration{it}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"prior_reload_ns":200000000`)

	var got Session
	require.NoError(t, json.Unmarshal(b, &got))
	require.Len(t, got.Iterations, 1)
	assert.True(t, got.Iterations[0].ResumedAt.Equal(at(3000)))
	assert.Equal(t, 200*time.Millisecond, got.Iterations[0].PriorReload)

	err = json.Unmarshal([]byte(`{"iterations":[{"id":"x","prior_reload_ns":-1,"units":[]}]}`), &got)
	assert.ErrorContains(t, err, "prior_reload_ns")
}

func TestSessionUnsetSerializesAsNull(t *testing.T) {
	b, err := json.Marshal(Session{Iterations: []Iteration{{ID: "x"}}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"compilation_started":null`)
	assert.Contains(t, string(b), `"after_reload":null`)
}

func TestSessionUnmarshalRejectsBadTimestamp(t *testing.T) {
	var s Session
	err := json.Unmarshal([]byte(`{"iterations":[{"id":"x","compilation_started":"yesterday","units":[]}]}`), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compilation_started")
}
