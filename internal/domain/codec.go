package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Persisted format. Timestamps are RFC3339 with nanoseconds in UTC;
// unset timestamps are written as null and read back as unset.

type unitRecord struct {
	ID          string  `json:"id"`
	Start       *string `json:"start"`
	End         *string `json:"end"`
	Synthesized bool    `json:"synthesized,omitempty"`
	Errors      int     `json:"errors,omitempty"`
	Warnings    int     `json:"warnings,omitempty"`
}

type iterationRecord struct {
	ID                  string       `json:"id"`
	CompilationStarted  *string      `json:"compilation_started"`
	CompilationFinished *string      `json:"compilation_finished"`
	BeforeReload        *string      `json:"before_reload"`
	AfterReload         *string      `json:"after_reload"`
	HasTrace            bool         `json:"has_trace,omitempty"`
	ResumedAt           *string      `json:"resumed_at,omitempty"`
	PriorReloadNS       int64        `json:"prior_reload_ns,omitempty"`
	Units               []unitRecord `json:"units"`
}

type sessionRecord struct {
	Iterations []iterationRecord `json:"iterations"`
}

func encodeTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func decodeTime(s *string) (time.Time, error) {
	if s == nil {
		return time.Time{}, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return time.Time{}, nil
	}
	// Try nano first (what we emit), fall back to second precision.
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

// MarshalJSON implements json.Marshaler
func (s Session) MarshalJSON() ([]byte, error) {
	rec := sessionRecord{
		Iterations: lo.Map(s.Iterations, func(it Iteration, _ int) iterationRecord {
			return iterationRecord{
				ID:                  it.ID,
				CompilationStarted:  encodeTime(it.CompilationStarted),
				CompilationFinished: encodeTime(it.CompilationFinished),
				BeforeReload:        encodeTime(it.BeforeReload),
				AfterReload:         encodeTime(it.AfterReload),
				HasTrace:            it.HasTrace,
				ResumedAt:           encodeTime(it.ResumedAt),
				PriorReloadNS:       int64(it.PriorReload),
				Units: lo.Map(it.Units, func(u Unit, _ int) unitRecord {
					return unitRecord{
						ID:          u.ID,
						Start:       encodeTime(u.Start),
						End:         encodeTime(u.End),
						Synthesized: u.Synthesized,
						Errors:      u.Errors,
						Warnings:    u.Warnings,
					}
				}),
			}
		}),
	}
	if rec.Iterations == nil {
		rec.Iterations = []iterationRecord{}
	}
	return json.Marshal(rec)
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Session) UnmarshalJSON(b []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	out := Session{Iterations: make([]Iteration, 0, len(rec.Iterations))}
	for i, ir := range rec.Iterations {
		if ir.PriorReloadNS < 0 {
			return fmt.Errorf("iteration %d prior_reload_ns: negative", i)
		}
		it := Iteration{ID: ir.ID, HasTrace: ir.HasTrace, PriorReload: time.Duration(ir.PriorReloadNS)}
		fields := []struct {
			name string
			src  *string
			dst  *time.Time
		}{
			{"compilation_started", ir.CompilationStarted, &it.CompilationStarted},
			{"compilation_finished", ir.CompilationFinished, &it.CompilationFinished},
			{"before_reload", ir.BeforeReload, &it.BeforeReload},
			{"after_reload", ir.AfterReload, &it.AfterReload},
			{"resumed_at", ir.ResumedAt, &it.ResumedAt},
		}
		for _, f := range fields {
			t, err := decodeTime(f.src)
			if err != nil {
				return fmt.Errorf("iteration %d %s: %w", i, f.name, err)
			}
			*f.dst = t
		}
		for j, ur := range ir.Units {
			start, err := decodeTime(ur.Start)
			if err != nil {
				return fmt.Errorf("iteration %d unit %d start: %w", i, j, err)
			}
			end, err := decodeTime(ur.End)
			if err != nil {
				return fmt.Errorf("iteration %d unit %d end: %w", i, j, err)
			}
			it.Units = append(it.Units, Unit{
				ID:          ur.ID,
				Start:       start,
				End:         end,
				Synthesized: ur.Synthesized,
				Errors:      ur.Errors,
				Warnings:    ur.Warnings,
			})
		}
		out.Iterations = append(out.Iterations, it)
	}
	*s = out
	return nil
}
