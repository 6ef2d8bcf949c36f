// Package trace reads compiler trace artifacts written in the Chrome trace
// event format and turns per-unit compile steps into timeline units.
package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Profile is the top-level trace artifact
type Profile struct {
	TraceEvents []Event `json:"traceEvents"`
}

// Event is one trace record. Timestamps and durations are in microseconds
// relative to the trace's own origin.
type Event struct {
	Category  string    `json:"cat"`
	ProcessID ProcessID `json:"pid"`
	ThreadID  int       `json:"tid"`
	Timestamp int64     `json:"ts"`
	Phase     string    `json:"ph"`
	Name      string    `json:"name"`
	Duration  int64     `json:"dur"`
	Args      *Args     `json:"args,omitempty"`
	ColorName string    `json:"cname,omitempty"`
}

// Args carries the per-event payload
type Args struct {
	Name       string  `json:"name,omitempty"`
	DurationMS int64   `json:"durationMS,omitempty"`
	Detail     *string `json:"detail"`
}

// ProcessID accepts both string and numeric pids
type ProcessID string

// UnmarshalJSON implements json.Unmarshaler
func (p *ProcessID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = ProcessID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("pid: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("pid: %w", err)
	}
	*p = ProcessID(n.String())
	return nil
}

// End returns ts + dur
func (e Event) End() int64 {
	return e.Timestamp + max(e.Duration, 0)
}

// Detail returns args.detail, or "" and false when absent
func (e Event) Detail() (string, bool) {
	if e.Args == nil || e.Args.Detail == nil {
		return "", false
	}
	return *e.Args.Detail, true
}
