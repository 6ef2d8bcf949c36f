// Package output renders timelines, reports and errors as ndjson or text.
package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/vburojevic/buildtl/internal/domain"
	"github.com/vburojevic/buildtl/internal/layout"
	"github.com/vburojevic/buildtl/internal/timeline"
)

// SchemaVersion is bumped on breaking changes to ndjson records
const SchemaVersion = 1

// ErrorOutput is an error record
type ErrorOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// UnitOutput is one timeline row
type UnitOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	layout.Row
}

// ReportOutput summarizes a session
type ReportOutput struct {
	Type          string  `json:"type"`
	SchemaVersion int     `json:"schemaVersion"`
	Iterations    int     `json:"iterations"`
	Units         int     `json:"units"`
	Slots         int     `json:"slots"`
	Errors        int     `json:"errors"`
	Warnings      int     `json:"warnings"`
	TotalMS       float64 `json:"total_ms"`
	CompilationMS float64 `json:"compilation_ms"`
	UnitSpanMS    float64 `json:"unit_span_ms"`
	ReloadMS      float64 `json:"reload_ms"`
	Running       bool    `json:"running"`
	Traced        int     `json:"traced"`
}

// NewReportOutput converts a timeline report; slots comes from the layout
func NewReportOutput(r timeline.Report, slots int) *ReportOutput {
	return &ReportOutput{
		Type:          "report",
		SchemaVersion: SchemaVersion,
		Iterations:    r.Iterations,
		Units:         r.Units,
		Slots:         slots,
		Errors:        r.Errors,
		Warnings:      r.Warnings,
		TotalMS:       layout.Millis(r.Total),
		CompilationMS: layout.Millis(r.Compilation),
		UnitSpanMS:    layout.Millis(r.UnitSpan),
		ReloadMS:      layout.Millis(r.Reload),
		Running:       r.Running,
		Traced:        r.Traced,
	}
}

// AnomalyOutput reports a recovered problem
type AnomalyOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Kind          string `json:"kind"`
	Iteration     string `json:"iteration,omitempty"`
	Unit          string `json:"unit,omitempty"`
	Detail        string `json:"detail"`
	Timestamp     string `json:"timestamp"`
}

// NDJSONWriter writes one JSON object per line
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer on w
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

// Write encodes any record
func (w *NDJSONWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(v)
}

// WriteError writes an error record with an optional hint
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	out := ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	return w.Write(out)
}

// WriteRows writes one unit record per row
func (w *NDJSONWriter) WriteRows(rows []layout.Row) error {
	for _, r := range rows {
		if err := w.Write(UnitOutput{Type: "unit", SchemaVersion: SchemaVersion, Row: r}); err != nil {
			return err
		}
	}
	return nil
}

// WriteReport writes a report record
func (w *NDJSONWriter) WriteReport(r *ReportOutput) error {
	r.Type = "report"
	r.SchemaVersion = SchemaVersion
	return w.Write(r)
}

// WriteIterationChange writes an iteration classification record
func (w *NDJSONWriter) WriteIterationChange(c domain.IterationChange) error {
	return w.Write(c)
}

// WriteAnomaly writes an anomaly record
func (w *NDJSONWriter) WriteAnomaly(a *AnomalyOutput) error {
	a.Type = "anomaly"
	a.SchemaVersion = SchemaVersion
	return w.Write(a)
}
