package cli

import (
	"errors"
	"os"

	"github.com/vburojevic/buildtl/internal/output"
	"github.com/vburojevic/buildtl/internal/trace"
)

// IngestCmd merges a trace artifact into the current iteration
type IngestCmd struct {
	File string `arg:"" type:"path" help:"Trace artifact (Chrome trace-event JSON)"`
}

// IngestOutput confirms a merge
type IngestOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Iteration     string `json:"iteration"`
	Units         int    `json:"units"`
}

// Run executes the ingest command
func (c *IngestCmd) Run(globals *Globals) error {
	raw, err := os.ReadFile(c.File)
	if err != nil {
		return fail(globals, CodeTraceNotAvailable, err.Error(), "check the path or wait for the build to write the trace")
	}

	h, err := openRecorder(globals)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.ApplyTrace(raw); err != nil {
		switch {
		case errors.Is(err, trace.ErrFormatChanged):
			return fail(globals, CodeTraceFormatChanged, err.Error(), "the trace format may have changed; check trace.step_name")
		case errors.Is(err, trace.ErrNotAvailable):
			return fail(globals, CodeTraceNotAvailable, err.Error(), "record a compilation first")
		default:
			return fail(globals, CodeIngestFailed, err.Error())
		}
	}

	cur := h.Snapshot().Current()
	if cur == nil {
		return nil
	}
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(IngestOutput{
			Type:          "ingest",
			SchemaVersion: output.SchemaVersion,
			Iteration:     cur.ID,
			Units:         len(cur.Units),
		})
	}
	if !globals.Quiet {
		output.NewTextWriter(globals.Stdout).Printf("Merged %d units into iteration %s\n", len(cur.Units), cur.ID)
	}
	return nil
}
