package cli

import (
	"github.com/samber/lo"

	"github.com/vburojevic/buildtl/internal/domain"
	"github.com/vburojevic/buildtl/internal/output"
)

// ClearCmd discards the recorded history
type ClearCmd struct{}

// ClearOutput confirms a clear or prune
type ClearOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Removed       int    `json:"removed"`
	Storage       string `json:"storage"`
}

// Run executes the clear command
func (c *ClearCmd) Run(globals *Globals) error {
	h, err := openRecorder(globals)
	if err != nil {
		return err
	}
	defer h.Close()

	removed := lo.CountBy(h.Snapshot().Iterations, func(it domain.Iteration) bool { return !it.Empty() })
	h.Clear()
	return writeCleared(globals, "clear", removed, h.StoragePath)
}

// PruneCmd keeps only the newest iterations
type PruneCmd struct {
	Keep int `short:"k" default:"1" help:"Iterations to keep (at least 1)"`
}

// Run executes the prune command
func (c *PruneCmd) Run(globals *Globals) error {
	if c.Keep < 1 {
		return fail(globals, CodeInvalidFlags, "--keep must be at least 1", "use 'buildtl clear' to drop everything")
	}
	h, err := openRecorder(globals)
	if err != nil {
		return err
	}
	defer h.Close()

	return writeCleared(globals, "prune", h.Prune(c.Keep), h.StoragePath)
}

func writeCleared(globals *Globals, kind string, removed int, storage string) error {
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(ClearOutput{
			Type:          kind,
			SchemaVersion: output.SchemaVersion,
			Removed:       removed,
			Storage:       storage,
		})
	}
	if !globals.Quiet {
		output.NewTextWriter(globals.Stdout).Printf("Removed %d iterations from %s\n", removed, storage)
	}
	return nil
}
