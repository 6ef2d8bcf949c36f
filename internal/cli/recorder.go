package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/vburojevic/buildtl/internal/domain"
	"github.com/vburojevic/buildtl/internal/output"
	"github.com/vburojevic/buildtl/internal/store"
	"github.com/vburojevic/buildtl/internal/timeline"
	"github.com/vburojevic/buildtl/internal/trace"
)

// recorderHandle bundles an open recorder with its storage
type recorderHandle struct {
	*timeline.Recorder
	StoragePath string
	closer      io.Closer
}

// Close releases the storage backend
func (h *recorderHandle) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

// storagePath resolves the configured storage path against the project dir
func storagePath(globals *Globals) (string, error) {
	cfg := globals.Config.Storage
	if cfg.Path == "" {
		return store.DefaultPath(globals.Project, cfg.Backend)
	}
	if filepath.IsAbs(cfg.Path) {
		return cfg.Path, nil
	}
	return filepath.Join(globals.Project, cfg.Path), nil
}

// tracePath resolves trace.path against the project dir; empty disables merging
func tracePath(globals *Globals) string {
	p := globals.Config.Trace.Path
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(globals.Project, p)
}

// lockStorage takes the advisory lock for the configured storage
func lockStorage(globals *Globals) (func(), error) {
	path, err := storagePath(globals)
	if err != nil {
		return nil, fail(globals, CodeStorage, err.Error())
	}
	lock, err := store.Lock(path)
	if err != nil {
		return nil, fail(globals, CodeStorage, fmt.Sprintf("failed to lock storage: %v", err))
	}
	globals.Debug("Locked %s%s", path, store.LockSuffix)
	return func() {
		if err := lock.Unlock(); err != nil {
			globals.Debug("Unlock storage: %v", err)
		}
	}, nil
}

// openRecorder builds a recorder from globals. Anomalies are emitted as ndjson
// unless quiet; iteration changes only when verbose.
func openRecorder(globals *Globals) (*recorderHandle, error) {
	cfg := globals.Config
	if err := cfg.Validate(); err != nil {
		return nil, fail(globals, CodeInvalidConfig, err.Error(), "run 'buildtl config show' to inspect settings")
	}
	durations, _ := cfg.Recorder.Durations()

	path, err := storagePath(globals)
	if err != nil {
		return nil, fail(globals, CodeStorage, err.Error())
	}
	st, closer, err := store.Open(cfg.Storage.Backend, path)
	if err != nil {
		return nil, fail(globals, CodeStorage, fmt.Sprintf("failed to open storage: %v", err))
	}
	globals.Debug("Storage: %s (%s)", path, cfg.Storage.Backend)

	logger := globals.Logger()
	opts := timeline.Options{
		Storage:            st,
		Clock:              globals.Clock,
		Logger:             logger,
		ContinuationWindow: durations.ContinuationWindow,
		ImplausibleSpan:    durations.ImplausibleSpan,
		ClockSkew:          durations.ClockSkew,
		Retention:          timeline.Retention(cfg.Recorder.Retention),
		MaxIterations:      cfg.Recorder.MaxIterations,
		Pipeline:           timeline.Pipeline(cfg.Recorder.Pipeline),
		Trace: trace.NewIngestor(trace.Options{
			StepName:   cfg.Trace.StepName,
			UnitPrefix: cfg.Trace.UnitPrefix,
			ProcessID:  cfg.Trace.ProcessID,
			Logger:     logger,
		}),
		TracePath: tracePath(globals),
	}

	if globals.Format == "ndjson" && !globals.Quiet {
		w := output.NewNDJSONWriter(globals.Stdout)
		opts.OnAnomaly = func(a timeline.Anomaly) {
			_ = w.WriteAnomaly(anomalyOutput(a))
		}
		if globals.Verbose {
			opts.OnIteration = func(c domain.IterationChange) {
				_ = w.WriteIterationChange(c)
			}
		}
	}

	return &recorderHandle{
		Recorder:    timeline.NewRecorder(opts),
		StoragePath: path,
		closer:      closer,
	}, nil
}

func anomalyOutput(a timeline.Anomaly) *output.AnomalyOutput {
	return &output.AnomalyOutput{
		Kind:      string(a.Kind),
		Iteration: a.Iteration,
		Unit:      a.Unit,
		Detail:    a.Detail,
		Timestamp: a.At.UTC().Format(time.RFC3339Nano),
	}
}
