package cli

import (
	"fmt"
	"strings"

	"github.com/vburojevic/buildtl/internal/domain"
)

// HookCmd groups the build pipeline hook events
type HookCmd struct {
	CompileStart  HookCompileStartCmd  `cmd:"" name:"compile-start" help:"Compilation started"`
	CompileFinish HookCompileFinishCmd `cmd:"" name:"compile-finish" help:"Compilation finished"`
	UnitStart     HookUnitStartCmd     `cmd:"" name:"unit-start" help:"A unit started compiling"`
	UnitFinish    HookUnitFinishCmd    `cmd:"" name:"unit-finish" help:"A unit finished compiling"`
	BeforeReload  HookBeforeReloadCmd  `cmd:"" name:"before-reload" help:"Code reload is about to start"`
	AfterReload   HookAfterReloadCmd   `cmd:"" name:"after-reload" help:"Code reload finished"`
}

// HookCompileStartCmd records a compilation start
type HookCompileStartCmd struct{}

// Run executes the hook
func (c *HookCompileStartCmd) Run(globals *Globals) error {
	return withRecorder(globals, func(h *recorderHandle) {
		h.CompilationStarted()
	})
}

// HookCompileFinishCmd records a compilation finish
type HookCompileFinishCmd struct{}

// Run executes the hook
func (c *HookCompileFinishCmd) Run(globals *Globals) error {
	return withRecorder(globals, func(h *recorderHandle) {
		h.CompilationFinished()
	})
}

// HookUnitStartCmd records a unit start
type HookUnitStartCmd struct {
	ID string `arg:"" help:"Unit identifier (assembly or module path)"`
}

// Run executes the hook
func (c *HookUnitStartCmd) Run(globals *Globals) error {
	return withRecorder(globals, func(h *recorderHandle) {
		h.UnitStarted(c.ID)
	})
}

// HookUnitFinishCmd records a unit finish with its diagnostics
type HookUnitFinishCmd struct {
	ID   string   `arg:"" help:"Unit identifier (assembly or module path)"`
	Diag []string `sep:"none" help:"Diagnostic as severity:message (error, warning or info; can be repeated)"`
}

// Run executes the hook
func (c *HookUnitFinishCmd) Run(globals *Globals) error {
	diags := make([]domain.Diagnostic, 0, len(c.Diag))
	for _, raw := range c.Diag {
		d, err := parseDiagnostic(raw)
		if err != nil {
			return fail(globals, CodeInvalidDiagnostic, err.Error(), "use --diag error:message")
		}
		diags = append(diags, d)
	}
	return withRecorder(globals, func(h *recorderHandle) {
		h.UnitFinished(c.ID, diags)
	})
}

// reloadFlags are shared by both reload hooks
type reloadFlags struct {
	Suspended bool `help:"Host is in play mode; the event is ignored"`
}

// HookBeforeReloadCmd records the start of a code reload
type HookBeforeReloadCmd struct {
	reloadFlags
}

// Run executes the hook
func (c *HookBeforeReloadCmd) Run(globals *Globals) error {
	return withRecorder(globals, func(h *recorderHandle) {
		h.SetSuspended(c.Suspended)
		h.BeforeReload()
	})
}

// HookAfterReloadCmd records the end of a code reload
type HookAfterReloadCmd struct {
	reloadFlags
}

// Run executes the hook
func (c *HookAfterReloadCmd) Run(globals *Globals) error {
	return withRecorder(globals, func(h *recorderHandle) {
		h.SetSuspended(c.Suspended)
		h.AfterReload()
	})
}

// withRecorder opens the recorder, applies one hook and closes it. Hooks never
// fail the build: problems surface as anomaly records. The storage lock is
// held from load to save so concurrent hook processes do not drop events.
func withRecorder(globals *Globals, fn func(h *recorderHandle)) error {
	unlock, err := lockStorage(globals)
	if err != nil {
		return err
	}
	defer unlock()

	h, err := openRecorder(globals)
	if err != nil {
		return err
	}
	defer h.Close()

	fn(h)
	globals.Debug("Hook applied; %d anomalies", h.Anomalies())
	return nil
}

// parseDiagnostic parses "severity:message"
func parseDiagnostic(raw string) (domain.Diagnostic, error) {
	sev, msg, ok := strings.Cut(raw, ":")
	if !ok {
		return domain.Diagnostic{}, fmt.Errorf("invalid diagnostic %q: expected severity:message", raw)
	}
	severity := domain.Severity(strings.ToLower(strings.TrimSpace(sev)))
	switch severity {
	case domain.SeverityError, domain.SeverityWarning, domain.SeverityInfo:
	default:
		return domain.Diagnostic{}, fmt.Errorf("invalid diagnostic severity %q", sev)
	}
	return domain.Diagnostic{Severity: severity, Message: strings.TrimSpace(msg)}, nil
}
