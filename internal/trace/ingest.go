package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vburojevic/buildtl/internal/domain"
	"github.com/vburojevic/buildtl/internal/reconcile"
)

// DefaultStepName is the trace event name of one unit compile
const DefaultStepName = "Csc"

// mtimeSlack absorbs coarse filesystem modification time resolution
const mtimeSlack = time.Second

// Options configure an Ingestor
type Options struct {
	// StepName selects the per-unit compile events (default "Csc")
	StepName string
	// UnitPrefix is prepended to derived unit ids
	UnitPrefix string
	// ProcessID, when set, drops events tagged with a different pid
	ProcessID string
	Logger    *zap.Logger
}

// Ingestor turns trace artifacts into iterations
type Ingestor struct {
	stepName   string
	unitPrefix string
	processID  string
	logger     *zap.Logger
}

// NewIngestor creates an ingestor
func NewIngestor(opts Options) *Ingestor {
	if opts.StepName == "" {
		opts.StepName = DefaultStepName
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Ingestor{
		stepName:   opts.StepName,
		unitPrefix: opts.UnitPrefix,
		processID:  opts.ProcessID,
		logger:     opts.Logger,
	}
}

// artifact mirrors Profile but tells a missing traceEvents key from an empty one
type artifact struct {
	TraceEvents *[]Event `json:"traceEvents"`
}

// Ingest parses raw and returns a copy of target whose units come from the
// trace, mapped onto target's wall-clock compilation window. The returned
// iteration has HasTrace set and boundaries widened to enclose every unit.
func (in *Ingestor) Ingest(raw []byte, target domain.Iteration) (domain.Iteration, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.Iteration{}, notAvailable("artifact is empty")
	}

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return domain.Iteration{}, formatChanged("decode artifact: %w", err)
	}
	if a.TraceEvents == nil {
		return domain.Iteration{}, formatChanged("artifact has no traceEvents list")
	}

	events := lo.Filter(*a.TraceEvents, func(e Event, _ int) bool {
		if e.Timestamp <= 0 {
			return false
		}
		return in.processID == "" || e.ProcessID == "" || string(e.ProcessID) == in.processID
	})
	if len(events) == 0 {
		return domain.Iteration{}, notAvailable("artifact has no timestamped events")
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})

	first := events[0].Timestamp
	last := lo.MaxBy(events, func(a, b Event) bool { return a.End() > b.End() }).End()

	steps := lo.Filter(events, func(e Event, _ int) bool { return e.Name == in.stepName })
	if len(steps) == 0 {
		return domain.Iteration{}, notAvailable("artifact has no %q events", in.stepName)
	}
	steps = lo.Filter(steps, func(e Event, _ int) bool {
		_, ok := e.Detail()
		return ok
	})
	if len(steps) == 0 {
		return domain.Iteration{}, formatChanged("%q events carry no args.detail", in.stepName)
	}

	mapping, err := reconcile.New(first, last, reconcile.Window{
		Started:  target.PassStart(),
		Finished: target.CompilationFinished,
	})
	if err != nil {
		return domain.Iteration{}, notAvailable("reconcile clocks: %w", err)
	}

	dedupe := newDedupeFilter()
	units := make([]domain.Unit, 0, len(steps))
	for _, e := range steps {
		detail, _ := e.Detail()
		id := in.unitID(detail)
		if id == "" {
			continue
		}
		if !dedupe.Check(id, e.Timestamp) {
			continue
		}
		start, end := mapping.Span(e.Timestamp, e.Duration)
		units = append(units, domain.Unit{ID: id, Start: start, End: end})
	}
	if len(units) == 0 {
		return domain.Iteration{}, formatChanged("%q events have no usable args.detail", in.stepName)
	}
	if dups := dedupe.Duplicates(); len(dups) > 0 {
		in.logger.Debug("dropped duplicate trace records", zap.Any("units", dups))
	}

	out := target.Clone()
	merge(&out, units)
	out.HasTrace = true
	reconcile.Widen(&out)

	in.logger.Debug("ingested trace",
		zap.Int("events", len(events)),
		zap.Int("units", len(units)),
		zap.Duration("drift", mapping.Drift()),
	)
	return out, nil
}

// merge lays trace timings over the units of the latest pass, matched by id.
// Diagnostics recorded by the hooks are kept. Units of earlier passes are
// left alone; trace units with no hook counterpart are appended.
func merge(it *domain.Iteration, traced []domain.Unit) {
	passStart := it.PassStart()
	for _, tu := range traced {
		idx := it.LastUnitIndex(tu.ID)
		if idx < 0 || it.Units[idx].Start.Before(passStart) {
			it.Units = append(it.Units, tu)
			continue
		}
		u := &it.Units[idx]
		u.Start, u.End = tu.Start, tu.End
		u.Synthesized = false
	}
}

// IngestFile reads the artifact at path. A missing or unreadable file, or one
// last written before target's compilation started, is ErrNotAvailable.
func (in *Ingestor) IngestFile(path string, target domain.Iteration) (domain.Iteration, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Iteration{}, notAvailable("missing artifact %s", path)
		}
		return domain.Iteration{}, notAvailable("stat artifact: %w", err)
	}
	if start := target.PassStart(); !start.IsZero() && stat.ModTime().Add(mtimeSlack).Before(start) {
		return domain.Iteration{}, notAvailable("artifact %s predates compilation start", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Iteration{}, notAvailable("read artifact: %w", err)
	}
	return in.Ingest(raw, target)
}

// unitID derives a unit id from a step detail: the file name of its first token
func (in *Ingestor) unitID(detail string) string {
	fields := strings.Fields(detail)
	if len(fields) == 0 {
		return ""
	}
	name := fields[0]
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return ""
	}
	return in.unitPrefix + name
}
