package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vburojevic/buildtl/internal/domain"
	"github.com/vburojevic/buildtl/internal/filter"
	"github.com/vburojevic/buildtl/internal/layout"
	"github.com/vburojevic/buildtl/internal/output"
	"github.com/vburojevic/buildtl/internal/timeline"
)

// ShowCmd prints the recorded timeline
type ShowCmd struct {
	Iteration string   `short:"i" help:"Only this iteration (ID or unique prefix)"`
	Pattern   string   `short:"p" help:"Regex pattern units must match"`
	Exclude   []string `short:"x" sep:"none" help:"Regex pattern to exclude units (can be repeated)"`
	Where     []string `short:"w" sep:"none" help:"Field filter, e.g. duration>=2s or unit~Editor (can be repeated)"`
	Bars      bool     `help:"Draw a bar per slot (text output only)"`
	Width     int      `default:"60" help:"Bar width in columns"`
	Reloads   bool     `help:"Lay iterations out after their reload instead of after compilation"`
	Report    bool     `help:"Append a compilation report"`
}

// Run executes the show command
func (c *ShowCmd) Run(globals *Globals) error {
	if err := validateFlags(globals, c.Bars); err != nil {
		return err
	}
	pipeline, err := c.pipeline()
	if err != nil {
		return fail(globals, CodeInvalidFilter, err.Error())
	}

	h, err := openRecorder(globals)
	if err != nil {
		return err
	}
	defer h.Close()

	session := h.Snapshot()
	if c.Iteration != "" {
		session, err = selectIteration(session, c.Iteration)
		if err != nil {
			return fail(globals, CodeIterationNotFound, err.Error(), "run 'buildtl show' to list iterations")
		}
	}

	now := h.Now()
	reloads := c.Reloads || globals.Config.UI.ShowReloads
	tl := layout.Build(session, now, layout.Options{ShowReloads: reloads})
	rows := pipeline.Apply(layout.Rows(session, tl))
	globals.Debug("Laid out %d units in %d slots", len(tl.Entries), tl.Slots)

	var report *output.ReportOutput
	if c.Report {
		report = output.NewReportOutput(timeline.Summarize(session, now), tl.Slots)
	}

	if globals.Format == "ndjson" {
		w := output.NewNDJSONWriter(globals.Stdout)
		if err := w.WriteRows(rows); err != nil {
			return err
		}
		if report != nil {
			return w.WriteReport(report)
		}
		return nil
	}

	w := output.NewTextWriter(globals.Stdout)
	if c.Bars {
		if err := w.WriteBars(rows, tl.Slots, tl.Total, c.Width); err != nil {
			return err
		}
	} else if err := w.WriteTable(rows); err != nil {
		return err
	}
	if report != nil {
		fmt.Fprintln(globals.Stdout)
		return w.WriteReport(report)
	}
	return nil
}

func (c *ShowCmd) pipeline() (*filter.Pipeline, error) {
	var pattern *regexp.Regexp
	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern regex: %w", err)
		}
		pattern = re
	}
	excludes := make([]*regexp.Regexp, 0, len(c.Exclude))
	for _, x := range c.Exclude {
		re, err := regexp.Compile(x)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude regex %q: %w", x, err)
		}
		excludes = append(excludes, re)
	}
	where, err := filter.NewWhereFilter(c.Where)
	if err != nil {
		return nil, err
	}
	return filter.NewPipeline(pattern, excludes, where), nil
}

// selectIteration narrows s to the iteration whose ID equals or uniquely
// starts with ref.
func selectIteration(s *domain.Session, ref string) (*domain.Session, error) {
	if it, ok := s.Find(ref); ok {
		return &domain.Session{Iterations: []domain.Iteration{*it}}, nil
	}
	var match []domain.Iteration
	for _, it := range s.Iterations {
		if strings.HasPrefix(it.ID, ref) {
			match = append(match, it)
		}
	}
	switch len(match) {
	case 0:
		return nil, fmt.Errorf("no iteration %q", ref)
	case 1:
		return &domain.Session{Iterations: match}, nil
	default:
		return nil, fmt.Errorf("iteration prefix %q is ambiguous (%d matches)", ref, len(match))
	}
}
