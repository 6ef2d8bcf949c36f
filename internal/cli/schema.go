package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// SchemaCmd outputs JSON Schema for buildtl ndjson records
type SchemaCmd struct {
	Type []string `short:"t" help:"Record types to include (unit,report,error,anomaly,iteration_change). Default: all"`
	List bool     `help:"List record types instead of printing schemas"`
}

var schemaTypes = []string{"unit", "report", "error", "anomaly", "iteration_change"}

// Run executes the schema command
func (c *SchemaCmd) Run(globals *Globals) error {
	if c.List {
		c.outputTextHelp(globals)
		return nil
	}

	schemas := map[string]map[string]interface{}{
		"unit":             unitSchema(),
		"report":           reportSchema(),
		"error":            errorSchema(),
		"anomaly":          anomalySchema(),
		"iteration_change": iterationChangeSchema(),
	}

	typesToOutput := c.Type
	if len(typesToOutput) == 0 {
		typesToOutput = schemaTypes
	}

	defs := map[string]interface{}{}
	for _, t := range typesToOutput {
		t = strings.ToLower(strings.TrimSpace(t))
		if schema, ok := schemas[t]; ok {
			defs[t] = schema
		}
	}

	out := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "buildtl Output Schemas",
		"description": "JSON Schema definitions for all buildtl NDJSON record types",
		"definitions": defs,
	}

	encoder := json.NewEncoder(globals.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func constProp(value string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "const": value}
}

func record(title, description string, props map[string]interface{}, required ...string) map[string]interface{} {
	props["schemaVersion"] = prop("integer", "Record schema version")
	return map[string]interface{}{
		"type":        "object",
		"title":       title,
		"description": description,
		"properties":  props,
		"required":    append([]string{"type", "schemaVersion"}, required...),
	}
}

func unitSchema() map[string]interface{} {
	return record("Unit", "One compiled unit placed on the timeline", map[string]interface{}{
		"type":        constProp("unit"),
		"iteration":   prop("string", "Iteration ID (uuid)"),
		"unit":        prop("string", "Unit identifier"),
		"slot":        prop("integer", "Display row; overlapping units never share a slot"),
		"offset_ms":   prop("number", "Start offset from the first iteration's compilation start"),
		"duration_ms": prop("number", "Unit duration; running units are measured up to now"),
		"running":     prop("boolean", "Unit has not finished yet"),
		"synthesized": prop("boolean", "Start time was estimated"),
		"traced":      prop("boolean", "Timing came from the trace artifact"),
		"errors":      prop("integer", "Error diagnostics reported at finish"),
		"warnings":    prop("integer", "Warning diagnostics reported at finish"),
	}, "iteration", "unit", "slot", "offset_ms", "duration_ms", "running")
}

func reportSchema() map[string]interface{} {
	return record("Compilation Report", "Timings aggregated across recorded iterations", map[string]interface{}{
		"type":           constProp("report"),
		"iterations":     prop("integer", "Non-empty iterations"),
		"units":          prop("integer", "Units across all iterations"),
		"slots":          prop("integer", "Display rows needed"),
		"errors":         prop("integer", "Error diagnostics"),
		"warnings":       prop("integer", "Warning diagnostics"),
		"total_ms":       prop("number", "Compilation start to reload end, summed"),
		"compilation_ms": prop("number", "Compilation start to finish, summed"),
		"unit_span_ms":   prop("number", "First unit start to last unit end, summed"),
		"reload_ms":      prop("number", "Reload spans, summed"),
		"running":        prop("boolean", "A compilation is in progress"),
		"traced":         prop("integer", "Iterations with trace timing"),
	}, "iterations", "units", "total_ms")
}

func errorSchema() map[string]interface{} {
	code := prop("string", "Error code")
	code["enum"] = lo.Map(errorCodes, func(c ErrorCode, _ int) string { return string(c) })
	return record("Error", "Error message from buildtl", map[string]interface{}{
		"type":    constProp("error"),
		"code":    code,
		"message": prop("string", "Human-readable error description"),
		"hint":    prop("string", "Suggested fix"),
	}, "code", "message")
}

func anomalySchema() map[string]interface{} {
	kind := prop("string", "Anomaly kind")
	kind["enum"] = []string{"protocol_violation", "artifact_format_changed", "implausible_duration", "storage_corruption"}
	return record("Anomaly", "A recovered inconsistency in the hook event stream or storage", map[string]interface{}{
		"type":      constProp("anomaly"),
		"kind":      kind,
		"iteration": prop("string", "Iteration ID, when known"),
		"unit":      prop("string", "Unit identifier, when relevant"),
		"detail":    prop("string", "What was recovered"),
		"timestamp": map[string]interface{}{"type": "string", "format": "date-time"},
	}, "kind", "detail", "timestamp")
}

func iterationChangeSchema() map[string]interface{} {
	reason := prop("string", "Why the current iteration changed")
	reason["enum"] = []string{"new_pass", "continuation", "cleared", "pruned"}
	return record("Iteration Change", "Emitted with --verbose when history changes", map[string]interface{}{
		"type":           constProp("iteration_change"),
		"iteration":      prop("string", "Current iteration ID"),
		"prev_iteration": prop("string", "Previous current iteration ID"),
		"count":          prop("integer", "Iterations retained"),
		"reason":         reason,
		"timestamp":      map[string]interface{}{"type": "string", "format": "date-time"},
	}, "iteration", "count", "reason", "timestamp")
}

func (c *SchemaCmd) outputTextHelp(globals *Globals) {
	fmt.Fprintln(globals.Stdout, "buildtl Output Types:")
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "  unit             - Unit placed on the timeline")
	fmt.Fprintln(globals.Stdout, "  report           - Compilation report")
	fmt.Fprintln(globals.Stdout, "  error            - Error from buildtl")
	fmt.Fprintln(globals.Stdout, "  anomaly          - Recovered inconsistency")
	fmt.Fprintln(globals.Stdout, "  iteration_change - History change (verbose)")
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Use --type to filter: buildtl schema --type unit,report")
}
