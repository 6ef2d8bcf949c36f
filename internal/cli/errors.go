package cli

import (
	"fmt"
	"io"

	"github.com/samber/lo"

	"github.com/vburojevic/buildtl/internal/output"
)

// ErrorCode classifies a command failure in error records
type ErrorCode string

const (
	CodeInvalidConfig      ErrorCode = "INVALID_CONFIG"
	CodeInvalidFlags       ErrorCode = "INVALID_FLAGS"
	CodeInvalidFilter      ErrorCode = "INVALID_FILTER"
	CodeInvalidDiagnostic  ErrorCode = "INVALID_DIAGNOSTIC"
	CodeIterationNotFound  ErrorCode = "ITERATION_NOT_FOUND"
	CodeStorage            ErrorCode = "STORAGE_ERROR"
	CodeTraceNotAvailable  ErrorCode = "TRACE_NOT_AVAILABLE"
	CodeTraceFormatChanged ErrorCode = "TRACE_FORMAT_CHANGED"
	CodeIngestFailed       ErrorCode = "INGEST_FAILED"
)

var errorCodes = []ErrorCode{
	CodeInvalidConfig,
	CodeInvalidFlags,
	CodeInvalidFilter,
	CodeInvalidDiagnostic,
	CodeIterationNotFound,
	CodeStorage,
	CodeTraceNotAvailable,
	CodeTraceFormatChanged,
	CodeIngestFailed,
}

// Exit statuses
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// CommandError is a failure that has already been shown to the user
type CommandError struct {
	Code    ErrorCode
	Message string
	Hint    string
}

func (e *CommandError) Error() string {
	return e.Message
}

// ExitCode is ExitUsage for bad input (flags, config, filters, diagnostics)
// and ExitFailure for everything else.
func (e *CommandError) ExitCode() int {
	switch e.Code {
	case CodeInvalidConfig, CodeInvalidFlags, CodeInvalidFilter, CodeInvalidDiagnostic:
		return ExitUsage
	default:
		return ExitFailure
	}
}

// write renders e as an ndjson error record or as a stderr line plus an
// optional hint line.
func (e *CommandError) write(format string, stdout, stderr io.Writer) {
	if format == "ndjson" {
		output.NewNDJSONWriter(stdout).WriteError(string(e.Code), e.Message, e.Hint)
		return
	}
	fmt.Fprintf(stderr, "buildtl: %s [%s]\n", e.Message, e.Code)
	if e.Hint != "" {
		fmt.Fprintf(stderr, "  hint: %s\n", e.Hint)
	}
}

// fail reports a command failure in the selected format and returns it
func fail(globals *Globals, code ErrorCode, message string, hint ...string) error {
	e := &CommandError{Code: code, Message: message, Hint: lo.FirstOrEmpty(hint)}
	if globals != nil {
		e.write(globals.Format, globals.Stdout, globals.Stderr)
	}
	return e
}
