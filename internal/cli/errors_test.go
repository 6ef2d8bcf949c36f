package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailText(t *testing.T) {
	globals, stdout, stderr, _ := testGlobals(t, "text")

	err := fail(globals, CodeIterationNotFound, "no iteration abc", "run 'buildtl show' to list iterations")
	require.Error(t, err)
	assert.Empty(t, stdout.String())
	assert.Equal(t, "buildtl: no iteration abc [ITERATION_NOT_FOUND]\n  hint: run 'buildtl show' to list iterations\n", stderr.String())

	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, CodeIterationNotFound, ce.Code)
	assert.Equal(t, "no iteration abc", ce.Error())
	assert.Equal(t, ExitFailure, ce.ExitCode())
}

func TestFailTextWithoutHint(t *testing.T) {
	globals, _, stderr, _ := testGlobals(t, "text")
	_ = fail(globals, CodeStorage, "disk full")
	assert.Equal(t, "buildtl: disk full [STORAGE_ERROR]\n", stderr.String())
}

func TestFailNDJSON(t *testing.T) {
	globals, stdout, stderr, _ := testGlobals(t, "ndjson")

	err := fail(globals, CodeInvalidFlags, "--keep must be at least 1", "use 'buildtl clear' to drop everything")
	assert.Empty(t, stderr.String())

	errs := ofType(records(t, stdout), "error")
	require.Len(t, errs, 1)
	assert.Equal(t, "INVALID_FLAGS", errs[0]["code"])
	assert.Equal(t, "--keep must be at least 1", errs[0]["message"])
	assert.Equal(t, "use 'buildtl clear' to drop everything", errs[0]["hint"])

	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ExitUsage, ce.ExitCode())
}

func TestFailWithoutGlobals(t *testing.T) {
	err := fail(nil, CodeIngestFailed, "boom")
	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, CodeIngestFailed, ce.Code)
}

func TestErrorSchemaListsEveryCode(t *testing.T) {
	code := errorSchema()["properties"].(map[string]interface{})["code"].(map[string]interface{})
	enum := code["enum"].([]string)
	require.Len(t, enum, len(errorCodes))
	for _, c := range errorCodes {
		assert.Contains(t, enum, string(c))
	}
}
