package cli

// validateFlags centralizes common flag combinations to keep behavior consistent.
func validateFlags(globals *Globals, bars bool) error {
	// bars are drawn for humans only
	if bars && globals != nil && globals.Format != "text" {
		return fail(globals, CodeInvalidFlags, "--bars requires text output", "add --format text or remove --bars")
	}
	// quiet + text prints nothing useful
	if globals != nil && globals.Format == "text" && globals.Quiet {
		return fail(globals, CodeInvalidFlags, "--quiet is only supported with ndjson output", "switch to --format ndjson or drop --quiet")
	}
	return nil
}
