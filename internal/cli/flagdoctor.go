package cli

// validateFlags centralizes common flag combinations to keep behavior consistent.
func validateFlags(globals *Globals) error {
	// quiet + text leaves nothing to read; steer to ndjson
	if globals != nil && globals.Format == "text" && globals.Quiet {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--quiet is only supported with ndjson output", "switch to --format ndjson or drop --quiet")
	}
	if globals != nil && globals.Config != nil && globals.Config.Pipe.Path == "" {
		return outputErrorCommon(globals, "INVALID_FLAGS", "no sensor pipe path configured", "set pipe.path or ERUPTION_SENSOR_PIPE_PATH")
	}
	return nil
}
