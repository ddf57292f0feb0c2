package cli

import (
	"fmt"
	"runtime"

	"github.com/vburojevic/eruption-sensor/internal/output"
)

// VersionCmd shows build information
type VersionCmd struct{}

// VersionOutput represents the NDJSON output for the version command
type VersionOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
}

// Run executes the version command
func (c *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteRecord(&VersionOutput{
			Type:          "version",
			SchemaVersion: output.SchemaVersion,
			Version:       Version,
			Commit:        Commit,
			GoVersion:     runtime.Version(),
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		})
	}

	fmt.Fprintf(globals.Stdout, "eruption-sensor version %s (%s)\n", Version, Commit)
	fmt.Fprintf(globals.Stdout, "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
