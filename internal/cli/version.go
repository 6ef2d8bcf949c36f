package cli

import (
	"fmt"

	"github.com/vburojevic/buildtl/internal/output"
)

// VersionCmd shows the build version and how to upgrade
type VersionCmd struct{}

// VersionOutput represents the NDJSON output for version info
type VersionOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	GoInstall     string `json:"go_install"`
	ReleasesURL   string `json:"releases_url"`
}

const (
	goInstallCmd = "go install github.com/vburojevic/buildtl/cmd/buildtl@latest"
	releasesURL  = "https://github.com/vburojevic/buildtl/releases"
)

// Run executes the version command
func (c *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(VersionOutput{
			Type:          "version",
			SchemaVersion: output.SchemaVersion,
			Version:       Version,
			Commit:        Commit,
			GoInstall:     goInstallCmd,
			ReleasesURL:   releasesURL,
		})
	}

	fmt.Fprintf(globals.Stdout, "buildtl %s (%s)\n", Version, Commit)
	fmt.Fprintln(globals.Stdout)
	fmt.Fprintln(globals.Stdout, "To upgrade via Go:")
	fmt.Fprintf(globals.Stdout, "  %s\n", goInstallCmd)
	fmt.Fprintln(globals.Stdout)
	fmt.Fprintln(globals.Stdout, "For release notes, see:")
	fmt.Fprintf(globals.Stdout, "  %s\n", releasesURL)
	return nil
}
