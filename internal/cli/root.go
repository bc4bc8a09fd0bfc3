// Package cli implements the clipsync command line tools.
package cli

import (
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the clipsync command tree writing results to stdout and
// logs to stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "clipsync",
		Short:         "Clip-relative playback with silence skipping",
		Version:       appVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		playCmd(stdout, stderr),
		peaksCmd(stdout, stderr),
		silencesCmd(stdout, stderr),
	)
	return root
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown-(no build info)"
	}
	if bi.Main.Version == "" {
		return "unknown-(no version)"
	}
	return bi.Main.Version
}
