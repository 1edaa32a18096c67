package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

// versionInfo is the build information shown by the version command.
type versionInfo struct {
	Version   string
	GoVersion string
	Revision  string
	Modified  bool
}

// readVersionInfo is replaced in tests.
var readVersionInfo = func() (versionInfo, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return versionInfo{}, false
	}

	v := versionInfo{Version: info.Main.Version, GoVersion: info.GoVersion}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.Revision = setting.Value
		case "vcs.modified":
			v.Modified = setting.Value == "true"
		}
	}

	return v, v.Version != ""
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the deadwood version, the VCS revision and the Go version it was built with.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := readVersionInfo()
			if !ok {
				cmd.Println("deadwood version: unknown")
				return
			}

			cmd.Println("deadwood version\t", info.Version)

			if info.Revision != "" {
				revision := info.Revision
				if info.Modified {
					revision += " (modified)"
				}

				cmd.Println("revision\t", revision)
			}

			cmd.Println("go version\t", info.GoVersion)
		},
	}
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
