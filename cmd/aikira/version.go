package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// GitCommit is set with -ldflags "-X main.GitCommit=...".
var GitCommit string

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

func VersionWithCommit(gitCommit string) string {
	vsn := Version
	if len(gitCommit) >= 8 {
		vsn += "-" + gitCommit[:8]
	}
	return vsn
}

// buildCommit falls back to the vcs revision stamped by go build.
func buildCommit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the aikira proposal box version",
	Long:    `Print the release version of the aikira proposal box, suffixed with the short commit it was built from when known, and the Go runtime.`,
	Aliases: []string{"V"},
	Run:     versionRun,
}

func versionRun(cmd *cobra.Command, args []string) {
	fmt.Printf("aikira %s (%s)\n", VersionWithCommit(buildCommit()), runtime.Version())
}
