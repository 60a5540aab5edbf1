package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/blang/semver"
	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appBuilt   = "unknown"
)

// SetVersion records the build metadata injected by the linker
func SetVersion(version, buildTime string) {
	appVersion = version
	appBuilt = buildTime
	rootCmd.Version = version
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// no config needed to print the version
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), versionInfo(appVersion, appBuilt))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionInfo formats the version report. Versions that are not semver,
// such as "dev", are reported as development builds.
func versionInfo(version, buildTime string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "marquee %s\n", version)
	fmt.Fprintf(&sb, "Built: %s\n", buildTime)
	fmt.Fprintf(&sb, "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	v, err := semver.ParseTolerant(version)
	switch {
	case err != nil:
		sb.WriteString("Channel: development\n")
	case len(v.Pre) > 0:
		fmt.Fprintf(&sb, "Channel: pre-release (%d.%d.%d)\n", v.Major, v.Minor, v.Patch)
	default:
		sb.WriteString("Channel: stable\n")
	}

	return sb.String()
}
