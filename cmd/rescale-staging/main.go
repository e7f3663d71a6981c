// rescale-staging - staging and workspace provisioning for pipeline runs.
package main

import (
	"os"

	"github.com/rescale/rescale-staging/internal/cli"
	"github.com/rescale/rescale-staging/internal/version"
)

// Version information, overridden with -ldflags at release build time.
var (
	Version   = "v0.1.0"
	BuildTime = "2026-10-19"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
