// stubkit CLI - command-line interface for the stubkit mock server.
package main

import (
	"github.com/stubkit/stubkit/pkg/cli"
)

// Build-time variables set via ldflags
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate
	cli.Execute()
}
