// Command flash renders descriptor frames with keyed reconciliation,
// journals commits to SQLite and replays journals for determinism.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/flash/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
