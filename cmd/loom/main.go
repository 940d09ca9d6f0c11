// Command loom renders element trees through the incremental reconciler and
// inspects recorded render sessions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/loom/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
