// Command reflux drives demo app stores, runs scenarios and inspects the
// action journal.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/reflux/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
