// Command mirkit inspects MIR fixtures, runs pass pipelines over them and
// manages a SQLite body cache.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/mirkit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Reported {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
