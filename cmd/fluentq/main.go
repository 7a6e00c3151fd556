// Command fluentq evaluates, translates and inspects query definitions.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/codepb/fluentqueries/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			// Already reported by the command
			os.Exit(exitErr.Code)
		}
		// Flag and argument errors
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
}
