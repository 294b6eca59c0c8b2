// Command bayan runs Bayan programs and inspects saved sessions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bayan/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
