// Command wavecap captures and exports oscilloscope waveforms over SCPI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/wavecap/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
