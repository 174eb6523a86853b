// Lohnkonto - CLI and desktop client for the payroll PDF processing service.
//
// Mode selection:
//   - No args + display available → GUI mode
//   - No args + no display → CLI help
//   - --gui → GUI mode
//   - --cli → CLI mode (force)
//   - CLI subcommands/flags → CLI mode
package main

import (
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/lohnkonto/lohnkonto-client/internal/cli"
	"github.com/lohnkonto/lohnkonto-client/internal/gui"
)

func main() {
	if isCLIMode(os.Args) {
		if err := cli.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := gui.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliPatterns are subcommands and flags that always mean CLI mode.
var cliPatterns = []string{
	// Subcommands
	"process", "convert", "health", "info", "config", "completion", "help",
	// Flags
	"--help", "-h", "--version",
}

// isCLIMode decides between CLI and GUI from the arguments and environment.
//
// CLI mode when --cli is present, a CLI subcommand or flag is present, no
// display is available, or the arguments are not recognized. GUI mode when
// --gui is present or there are no arguments and a display is available.
func isCLIMode(args []string) bool {
	if slices.Contains(args, "--cli") {
		return true
	}
	if slices.Contains(args, "--gui") {
		return false
	}

	for _, arg := range args[1:] {
		if slices.Contains(cliPatterns, arg) {
			return true
		}
	}

	if len(args) == 1 {
		return !hasDisplay()
	}

	// Unknown arguments: let cobra report them
	return true
}

func hasDisplay() bool {
	if runtime.GOOS == "linux" {
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
	return true
}
