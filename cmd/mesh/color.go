package main

import (
	"os"

	"github.com/mattn/go-isatty"
)

// colorEnabled reports whether diff output should carry ANSI highlighting:
// stdout must be a terminal and the caller must not have asked for --no-color.
func colorEnabled(noColor bool) bool {
	if noColor {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
