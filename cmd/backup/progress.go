package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// isInteractive reports whether stderr is a terminal, the signal the
// corpus's CLIs use to decide between a live progress bar and plain
// line-oriented logging.
func isInteractive() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// newSpinner returns an indeterminate progress bar for operations
// that don't know a total ahead of time (e.g. the archiver walk),
// or nil when stderr isn't a terminal.
func newSpinner(description string) *progressbar.ProgressBar {
	if !isInteractive() {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errColor     = color.New(color.FgRed)
)
