// Command backup is the CLI front end for the encrypted, content-addressed
// backup engine: it wires a Backend, a Repository, and the core
// operations (archiver, restorer, gc, verify) behind cobra subcommands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}
