package main

import (
	"github.com/skylite-dev/skylite/internal/cli"
)

// main is the entry point for the Skylite application.
// It delegates to the CLI package which handles command parsing and execution.
func main() {
	cli.Execute()
}
