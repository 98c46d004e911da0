// Package main is the entry point for the tgdesk operator console.
package main

import (
	"fmt"
	"os"

	"github.com/tgdesk/tgdesk/internal/consoletui"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var _ = []string{commit, date}

func main() {
	if err := consoletui.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
