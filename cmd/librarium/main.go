// Package main provides the entry point for the librarium CLI.
package main

import (
	"os"

	"github.com/librarium-dev/librarium/cmd/librarium/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
