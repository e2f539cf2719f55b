// Package main provides the CLI for reffix.
package main

import (
	"os"

	"github.com/leapstack-labs/reffix/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
