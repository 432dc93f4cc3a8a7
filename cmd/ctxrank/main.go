// Package main provides the entry point for the ctxrank CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/ctxrank/cmd/ctxrank/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
