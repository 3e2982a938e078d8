// Package main is the entry point for the Argus detection engine CLI.
package main

import (
	"fmt"
	"os"

	"argus/cmd"
)

func run() error {
	return cmd.NewRootCmd().Execute()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
