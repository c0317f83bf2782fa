// Package main provides the retrace CLI: inspect, replay and index
// tracefiles recorded by graph-transformation program runs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserError)
	}
}
