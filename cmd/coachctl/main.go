// Package main implements coachctl, a command-line companion to the coach API
// for repairing raw model output and running one-off generations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
