// Package main is the entry point for the decree CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/cli"
	"github.com/runoshun/decree/internal/domain"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "decree: get current directory: %v\n", err)
		return 1
	}

	container, err := app.New(cwd)
	if err != nil {
		if !errors.Is(err, domain.ErrNotAProject) {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		// Not yet a project: still allow help/version/init to run without
		// a Container. Every other command surfaces ErrNotAProject itself.
		container = nil
	}

	root := cli.NewRootCommand(container, version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, domain.ErrIntegrityViolation) {
			return 2
		}
		return 1
	}
	return 0
}
