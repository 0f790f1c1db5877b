// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

// Package cmd wires the mapsecrets command line interface.
package cmd

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mapsecrets",
	Short: "anonymous notes pinned to places on a map",
	Long: `
mapsecrets drives a map session for leaving and reading anonymous notes:
it resolves the place under the viewport, fetches the notes published
there, keeps the aggregate bubbles fresh and serves the whole thing to
the map widget over HTTP.
`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}

		zerolog.SetGlobalLevel(level)

		if isatty.IsTerminal(os.Stderr.Fd()) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Version is stamped by the build.
var Version = "dev"

// Execute runs the CLI.
func Execute(version string) {
	Version = version

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
