// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Femosky/MapOfSecrets/session"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the map session API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if serveAddr != "" {
			cfg.ServerAddress = serveAddr
		}

		ctx := cmd.Context()

		sess, notesStore, err := newSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer sess.Close()

		if notesStore != nil {
			defer notesStore.Close()
		}

		sess.Start(ctx)

		log.Info().
			Str("addr", cfg.ServerAddress).
			Str("backend", cfg.BackendBaseURL).
			Str("fetchLevel", cfg.FetchGranularity).
			Msg("serving map session API")

		return session.NewServer(sess).Run(cfg.ServerAddress)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
}
