// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Femosky/MapOfSecrets/notes"
)

var warmLevel string

var warmCmd = &cobra.Command{
	Use:   "warm <placeId>...",
	Short: "Prefetch the notes of one or more places into the local cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level := notes.PlaceLevel(warmLevel)
		if !level.Valid() {
			return fmt.Errorf("unknown place level %q (want cityTown, stateProvince or country)", warmLevel)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.CachePath == "" {
			return fmt.Errorf("warm needs a local cache, set cache_path in the configuration")
		}

		notesStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer notesStore.Close()

		client := newBackend(cfg)
		ctx := cmd.Context()

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(args),
				progressbar.OptionSetDescription("Warming cache"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		var fetched, failed int

		for _, placeID := range args {
			placeNotes, err := client.NotesByPlace(ctx, level, placeID)
			if err != nil {
				log.Warn().Err(err).Str("placeId", placeID).Msg("fetching notes failed")

				failed++
			} else {
				for _, n := range placeNotes {
					if err := notesStore.SaveNote(ctx, n); err != nil {
						return fmt.Errorf("saving note %s: %w", n.ID, err)
					}
				}

				fetched += len(placeNotes)
			}

			if bar != nil {
				_ = bar.Add(1)
			}
		}

		total, err := notesStore.CountNotes(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("fetched %d notes (%d places failed), cache now holds %d\n", fetched, failed, total)

		return nil
	},
}

func init() {
	warmCmd.Flags().StringVar(&warmLevel, "level", string(notes.LevelStateProvince), "place level of the ids")
	rootCmd.AddCommand(warmCmd)
}
