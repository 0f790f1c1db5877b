// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Femosky/MapOfSecrets/notes"
)

var countsCache bool

var countsCmd = &cobra.Command{
	Use:   "counts [level]",
	Short: "Show the aggregate note counts per place",
	Long: `
Fetches the number of notes per country, state/province or city/town from
the backend. Without a level argument it shows all three, coarsest first.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		levels := []notes.PlaceLevel{notes.LevelCountry, notes.LevelStateProvince, notes.LevelCityTown}

		if len(args) == 1 {
			level := notes.PlaceLevel(args[0])
			if !level.Valid() {
				return fmt.Errorf("unknown place level %q (want cityTown, stateProvince or country)", args[0])
			}

			levels = []notes.PlaceLevel{level}
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := newBackend(cfg)
		ctx := cmd.Context()

		notesStore, err := openStore(cfg)
		if err != nil {
			return err
		}

		if notesStore != nil {
			defer notesStore.Close()
		}

		for _, level := range levels {
			data, err := client.LocationCounts(ctx, level)
			if err != nil {
				return fmt.Errorf("fetching %s counts: %w", level, err)
			}

			fmt.Printf("%s (%d places)\n", level, len(data))

			for _, pd := range data {
				fmt.Printf("  %6d  %s\n", pd.Count, pd.Coordinates)
			}

			if countsCache && notesStore != nil {
				if err := notesStore.ReplaceCounts(ctx, level, data); err != nil {
					log.Warn().Err(err).Str("level", string(level)).Msg("caching counts failed")
				}
			}
		}

		return nil
	},
}

func init() {
	countsCmd.Flags().BoolVar(&countsCache, "cache", false, "store the fetched counts in the local cache")
	rootCmd.AddCommand(countsCmd)
}
