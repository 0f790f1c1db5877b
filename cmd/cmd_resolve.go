// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Femosky/MapOfSecrets/geocode"
	"github.com/Femosky/MapOfSecrets/spatial"
)

var resolveForward bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <latitude> <longitude>",
	Short: "Resolve the place hierarchy under a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: %w", args[0], err)
		}

		lng, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: %w", args[1], err)
		}

		coords := spatial.NewCoordinates(lat, lng)
		if !coords.Valid() {
			return fmt.Errorf("coordinates out of range: %s", coords)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		resolver, err := newResolver(ctx, cfg)
		if err != nil {
			return err
		}

		loc, err := resolver.GeneralLocation(ctx, coords)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", coords, err)
		}

		printPlace("city/town", loc.CityTown)
		printPlace("state/province", loc.StateProvince)
		printPlace("country", loc.Country)

		if !resolveForward {
			return nil
		}

		gc, err := resolver.GeneralCoordinates(ctx, loc)
		if err != nil {
			return fmt.Errorf("resolving place coordinates: %w", err)
		}

		fmt.Printf("%-16s %s\n", "city/town at", gc.CityTown)
		fmt.Printf("%-16s %s\n", "state/province at", gc.StateProvince)
		fmt.Printf("%-16s %s\n", "country at", gc.Country)

		return nil
	},
}

func printPlace(label string, p geocode.PlaceInfo) {
	fmt.Printf("%-16s %-30s %s\n", label, p.Name, p.PlaceID)
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveForward, "forward", false, "also resolve each level back to coordinates")
	rootCmd.AddCommand(resolveCmd)
}
