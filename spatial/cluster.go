// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"sort"

	"github.com/uber/h3-go/v4"
)

// Cluster is a group of nearby points collapsed into a single marker.
type Cluster struct {
	Cell    h3.Cell
	Count   int
	Center  Coordinates
	Members []int // indexes into the input slice
}

// ResolutionForZoom maps a map zoom level to an H3 resolution that yields
// cells roughly the size of a marker footprint at that zoom.
func ResolutionForZoom(zoom float64) int {
	res := int(zoom) - 3
	if res < 0 {
		res = 0
	}

	if res > 15 {
		res = 15
	}

	return res
}

// ClusterCoordinates buckets the given points into H3 cells at the given
// resolution. The center of each cluster is the centroid of its members,
// not the cell center, so a single-member cluster sits exactly on its point.
func ClusterCoordinates(points []Coordinates, res int) ([]Cluster, error) {
	byCell := make(map[h3.Cell][]int)

	for i, p := range points {
		cell, err := h3.LatLngToCell(h3.NewLatLng(p.Latitude, p.Longitude), res)
		if err != nil {
			return nil, fmt.Errorf("spatial: converting point %d to h3 cell at res %d: %w", i, res, err)
		}

		byCell[cell] = append(byCell[cell], i)
	}

	clusters := make([]Cluster, 0, len(byCell))

	for cell, members := range byCell {
		var sumLat, sumLng float64
		for _, i := range members {
			sumLat += points[i].Latitude
			sumLng += points[i].Longitude
		}

		n := float64(len(members))
		clusters = append(clusters, Cluster{
			Cell:    cell,
			Count:   len(members),
			Center:  NewCoordinates(sumLat/n, sumLng/n),
			Members: members,
		})
	}

	// stable output order for rendering and tests
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Cell < clusters[j].Cell })

	return clusters, nil
}
