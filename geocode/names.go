// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DisplayName extracts the short label from a formatted address: the first
// comma-separated segment, trimmed ("Toronto, ON, Canada" -> "Toronto").
func DisplayName(formattedAddress string) string {
	name, _, _ := strings.Cut(formattedAddress, ",")

	return strings.TrimSpace(name)
}

// NormalizeKey lowers a place name into a stable lookup key: diacritics
// stripped, non-letters removed. "São Paulo" and "Sao Paulo" collide on
// purpose, so aggregates keyed by name don't split on provider spelling.
func NormalizeKey(name string) string {
	// Remove accents
	s, _, _ := transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		name,
	)

	s = strings.Map(
		func(r rune) rune {
			if unicode.IsLetter(r) {
				return unicode.ToLower(r)
			}

			return -1
		},
		s,
	)

	return s
}
