// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

// Package parisdata converts the tabular open-data exports of the city into
// canonical records. Column names drift between export vintages (case,
// accents, byte-order marks, straight vs. curly apostrophes), so every field
// access goes through an alias table resolved with a normalizing comparator.
package parisdata

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var normalizeRegex = regexp.MustCompile(`[^\pL\pN]`)

// normalize reduces a column name to a comparison form: diacritics removed,
// everything that is not a letter or digit dropped (this covers byte-order
// marks, apostrophe variants and spacing), lowercased.
func normalize(s string) string {
	s = normalizeRegex.ReplaceAllString(s, "")

	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		s,
	)

	return strings.ToLower(s)
}

// SourceRow is one raw CSV row: column name → raw value, with the header
// order preserved for scans that walk every column.
type SourceRow struct {
	Names  []string
	Values map[string]string
}

// NewSourceRow builds a row from parallel header and value slices. Extra
// values without a header are dropped; missing values become "".
func NewSourceRow(header, values []string) SourceRow {
	row := SourceRow{
		Names:  header,
		Values: make(map[string]string, len(header)),
	}

	for i, name := range header {
		if i < len(values) {
			row.Values[name] = strings.TrimSpace(values[i])
		} else {
			row.Values[name] = ""
		}
	}

	return row
}

// Lookup resolves a logical field against the row. Candidate names are tried
// in priority order, and each is compared to every raw column name under the
// normalizing comparator, so "Maître d'ouvrage" and "Maitre d’ouvrage" (or a
// BOM-prefixed first column) resolve identically. Returns "" when no
// candidate matches.
func (r SourceRow) Lookup(candidates ...string) string {
	for _, candidate := range candidates {
		want := normalize(candidate)

		for _, name := range r.Names {
			if normalize(name) == want {
				if v := r.Values[name]; v != "" {
					return v
				}
			}
		}
	}

	return ""
}
