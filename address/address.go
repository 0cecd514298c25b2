// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

// Package address reduces free-text Paris addresses to the comparison key
// used for duplicate grouping. The key is a heuristic: two spellings of the
// same location may still produce different keys, and that is preferred over
// merging records that describe distinct locations.
package address

import (
	"regexp"
	"strings"
)

// Road-type keywords that anchor an address inside free text. Order matters
// only for readability; the regex alternation is longest-match anyway.
var roadPattern = regexp.MustCompile(
	`(?i)(rue|avenue|boulevard|quai|place|passage|villa|square|impasse|voie|cours|allée|cité)[^,\n]{5,80}`,
)

// House-number forms seen in decrees: "12", "n°12", "au droit du n°12",
// "12 au 16", "12 et 14".
var numberPattern = regexp.MustCompile(
	`(?i)\b(\d+\s*(?:au|et)\s*\d+|au droit du\s*n?°?\s*\d+|n°?\s*\d+|\d+)\b`,
)

var punctuation = strings.NewReplacer(",", "", ";", "", ".", "")

const maxKeyLen = 50

// CanonicalKey derives the grouping key for an address. Returns "" only when
// the input is empty; callers treat "" as "no key" and never group such
// records with anything.
func CanonicalKey(adresse string) string {
	normalized := strings.TrimSpace(
		punctuation.Replace(
			strings.Join(strings.Fields(strings.ToLower(adresse)), " "),
		),
	)
	if normalized == "" {
		return ""
	}

	loc := roadPattern.FindStringIndex(normalized)
	if loc == nil {
		// No road keyword anywhere: the whole normalized string, bounded.
		return truncate(normalized, maxKeyLen)
	}

	// Candidate runs from the start of the string through the end of the
	// road-keyword match, so a leading house number stays part of the key.
	candidate := strings.TrimSpace(normalized[:loc[1]])

	if numberPattern.MatchString(candidate) {
		return candidate
	}

	// No number anywhere: the street alone, bounded.
	return truncate(strings.TrimSpace(normalized[loc[0]:loc[1]]), maxKeyLen)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return strings.TrimSpace(string(runes[:n]))
}
