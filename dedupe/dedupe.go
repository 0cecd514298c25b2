// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

// Package dedupe collapses near-duplicate records: several decrees about the
// same street and category keep only the most current one. Grouping is by
// (canonical address key, record type); records without a usable address are
// never matched against anything, because address-less merging is unsafe.
package dedupe

import (
	"cmp"
	"fmt"
	"log"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/lexpar/lexpar/address"
	"github.com/lexpar/lexpar/dataset"
)

var frenchDatePattern = regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)\s+(\d{4})`)

var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"février":   time.February,
	"fevrier":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"août":      time.August,
	"aout":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"décembre":  time.December,
	"decembre":  time.December,
}

// ParseFrenchDate parses a textual date like "02 janvier 2025". The zero
// time with ok=false means the text holds no parseable date; such records
// fall into the lowest-priority bucket of the survivor order.
func ParseFrenchDate(s string) (time.Time, bool) {
	m := frenchDatePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	month, ok := frenchMonths[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}

	var day, year int

	fmt.Sscanf(m[1], "%d", &day)
	fmt.Sscanf(m[3], "%d", &year)

	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// Result reports what a deduplication pass did.
type Result struct {
	Kept    []dataset.Record
	Removed int
}

// groupKey builds the identity key. Records without an address key get a
// synthetic singleton key so they survive untouched.
func groupKey(i int, r *dataset.Record) string {
	key := address.CanonicalKey(r.DisplayAddress())
	if key == "" {
		return fmt.Sprintf("NO_ADDR_%s_%d", r.SourceID, i)
	}

	return key + "|||" + string(r.Type)
}

// survivorOrder is the total order used to pick one record per group:
// datable records first, more recent date first; among undatable records,
// higher numeric source id first. Ties keep input order.
func survivorOrder(a, b dataset.Record) int {
	dateA, okA := ParseFrenchDate(a.Date())
	dateB, okB := ParseFrenchDate(b.Date())

	switch {
	case okA && okB:
		if dateA.Equal(dateB) {
			return compareSourceID(a, b)
		}

		if dateA.After(dateB) {
			return -1
		}

		return 1
	case okA:
		return -1
	case okB:
		return 1
	default:
		return compareSourceID(a, b)
	}
}

func compareSourceID(a, b dataset.Record) int {
	na, _ := a.NumericSourceID()
	nb, _ := b.NumericSourceID()

	return cmp.Compare(nb, na)
}

// Dedupe groups records by identity key and keeps a single deterministic
// survivor per group. The kept set comes back sorted by descending numeric
// source id.
func Dedupe(records []dataset.Record) Result {
	groups := make(map[string][]dataset.Record)
	order := make([]string, 0, len(records))

	for i := range records {
		key := groupKey(i, &records[i])
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}

		groups[key] = append(groups[key], records[i])
	}

	result := Result{
		Kept: make([]dataset.Record, 0, len(groups)),
	}

	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			result.Kept = append(result.Kept, group[0])

			continue
		}

		slices.SortStableFunc(group, survivorOrder)

		survivor := group[0]
		result.Kept = append(result.Kept, survivor)
		result.Removed += len(group) - 1

		removed := make([]string, 0, len(group)-1)
		for _, r := range group[1:] {
			removed = append(removed, label(&r))
		}

		log.Printf("Dedupe %s - kept %s (%s), removed %s",
			strings.SplitN(key, "|||", 2)[0],
			label(&survivor),
			dateOrPlaceholder(&survivor),
			strings.Join(removed, ", "),
		)
	}

	dataset.SortBySourceID(result.Kept)

	return result
}

func label(r *dataset.Record) string {
	if numero := r.Info[dataset.InfoNumero]; numero != "" {
		return numero
	}

	if r.SourceID != "" {
		return r.SourceID
	}

	return r.Title
}

func dateOrPlaceholder(r *dataset.Record) string {
	if d := r.Date(); d != "" {
		return d
	}

	return "sans date"
}
