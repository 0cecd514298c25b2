// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

// Package bovp ingests the municipal bulletin of decrees (arrêtés). Each
// document is fetched by numeric id, converted to text, and run through a
// fixed set of independent extraction rules; a document survives only when
// it carries a decree number for the processing year and a recognized
// category.
package bovp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lexpar/lexpar/dataset"
)

// Issuing authorities recognized in decree text.
const (
	IssuerPolice  = "PP"
	IssuerCity    = "Ville"
	IssuerUnknown = "Inconnu"
)

const maxClauseLen = 500

var (
	// Decree number: four-digit year, a letter code, digits. Inner spacing
	// varies between documents and is normalized to single spaces.
	numeroPattern = regexp.MustCompile(`\b(20\d{2}\s*[A-Z]\s*\d+)\b`)

	articlePattern = regexp.MustCompile(`(?i)\bArticle\s*(\d+)`)

	// Road keywords used for address extraction inside the clause. The
	// canonical-key matcher has a longer list; this one mirrors what decree
	// clauses actually use.
	addressPattern = regexp.MustCompile(`(?i)(rue|avenue|boulevard|quai|place)[^,\n]{5,80}`)

	datePattern = regexp.MustCompile(
		`(?i)\b(\d{1,2}\s+(?:janvier|février|mars|avril|mai|juin|juillet|août|septembre|octobre|novembre|décembre)\s+20\d{2})\b`,
	)
)

// Extraction is the structured result of one decree document. Every field is
// optional: a rule that finds nothing leaves its zero value, and the caller
// decides which absences are fatal.
type Extraction struct {
	Numero   string
	Issuer   string
	Category dataset.Type
	Clause   string
	Address  string
	Date     string
}

func extractNumero(text string) string {
	m := numeroPattern.FindString(text)
	if m == "" {
		return ""
	}

	return strings.Join(strings.Fields(m), " ")
}

func extractIssuer(text string) string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "préfecture de police") ||
		strings.Contains(lower, "prefecture de police"):
		return IssuerPolice
	case strings.Contains(lower, "ville de paris"):
		return IssuerCity
	default:
		return IssuerUnknown
	}
}

func extractCategory(text string) dataset.Type {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "stationnement"):
		return dataset.TypeParking
	case strings.Contains(lower, "circulation"):
		return dataset.TypeTraffic
	default:
		return dataset.TypeOther
	}
}

// extractClause returns the text of the first numbered section ("Article 1")
// up to the next section marker or the end of the document, whitespace
// collapsed and bounded to keep storage predictable.
func extractClause(text string) string {
	locs := articlePattern.FindAllStringSubmatchIndex(text, -1)

	start := -1

	var end int

	for _, loc := range locs {
		number := text[loc[2]:loc[3]]
		if start == -1 {
			if number == "1" {
				start = loc[0]
				end = len(text)
			}

			continue
		}

		// First marker after the opening one bounds the clause.
		end = loc[0]

		break
	}

	if start == -1 {
		return ""
	}

	clause := strings.Join(strings.Fields(text[start:end]), " ")

	runes := []rune(clause)
	if len(runes) > maxClauseLen {
		clause = string(runes[:maxClauseLen])
	}

	return clause
}

func extractAddress(clause string) string {
	return strings.TrimSpace(addressPattern.FindString(clause))
}

func extractDate(text string) string {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	return m[1]
}

// Extract runs every rule over the document text. The rules are independent:
// one failing leaves only its own field empty.
func Extract(text string) Extraction {
	clause := extractClause(text)

	return Extraction{
		Numero:   extractNumero(text),
		Issuer:   extractIssuer(text),
		Category: extractCategory(text),
		Clause:   clause,
		Address:  extractAddress(clause),
		Date:     extractDate(text),
	}
}

// Retain reports whether the decree belongs in the dataset: it must carry a
// number issued in the processing year and be about parking or traffic.
func (e Extraction) Retain(year int) bool {
	if e.Numero == "" || !strings.HasPrefix(e.Numero, strconv.Itoa(year)) {
		return false
	}

	return e.Category == dataset.TypeParking || e.Category == dataset.TypeTraffic
}

// Record assembles the canonical record for a retained decree. Decrees are
// not placed at ingestion time; the display layer may geocode the address
// later, so geo starts null and the record must not be dropped for it.
func (e Extraction) Record(id int, docURL, localPath string) dataset.Record {
	info := map[string]string{
		dataset.InfoNumero: e.Numero,
		dataset.InfoIssuer: e.Issuer,
	}

	if e.Date != "" {
		info[dataset.InfoDate] = e.Date
	}

	if e.Clause != "" {
		info[dataset.InfoClause] = e.Clause
	}

	if docURL != "" {
		info[dataset.InfoPdfURL] = docURL
	}

	if localPath != "" {
		info[dataset.InfoPdfLocal] = localPath
	}

	return dataset.Record{
		Type:     e.Category,
		Title:    fmt.Sprintf("Arrêté %s", e.Numero),
		Address:  e.Address,
		Geo:      nil,
		Info:     info,
		SourceID: strconv.Itoa(id),
	}
}
