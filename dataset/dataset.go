// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset defines the canonical record format produced by the
// ingestion pipeline and consumed by the map front-end, together with the
// persisted dataset files holding the accumulation of all runs to date.
package dataset

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/lexpar/lexpar/geo"
)

// Type identifies the source category of a record.
type Type string

// Record categories. The names match the datasets published by the city.
const (
	TypeTerrace    Type = "terrasse"
	TypeRoadwork   Type = "travaux"
	TypeDisruption Type = "perturbant"
	TypeParking    Type = "stationnement"
	TypeTraffic    Type = "circulation"
	TypeOther      Type = "autre"
)

// Record is the canonical, origin-independent representation of one source
// item. Records are immutable once persisted: re-runs append new records and
// the deduplication pass removes superseded ones, but fields are never merged.
type Record struct {
	Type     Type              `json:"type"`
	Title    string            `json:"titre"`
	Address  string            `json:"adresse"`
	District string            `json:"arrondissement,omitempty"`
	Geo      *geo.Point        `json:"geo"`
	Info     map[string]string `json:"info,omitempty"`
	SourceID string            `json:"source_id,omitempty"`
	Comment  string            `json:"commentaire"`
}

// Attribute keys shared between the decree extractor and the deduplicator.
const (
	InfoNumero   = "numero"
	InfoIssuer   = "source"
	InfoDate     = "date"
	InfoClause   = "article1"
	InfoPdfURL   = "pdf_url"
	InfoPdfLocal = "pdf_local"
)

// Date returns the raw textual date extracted from the source, or "".
func (r *Record) Date() string {
	return r.Info[InfoDate]
}

// DisplayAddress returns the free-text address, falling back to the decree
// clause when the address could not be isolated from it.
func (r *Record) DisplayAddress() string {
	if r.Address != "" {
		return r.Address
	}

	return r.Info[InfoClause]
}

// NumericSourceID returns the source identifier as a number when it is one.
// Document-derived records carry the numeric gazette id; CSV-derived records
// may carry opaque identifiers that don't compare numerically.
func (r *Record) NumericSourceID() (int, bool) {
	if r.SourceID == "" {
		return 0, false
	}

	n, err := strconv.Atoi(r.SourceID)
	if err != nil {
		return 0, false
	}

	return n, true
}

// wrapper is the legacy on-disk layout: {"data": [...]}. Bare arrays are the
// other accepted form.
type wrapper struct {
	Data []Record `json:"data"`
}

// Load reads a dataset file. Both the bare-array layout and the {"data": []}
// wrapper are accepted; wrapped reports which one was found so that Save can
// preserve it.
func Load(path string) (records []Record, wrapped bool, err error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, false, fmt.Errorf("reading dataset %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &records); err == nil {
		return records, false, nil
	}

	var w wrapper
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, false, fmt.Errorf("parsing dataset %s: %w", path, err)
	}

	if w.Data == nil {
		return nil, true, fmt.Errorf("parsing dataset %s: no data array", path)
	}

	return w.Data, true, nil
}

// LoadOrEmpty is Load, treating a missing file as an empty dataset. Used by
// incremental runs where the first invocation starts from nothing.
func LoadOrEmpty(path string) ([]Record, bool, error) {
	records, wrapped, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}

	return records, wrapped, err
}

// Save writes the dataset wholesale. The write goes through a temporary file
// in the same directory followed by a rename, so a consumer never observes a
// partially written dataset.
func Save(path string, records []Record, wrapped bool) error {
	var payload any = records
	if wrapped {
		payload = wrapper{Data: records}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling dataset: %w", err)
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temporary dataset file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(
			fmt.Errorf("writing dataset: %w", err),
			tmp.Close(),
			os.Remove(tmpName),
		)
	}

	if err := tmp.Close(); err != nil {
		return errors.Join(
			fmt.Errorf("closing dataset file: %w", err),
			os.Remove(tmpName),
		)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Join(
			fmt.Errorf("replacing dataset %s: %w", path, err),
			os.Remove(tmpName),
		)
	}

	return nil
}

// Merge appends incoming records to the existing dataset. Records whose
// source id is already present are skipped, so re-running the same ingestion
// never duplicates nor overwrites persisted data. Records without a source id
// are always appended; collapsing those is the deduplication pass' job, run
// separately and explicitly.
func Merge(existing, incoming []Record) (merged []Record, added, skipped int) {
	known := make(map[string]struct{}, len(existing))

	for _, r := range existing {
		if r.SourceID != "" {
			known[r.SourceID] = struct{}{}
		}
	}

	merged = slices.Clone(existing)

	for _, r := range incoming {
		if r.SourceID != "" {
			if _, ok := known[r.SourceID]; ok {
				skipped++

				continue
			}

			known[r.SourceID] = struct{}{}
		}

		merged = append(merged, r)
		added++
	}

	SortBySourceID(merged)

	return merged, added, skipped
}

// SortBySourceID orders records by descending numeric source id, the
// convention of the decree dataset. Records without a numeric id sort last
// and keep their relative order.
func SortBySourceID(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		na, aok := a.NumericSourceID()
		nb, bok := b.NumericSourceID()

		switch {
		case aok && bok:
			return cmp.Compare(nb, na)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})
}
