// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package parisdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lexpar/lexpar/dataset"
	"github.com/lexpar/lexpar/geo"
)

// Delimiter used by the Paris open-data portal CSV exports.
const csvDelimiter = ';'

var errNoHeader = errors.New("source has no header row")

// ExtractGeo derives a point from whichever geometry encoding the row
// carries, in fixed order: the combined geo_point_2d field, the geo_shape
// polygon, then any pair of loosely named latitude/longitude columns.
// Returns nil when nothing yields a valid point; callers must pass the nil
// through, never substitute a default position.
func ExtractGeo(row SourceRow) *geo.Point {
	if v := row.Lookup("geo_point_2d"); v != "" {
		if p := geo.ParsePointString(v); p != nil {
			return p
		}
	}

	if v := row.Lookup("geo_shape"); v != "" {
		if p := geo.ShapeCentroid(v); p != nil {
			return p
		}
	}

	var lat, lon float64

	for _, name := range row.Names {
		v := row.Values[name]
		if v == "" {
			continue
		}

		k := strings.ToLower(name)
		if strings.Contains(k, "lat") {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				lat = f
			}
		}

		if strings.Contains(k, "lon") {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				lon = f
			}
		}
	}

	if lat == 0 || lon == 0 || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return nil
	}

	p := geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return nil
	}

	return &p
}

var districtPattern = regexp.MustCompile(`^75[0-9]{3}$`)

// NormalizeDistrict keeps a postal code only when it belongs to the city's
// range. Anything else (suburbs, free text, partial codes) yields "".
func NormalizeDistrict(code string) string {
	code = strings.TrimSpace(code)
	if districtPattern.MatchString(code) {
		return code
	}

	return ""
}

// ConvertMetrics tracks statistics of one CSV conversion. NoGeo counts rows
// dropped because no position could be derived and the descriptor requires one.
type ConvertMetrics struct {
	RowsRead  int
	Converted int
	NoGeo     int
}

// Merge combines two ConvertMetrics.
func (m *ConvertMetrics) Merge(o *ConvertMetrics) *ConvertMetrics {
	m.RowsRead += o.RowsRead
	m.Converted += o.Converted
	m.NoGeo += o.NoGeo

	return m
}

// formatRecord maps one source row onto the canonical record shape. Every
// source column lands in the attributes; the descriptor declares canonical
// naming for the known ones, it is not a whitelist.
func formatRecord(desc *Descriptor, row SourceRow) dataset.Record {
	title := row.Lookup(desc.Title...)
	if title == "" {
		title = fallbackTitle
	}

	info := make(map[string]string, len(row.Names))

	for _, name := range row.Names {
		if v := row.Values[name]; v != "" {
			info[name] = v
		}
	}

	// Declared attributes move under their canonical spelling, whatever
	// vintage spelling the export used.
	for _, attr := range desc.Attributes {
		v := row.Lookup(attr.Aliases...)
		if v == "" {
			continue
		}

		for _, alias := range attr.Aliases {
			want := normalize(alias)

			for _, name := range row.Names {
				if name != attr.Key && normalize(name) == want {
					delete(info, name)
				}
			}
		}

		info[attr.Key] = v
	}

	// The exports link back to the Eudonet permit database under unstable
	// column names; surface the link under one stable key.
	for _, name := range row.Names {
		if strings.Contains(strings.ToLower(name), "eudo") {
			if v := row.Values[name]; v != "" {
				info["lien_eudonet"] = v
			}
		}
	}

	address := row.Lookup(desc.Address...)
	district := NormalizeDistrict(row.Lookup(desc.District...))

	// The disruption export names streets without the postal code; keep the
	// display address self-contained the way the historical converter did.
	if address != "" && district != "" && desc.Type == dataset.TypeDisruption {
		address = fmt.Sprintf("%s, %s", address, district)
	}

	// Same export: the arrondissement is displayed short, 750XX becomes 75XX.
	if desc.Type == dataset.TypeDisruption {
		district = strings.Replace(district, "750", "75", 1)
	}

	return dataset.Record{
		Type:     desc.Type,
		Title:    title,
		Address:  address,
		District: district,
		Geo:      ExtractGeo(row),
		Info:     info,
		SourceID: row.Lookup(desc.SourceID...),
	}
}

// Convert reads a delimited export and produces canonical records. Rows that
// fail to place are logged and either dropped (RequireGeo) or kept with a
// null geo for the display layer to decide.
func Convert(r io.Reader, desc *Descriptor) ([]dataset.Record, *ConvertMetrics, error) {
	cr := csv.NewReader(r)
	cr.Comma = csvDelimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errNoHeader
		}

		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	metrics := &ConvertMetrics{}
	records := make([]dataset.Record, 0, 256)

	for {
		values, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			// Malformed line: log with context and keep going, the rest of
			// the batch must still land.
			log.Printf("Convert %s - skipping malformed row: %s", desc.Name, err)

			continue
		}

		metrics.RowsRead++

		row := NewSourceRow(header, values)

		record := formatRecord(desc, row)
		if record.Geo == nil && desc.RequireGeo {
			metrics.NoGeo++
			log.Printf("Convert %s - row %d %q: no usable geometry, dropped",
				desc.Name, metrics.RowsRead, record.Address)

			continue
		}

		records = append(records, record)
		metrics.Converted++
	}

	return records, metrics, nil
}
