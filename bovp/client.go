// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package bovp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/lexpar/lexpar/dataset"
	"github.com/lexpar/lexpar/doctext"
	"github.com/lexpar/lexpar/utils/httputils"
)

// DefaultBaseURL is the bulletin's document endpoint; the numeric document
// id is appended as-is.
const DefaultBaseURL = "https://bovp.apps.paris.fr/doc_num_data.php?explnum_id="

// Defaults matching the historical ingestion scripts.
const (
	DefaultMaxConsecutiveMisses = 30
	DefaultMaxDownloads         = 100
)

var errNoStartingPoint = errors.New("no existing dataset and no explicit id range")

// ClientOptions configures one ingestion run over the bulletin.
type ClientOptions struct {
	// BaseURL of the document endpoint; DefaultBaseURL when empty
	BaseURL string

	// CachePath is the directory holding fetched documents
	CachePath string

	// DatasetPath is the merged decree dataset file
	DatasetPath string

	// StartID and EndID bound the numeric scan. StartID 0 resumes after the
	// highest id already in the dataset; EndID 0 leaves the scan open-ended,
	// bounded only by the miss limit and the download cap.
	StartID int
	EndID   int

	// MaxDownloads caps new fetches per run
	MaxDownloads int

	// MaxConsecutiveMisses terminates an open-ended scan once the id range
	// looks dead
	MaxConsecutiveMisses int

	// Year overrides the processing year used by the retention rule
	Year int

	// SkipFetch extracts from the cache only
	SkipFetch bool

	// Dry run, don't persist any change
	DryRun bool

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool
}

// Metrics tracks statistics collected during an ingestion run.
type Metrics struct {
	Fetched      int // documents downloaded this run
	FetchErrors  int // failed fetch attempts
	AlreadyKnown int // ids already present in the dataset
	Extracted    int // documents that yielded a retained record
	Filtered     int // documents rejected by the retention rule
	ExtractErrs  int // documents whose text could not be processed
	Added        int // records new to the dataset after the merge
	Skipped      int // records the merge found already persisted
}

// Merge combines the metrics from another instance into this one.
func (m *Metrics) Merge(other *Metrics) *Metrics {
	if other == nil {
		return m
	}

	m.Fetched += other.Fetched
	m.FetchErrors += other.FetchErrors
	m.AlreadyKnown += other.AlreadyKnown
	m.Extracted += other.Extracted
	m.Filtered += other.Filtered
	m.ExtractErrs += other.ExtractErrs
	m.Added += other.Added
	m.Skipped += other.Skipped

	return m
}

// Client drives the fetch-and-extract loop over the bulletin.
type Client struct {
	options *ClientOptions
	client  *http.Client
	clock   clockwork.Clock
	Metrics Metrics
}

// NewClient creates a client. The clock decides the processing year when the
// options don't pin one; tests inject a fake.
func NewClient(options *ClientOptions, clock clockwork.Clock) *Client {
	if options == nil {
		options = &ClientOptions{}
	}

	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}

	if options.MaxConsecutiveMisses == 0 {
		options.MaxConsecutiveMisses = DefaultMaxConsecutiveMisses
	}

	if options.MaxDownloads == 0 {
		options.MaxDownloads = DefaultMaxDownloads
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		MaxConnsPerHost:       4,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: transport,
	}

	userAgent := "lexpar/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "*/*",
		},
		Transport: loggingTransport,
	}

	return &Client{
		options: options,
		client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: headerTransport,
		},
		clock: clock,
	}
}

// Year returns the processing year governing the retention rule.
func (c *Client) Year() int {
	if c.options.Year != 0 {
		return c.options.Year
	}

	return c.clock.Now().Year()
}

// cachePath returns the local file for a document id, probing the known
// extensions. found is false when nothing is cached yet.
func (c *Client) cachePath(id int) (path string, found bool) {
	for _, ext := range []string{"pdf", "html"} {
		path = filepath.Join(c.options.CachePath, fmt.Sprintf("%d.%s", id, ext))
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	return filepath.Join(c.options.CachePath, fmt.Sprintf("%d.pdf", id)), false
}

// fetch downloads one document into the cache. A miss (dead id, non-document
// response) is not an error for the batch: the caller counts it and moves on.
func (c *Client) fetch(ctx context.Context, id int) (path string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.options.BaseURL+fmt.Sprint(id), nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %d: %w", id, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching document %d: %w", id, err)
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing resp.Body: %w", cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching document %d: status %d", id, resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	disposition := resp.Header.Get("Content-Disposition")

	ext := ""

	switch {
	case strings.Contains(media, "pdf") || strings.Contains(disposition, ".pdf"):
		ext = "pdf"
	case strings.Contains(media, "html"):
		// Some documents are published as HTML renditions; error pages come
		// back this way too, and the extractor filters those out.
		ext = "html"
	default:
		return "", fmt.Errorf("fetching document %d: media type %q", id, media)
	}

	if err := os.MkdirAll(c.options.CachePath, 0o700); err != nil {
		return "", fmt.Errorf("setting up document cache: %w", err)
	}

	path = filepath.Join(c.options.CachePath, fmt.Sprintf("%d.%s", id, ext))

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("creating cache file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", errors.Join(
			fmt.Errorf("writing cache file: %w", err),
			f.Close(),
			os.Remove(path),
		)
	}

	if err := f.Close(); err != nil {
		return "", errors.Join(
			fmt.Errorf("closing cache file: %w", err),
			os.Remove(path),
		)
	}

	return path, nil
}

// maxKnownID returns the highest numeric source id in the dataset, 0 when
// there is none.
func maxKnownID(records []dataset.Record) int {
	ret := 0

	for i := range records {
		if n, ok := records[i].NumericSourceID(); ok && n > ret {
			ret = n
		}
	}

	return ret
}

// Update runs one ingestion batch: scan the id range, fetch what is missing,
// extract, filter by the retention rule, and merge the survivors into the
// dataset. Individual ids failing never abort the batch; a run of
// consecutive misses terminates an open-ended scan early.
func (c *Client) Update(ctx context.Context) error {
	existing, wrapped, err := dataset.LoadOrEmpty(c.options.DatasetPath)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	// A fresh dataset keeps the wrapped layout of the historical file.
	if len(existing) == 0 {
		wrapped = true
	}

	known := make(map[int]struct{}, len(existing))

	for i := range existing {
		if n, ok := existing[i].NumericSourceID(); ok {
			known[n] = struct{}{}
		}
	}

	start := c.options.StartID
	if start == 0 {
		last := maxKnownID(existing)
		if last == 0 {
			return errNoStartingPoint
		}

		start = last + 1
		log.Printf("Update - resuming after last known document %d", last)
	}

	year := c.Year()
	log.Printf("Update - scanning from %d (processing year %d)", start, year)

	var bar *progressbar.ProgressBar
	if c.options.EndID >= start && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(c.options.EndID-start+1,
			progressbar.OptionSetDescription("Fetching decrees"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var incoming []dataset.Record

	misses := 0
	downloads := 0

	for id := start; c.options.EndID == 0 || id <= c.options.EndID; id++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch interrupted at document %d: %w", id, err)
		}

		if bar != nil {
			_ = bar.Add(1)
		}

		if misses >= c.options.MaxConsecutiveMisses {
			log.Printf("Update - %d consecutive misses, stopping the scan at %d", misses, id)

			break
		}

		if c.options.EndID == 0 && downloads >= c.options.MaxDownloads {
			log.Printf("Update - download cap of %d reached, stopping the scan at %d", downloads, id)

			break
		}

		if _, ok := known[id]; ok {
			c.Metrics.AlreadyKnown++

			continue
		}

		path, cached := c.cachePath(id)
		if !cached {
			if c.options.SkipFetch {
				misses++

				continue
			}

			path, err = c.fetch(ctx, id)
			if err != nil {
				c.Metrics.FetchErrors++
				misses++

				log.Printf("Update - document %d: %s", id, err)

				continue
			}

			c.Metrics.Fetched++
			downloads++
		}

		// The id exists, the dead-range streak is over.
		misses = 0

		text, err := doctext.FromFile(path)
		if err != nil {
			c.Metrics.ExtractErrs++
			log.Printf("Update - document %d: %s", id, err)

			continue
		}

		extraction := Extract(text)
		if !extraction.Retain(year) {
			c.Metrics.Filtered++

			continue
		}

		incoming = append(
			incoming,
			extraction.Record(id, c.options.BaseURL+fmt.Sprint(id), path),
		)
		c.Metrics.Extracted++
	}

	merged, added, skipped := dataset.Merge(existing, incoming)
	c.Metrics.Added = added
	c.Metrics.Skipped = skipped

	if !c.options.DryRun {
		if err := dataset.Save(c.options.DatasetPath, merged, wrapped); err != nil {
			return fmt.Errorf("saving dataset: %w", err)
		}
	}

	log.Printf(
		"Update complete - %d fetched, %d fetch errors, %d filtered, %d extraction errors, %d new records (%d already known)",
		c.Metrics.Fetched,
		c.Metrics.FetchErrors,
		c.Metrics.Filtered,
		c.Metrics.ExtractErrs,
		c.Metrics.Added,
		c.Metrics.AlreadyKnown+c.Metrics.Skipped,
	)

	return nil
}
