// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package bovp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/lexpar/lexpar/dataset"
)

func decreeHTML(numero, category, date string) string {
	return fmt.Sprintf(`<html><body>
<p>Préfecture de Police</p>
<p>Arrêté n° %s portant sur le %s rue de Rivoli</p>
<p>Article 1 Le %s est interdit au droit du n°12 rue de Rivoli</p>
<p>Article 2 Le présent arrêté s'applique.</p>
<p>Fait à Paris, le %s</p>
</body></html>`, numero, category, category, date)
}

// bulletinHandler serves a fixed set of documents by explnum_id; any other id
// is a 404, like the real endpoint's dead ranges.
func bulletinHandler(docs map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Query().Get("explnum_id")]
		if !ok {
			http.NotFound(w, r)

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, doc)
	}
}

func newTestClient(t *testing.T, server *httptest.Server, options *ClientOptions) *Client {
	t.Helper()

	dir := t.TempDir()

	options.BaseURL = server.URL + "/doc_num_data.php?explnum_id="
	options.CachePath = filepath.Join(dir, "pdfs")

	if options.DatasetPath == "" {
		options.DatasetPath = filepath.Join(dir, "arretes.json")
	}

	clock := clockwork.NewFakeClockAt(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))

	return NewClient(options, clock)
}

func TestUpdate(t *testing.T) {
	docs := map[string]string{
		"100": decreeHTML("2025 P 100", "stationnement", "02 janvier 2025"),
		"101": decreeHTML("2025 C 101", "circulation", "03 janvier 2025"),
		"102": decreeHTML("2024 P 102", "stationnement", "31 décembre 2024"), // stale year
		"104": "<html><body>Avis sans rapport</body></html>",                // no numero
	}

	server := httptest.NewServer(bulletinHandler(docs))
	defer server.Close()

	c := newTestClient(t, server, &ClientOptions{StartID: 100, EndID: 105})
	require.NoError(t, c.Update(context.Background()))

	require.Equal(t, 4, c.Metrics.Fetched)
	require.Equal(t, 2, c.Metrics.FetchErrors) // 103 and 105 are dead ids
	require.Equal(t, 2, c.Metrics.Extracted)
	require.Equal(t, 2, c.Metrics.Filtered)
	require.Equal(t, 2, c.Metrics.Added)

	records, wrapped, err := dataset.Load(c.options.DatasetPath)
	require.NoError(t, err)
	require.True(t, wrapped)
	require.Len(t, records, 2)

	// Descending id order.
	require.Equal(t, "101", records[0].SourceID)
	require.Equal(t, dataset.TypeTraffic, records[0].Type)
	require.Equal(t, "100", records[1].SourceID)
	require.Equal(t, dataset.TypeParking, records[1].Type)
	require.Equal(t, "2025 P 100", records[1].Info[dataset.InfoNumero])
	require.Equal(t, IssuerPolice, records[1].Info[dataset.InfoIssuer])
}

func TestUpdateIsIdempotent(t *testing.T) {
	docs := map[string]string{
		"100": decreeHTML("2025 P 100", "stationnement", "02 janvier 2025"),
	}

	server := httptest.NewServer(bulletinHandler(docs))
	defer server.Close()

	c := newTestClient(t, server, &ClientOptions{StartID: 100, EndID: 100})
	require.NoError(t, c.Update(context.Background()))

	again := NewClient(c.options, clockwork.NewFakeClockAt(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, again.Update(context.Background()))

	require.Equal(t, 0, again.Metrics.Fetched)
	require.Equal(t, 1, again.Metrics.AlreadyKnown)
	require.Equal(t, 0, again.Metrics.Added)

	records, _, err := dataset.Load(c.options.DatasetPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestUpdateResumesAfterLastKnownID(t *testing.T) {
	docs := map[string]string{
		"101": decreeHTML("2025 P 101", "stationnement", "03 janvier 2025"),
	}

	server := httptest.NewServer(bulletinHandler(docs))
	defer server.Close()

	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "arretes.json")

	seed := []dataset.Record{{
		Type:     dataset.TypeParking,
		Title:    "Arrêté 2025 P 100",
		SourceID: "100",
		Info:     map[string]string{dataset.InfoNumero: "2025 P 100"},
	}}
	require.NoError(t, dataset.Save(datasetPath, seed, true))

	c := newTestClient(t, server, &ClientOptions{
		DatasetPath:          datasetPath,
		MaxConsecutiveMisses: 3,
	})
	require.NoError(t, c.Update(context.Background()))

	// Scan starts at 101, finds one document, then dies out on misses.
	require.Equal(t, 1, c.Metrics.Fetched)
	require.Equal(t, 1, c.Metrics.Added)
	require.Equal(t, 3, c.Metrics.FetchErrors)

	records, _, err := dataset.Load(datasetPath)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "101", records[0].SourceID)
}

func TestUpdateWithoutStartingPoint(t *testing.T) {
	server := httptest.NewServer(bulletinHandler(nil))
	defer server.Close()

	c := newTestClient(t, server, &ClientOptions{})
	require.ErrorIs(t, c.Update(context.Background()), errNoStartingPoint)
}

func TestUpdateDryRun(t *testing.T) {
	docs := map[string]string{
		"100": decreeHTML("2025 P 100", "stationnement", "02 janvier 2025"),
	}

	server := httptest.NewServer(bulletinHandler(docs))
	defer server.Close()

	c := newTestClient(t, server, &ClientOptions{StartID: 100, EndID: 100, DryRun: true})
	require.NoError(t, c.Update(context.Background()))
	require.Equal(t, 1, c.Metrics.Added)

	_, _, err := dataset.Load(c.options.DatasetPath)
	require.Error(t, err)
}

// A download that dies mid-body must not leave a partial document in the
// cache, or the next run would extract from a broken file.
func TestUpdateRemovesPartialDownloads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", "4096")
		fmt.Fprint(w, "%PDF-1.4 truncated")
	}))
	defer server.Close()

	c := newTestClient(t, server, &ClientOptions{StartID: 100, EndID: 100})
	require.NoError(t, c.Update(context.Background()))

	require.Equal(t, 1, c.Metrics.FetchErrors)
	require.Equal(t, 0, c.Metrics.Fetched)

	entries, err := os.ReadDir(c.options.CachePath)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUpdateCancellation(t *testing.T) {
	server := httptest.NewServer(bulletinHandler(nil))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, server, &ClientOptions{StartID: 100, EndID: 200})
	require.ErrorIs(t, c.Update(ctx), context.Canceled)
}

func TestYear(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))

	c := NewClient(&ClientOptions{}, clock)
	require.Equal(t, 2026, c.Year())

	pinned := NewClient(&ClientOptions{Year: 2024}, clock)
	require.Equal(t, 2024, pinned.Year())
}
