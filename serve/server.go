// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

// Package serve exposes the persisted datasets to the map front-end. It is
// deliberately thin: the pipeline owns the data, this layer only reads it,
// plus the one write the front-end owns, the free-text comment on a record.
package serve

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexpar/lexpar/dataset"
	"github.com/lexpar/lexpar/geo"
)

// Default H3 resolution for the proximity lookup; roughly block-sized cells.
const defaultNearResolution = 9

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexpar_requests_total",
			Help: "API requests served, by handler.",
		},
		[]string{"handler"},
	)

	commentUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lexpar_comment_updates_total",
			Help: "Record comment updates persisted.",
		},
	)
)

// Server serves the dataset directory over HTTP.
type Server struct {
	// DataDir holds the dataset JSON files produced by the pipeline
	DataDir string

	// StaticDir, when set, is served under /app for the PWA shell
	StaticDir string

	// Addr to listen on, e.g. "localhost:8000"
	Addr string

	// mu serializes comment writes against dataset reads
	mu sync.RWMutex
}

// datasetFiles lists the dataset files currently on disk.
func (s *Server) datasetFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.DataDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing datasets in %s: %w", s.DataDir, err)
	}

	return files, nil
}

// loadAll reads every dataset file into one slice.
func (s *Server) loadAll() ([]dataset.Record, error) {
	files, err := s.datasetFiles()
	if err != nil {
		return nil, err
	}

	var all []dataset.Record

	for _, file := range files {
		records, _, err := dataset.Load(file)
		if err != nil {
			return nil, err
		}

		all = append(all, records...)
	}

	return all, nil
}

// Router builds the gin engine. Split from Run so tests can drive it with
// httptest.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/datasets", s.listDatasets)
	r.GET("/api/records", s.listRecords)
	r.GET("/api/records/near", s.nearRecords)
	r.POST("/api/records/:id/comment", s.updateComment)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if s.StaticDir != "" {
		r.Static("/app", s.StaticDir)
	}

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := s.Addr
	if addr == "" {
		addr = "localhost:8000"
	}

	return s.Router().Run(addr)
}

func (s *Server) listDatasets(ctx *gin.Context) {
	requestsTotal.WithLabelValues("datasets").Inc()

	files, err := s.datasetFiles()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, filepath.Base(file))
	}

	ctx.JSON(http.StatusOK, names)
}

func (s *Server) listRecords(ctx *gin.Context) {
	requestsTotal.WithLabelValues("records").Inc()

	s.mu.RLock()
	records, err := s.loadAll()
	s.mu.RUnlock()

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if want := ctx.Query("type"); want != "" {
		filtered := records[:0]

		for _, r := range records {
			if string(r.Type) == want {
				filtered = append(filtered, r)
			}
		}

		records = filtered
	}

	ctx.Header("Cache-Control", "public, max-age=86400")
	ctx.JSON(http.StatusOK, records)
}

// nearRecords returns the records sharing the H3 cell of the query point.
// Records without a position are never returned here; the front-end lists
// them separately.
func (s *Server) nearRecords(ctx *gin.Context) {
	requestsTotal.WithLabelValues("near").Inc()

	lat, errLat := strconv.ParseFloat(ctx.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(ctx.Query("lon"), 64)

	if errLat != nil || errLon != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon query parameters are required"})

		return
	}

	resolution := defaultNearResolution
	if v := ctx.Query("res"); v != "" {
		r, err := strconv.Atoi(v)
		if err != nil || r < 0 || r > 15 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid res parameter"})

			return
		}

		resolution = r
	}

	query := geo.Point{Lat: lat, Lon: lon}
	if !query.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})

		return
	}

	queryCell, err := query.Cell(resolution)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.mu.RLock()
	records, err := s.loadAll()
	s.mu.RUnlock()

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	var near []dataset.Record

	for _, r := range records {
		if r.Geo == nil {
			continue
		}

		cell, err := r.Geo.Cell(resolution)
		if err != nil {
			continue
		}

		if cell == queryCell {
			near = append(near, r)
		}
	}

	ctx.JSON(http.StatusOK, near)
}

type commentPayload struct {
	Comment string `json:"commentaire"`
}

// updateComment persists a comment on the record with the given source id.
// The comment is the only field owned by the display tooling; nothing else
// is writable over HTTP.
func (s *Server) updateComment(ctx *gin.Context) {
	requestsTotal.WithLabelValues("comment").Inc()

	sourceID := ctx.Param("id")

	var payload commentPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.datasetFiles()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	for _, file := range files {
		records, wrapped, err := dataset.Load(file)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		for i := range records {
			if records[i].SourceID != sourceID {
				continue
			}

			records[i].Comment = payload.Comment

			if err := dataset.Save(file, records, wrapped); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

				return
			}

			commentUpdates.Inc()
			ctx.JSON(http.StatusOK, records[i])

			return
		}
	}

	ctx.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("record %s not found", sourceID)})
}
