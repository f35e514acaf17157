// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

// Package serving exposes historical retrieval over HTTP.
package serving

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/logging"
	"github.com/featureform/historical/provider"
	pa "github.com/featureform/historical/provider/arrow"
	"github.com/featureform/historical/retrieval"
)

const (
	JSONFormat  = "json"
	ArrowFormat = "arrow"

	ArrowStreamContentType = "application/vnd.apache.arrow.stream"
	RequestIDHeader        = "X-Request-ID"
)

type HistoricalFeaturesRequest struct {
	// Entities maps column names to column values.
	Entities map[string][]any `json:"entities"`
	// EntityColumns orders the entity columns. Defaults to sorted names.
	EntityColumns         []string                   `json:"entity_columns"`
	EntitySource          *provider.SourceDescriptor `json:"entity_source"`
	Features              []string                   `json:"features"`
	FullFeatureNames      bool                       `json:"full_feature_names"`
	EntityTimestampColumn string                     `json:"entity_timestamp_column"`
	Format                string                     `json:"format"`
}

type HistoricalFeaturesResponse struct {
	JobID    string             `json:"job_id"`
	Metadata retrieval.Metadata `json:"metadata"`
	Columns  []string           `json:"columns"`
	Rows     []map[string]any   `json:"rows"`
}

type Server struct {
	store          *retrieval.OfflineStore
	logger         logging.Logger
	requestTimeout time.Duration
	allowedOrigins []string
}

type Option func(*Server)

// WithRequestTimeout bounds each retrieval call as a whole. Zero disables
// the bound.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = timeout
	}
}

func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func NewServer(store *retrieval.OfflineStore, logger logging.Logger, opts ...Option) *Server {
	s := &Server{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if len(s.allowedOrigins) > 0 {
		conf := cors.DefaultConfig()
		conf.AllowOrigins = s.allowedOrigins
		router.Use(cors.New(conf))
	} else {
		router.Use(cors.Default())
	}
	router.Use(s.requestLogger)
	router.GET("/healthz", s.Health)
	router.GET("/v1/feature-views", s.ListFeatureViews)
	router.GET("/v1/feature-views/:name", s.GetFeatureView)
	router.POST("/v1/historical-features", s.GetHistoricalFeatures)
	return router
}

// requestLogger attaches a request scoped logger to the request context.
func (s *Server) requestLogger(c *gin.Context) {
	id, ctx, logger := s.logger.InitializeRequestID(c.Request.Context())
	c.Request = c.Request.WithContext(ctx)
	c.Header(RequestIDHeader, id.String())
	start := time.Now()
	c.Next()
	logger.Debugw("Handled request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start).String(),
	)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) ListFeatureViews(c *gin.Context) {
	ctx := c.Request.Context()
	views, err := s.store.Registry().ListFeatureViews(ctx)
	if err != nil {
		writeError(c, logging.GetLoggerFromContext(ctx), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feature_views": views})
}

func (s *Server) GetFeatureView(c *gin.Context) {
	ctx := c.Request.Context()
	view, err := s.store.Registry().GetFeatureView(ctx, c.Param("name"))
	if err != nil {
		writeError(c, logging.GetLoggerFromContext(ctx), err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) GetHistoricalFeatures(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.GetLoggerFromContext(ctx)
	var req HistoricalFeaturesRequest
	if err := decodeRequest(c.Request, &req); err != nil {
		writeError(c, logger, fferr.NewInvalidArgumentErrorf("could not parse request body: %v", err))
		return
	}
	format := req.Format
	if format == "" {
		format = JSONFormat
	}
	if format != JSONFormat && format != ArrowFormat {
		writeError(c, logger, fferr.NewInvalidArgumentErrorf("unsupported format %q, expected %s or %s", req.Format, JSONFormat, ArrowFormat))
		return
	}
	storeReq := retrieval.HistoricalFeaturesRequest{
		EntitySource:          req.EntitySource,
		Features:              req.Features,
		FullFeatureNames:      req.FullFeatureNames,
		EntityTimestampColumn: req.EntityTimestampColumn,
	}
	if req.Entities != nil {
		entities, err := entityTable(req.Entities, req.EntityColumns)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		storeReq.Entities = entities
	}
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	job, err := s.store.GetHistoricalFeatures(ctx, storeReq)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger = logger.WithJob(job.ID())
	result, err := job.Materialize(ctx)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	if format == ArrowFormat {
		buf, err := job.ToColumnarBuffer(ctx)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.Header("X-Job-ID", job.ID())
		c.Data(http.StatusOK, ArrowStreamContentType, buf)
		return
	}
	c.JSON(http.StatusOK, HistoricalFeaturesResponse{
		JobID:    job.ID(),
		Metadata: job.Metadata(),
		Columns:  result.ColumnNames(),
		Rows:     result.Rows(),
	})
}

// decodeRequest keeps JSON numbers as json.Number so integer entity keys
// beyond 2^53 are not rounded through float64.
func decodeRequest(r *http.Request, req *HistoricalFeaturesRequest) error {
	if r.Body == nil {
		return fmt.Errorf("empty body")
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(req)
}

func entityTable(columns map[string][]any, order []string) (*pa.Table, error) {
	if len(order) == 0 {
		order = maps.Keys(columns)
		slices.Sort(order)
	} else if len(order) != len(columns) {
		return nil, fferr.NewInvalidArgumentErrorf("entity_columns names %d columns, entities has %d", len(order), len(columns))
	}
	if len(order) == 0 {
		return nil, fferr.NewInvalidArgumentErrorf("entities has no columns")
	}
	return pa.FromColumns(order, columns, nil)
}
