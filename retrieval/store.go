// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

// Package retrieval builds point-in-time correct training data out of
// registered feature views.
package retrieval

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	arrowlib "github.com/apache/arrow-go/v18/arrow"
	"github.com/jonboulle/clockwork"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/logging"
	"github.com/featureform/historical/metadata"
	"github.com/featureform/historical/metrics"
	"github.com/featureform/historical/pitjoin"
	"github.com/featureform/historical/provider"
	pa "github.com/featureform/historical/provider/arrow"
	pl "github.com/featureform/historical/provider/location"
	"github.com/featureform/historical/resolver"
)

const (
	DefaultEntityTimestampColumn = "event_timestamp"
	defaultMaxConcurrentReads    = 8
)

type Config struct {
	MaxConcurrentReads    int
	JoinWorkers           int
	EntityTimestampColumn string
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentReads <= 0 {
		c.MaxConcurrentReads = defaultMaxConcurrentReads
	}
	if c.JoinWorkers <= 0 {
		c.JoinWorkers = runtime.GOMAXPROCS(0)
	}
	if c.EntityTimestampColumn == "" {
		c.EntityTimestampColumn = DefaultEntityTimestampColumn
	}
	return c
}

// OfflineStore answers historical retrievals against the views in a
// registry.
type OfflineStore struct {
	registry metadata.Registry
	reader   *provider.Reader
	config   Config
	clock    clockwork.Clock
	metrics  metrics.MetricsHandler

	readerOpts []provider.ReaderOption
}

type Option func(*OfflineStore)

func WithClock(clock clockwork.Clock) Option {
	return func(s *OfflineStore) {
		s.clock = clock
	}
}

func WithMetrics(handler metrics.MetricsHandler) Option {
	return func(s *OfflineStore) {
		s.metrics = handler
	}
}

// WithReaderOptions configures the reader, for example to serve mem://
// tables from a provider.MemorySource.
func WithReaderOptions(opts ...provider.ReaderOption) Option {
	return func(s *OfflineStore) {
		s.readerOpts = append(s.readerOpts, opts...)
	}
}

func NewOfflineStore(registry metadata.Registry, creds provider.CredentialProvider, cfg Config, opts ...Option) *OfflineStore {
	cfg = cfg.withDefaults()
	s := &OfflineStore{
		registry: registry,
		config:   cfg,
		clock:    clockwork.NewRealClock(),
		metrics:  &metrics.NoOpMetricsHandler{},
	}
	for _, opt := range opts {
		opt(s)
	}
	readerOpts := append([]provider.ReaderOption{provider.WithMaxConcurrentReads(cfg.MaxConcurrentReads)}, s.readerOpts...)
	s.reader = provider.NewReader(creds, readerOpts...)
	return s
}

func (s *OfflineStore) Registry() metadata.Registry {
	return s.registry
}

// HistoricalFeaturesRequest asks for features as of each entity row. The
// entity rows come either from Entities or from EntitySource.
type HistoricalFeaturesRequest struct {
	Entities     *pa.Table
	EntitySource *provider.SourceDescriptor
	// Features are "view:feature" references.
	Features         []string
	FullFeatureNames bool
	// EntityTimestampColumn defaults to the store's configured column.
	EntityTimestampColumn string
}

// GetHistoricalFeatures resolves the request and returns a pending job.
// Reference and naming errors are returned here, before any source is
// read.
func (s *OfflineStore) GetHistoricalFeatures(ctx context.Context, req HistoricalFeaturesRequest) (*Job, error) {
	logger := logging.GetLoggerFromContext(ctx)
	if (req.Entities == nil) == (req.EntitySource == nil) {
		return nil, fferr.NewInvalidArgumentErrorf("exactly one of entity table or entity source is required")
	}
	refs, err := resolver.ParseFeatureReferences(req.Features)
	if err != nil {
		return nil, err
	}
	views, err := s.lookupViews(ctx, refs)
	if err != nil {
		return nil, err
	}
	plan, err := resolver.Resolve(refs, views, req.FullFeatureNames)
	if err != nil {
		return nil, err
	}
	tsColumn := req.EntityTimestampColumn
	if tsColumn == "" {
		tsColumn = s.config.EntityTimestampColumn
	}

	var entities *pa.Table
	var entityRead *provider.ReadRequest
	if req.Entities != nil {
		entities, err = normalizeEntities(req.Entities, tsColumn)
		if err != nil {
			return nil, err
		}
		if err := resolver.CheckEntitySchema(plan, entities.Schema()); err != nil {
			return nil, err
		}
	} else {
		if _, err := pl.Parse(req.EntitySource.Locator); err != nil {
			return nil, err
		}
		entityRead = &provider.ReadRequest{
			Descriptor: *req.EntitySource,
			Schema:     entitySourceSchema(plan, tsColumn),
		}
	}

	viewNames := make([]string, len(plan.Views))
	for i, vp := range plan.Views {
		viewNames[i] = vp.View.Name
	}
	logger.Debugw("Resolved historical feature request", "views", viewNames, "features", plan.References())

	compute := func(ctx context.Context) (*pa.Table, error) {
		var reqs []provider.ReadRequest
		if entityRead != nil {
			reqs = append(reqs, *entityRead)
		}
		for _, vp := range plan.Views {
			reqs = append(reqs, provider.ReadRequest{Descriptor: vp.View.Source, Schema: vp.SourceSchema})
		}
		tables, err := s.reader.ReadAll(ctx, reqs)
		if err != nil {
			return nil, err
		}
		ents := entities
		if entityRead != nil {
			ents, tables = tables[0], tables[1:]
			if err := resolver.CheckEntitySchema(plan, ents.Schema()); err != nil {
				return nil, err
			}
		}
		joins := make([]pitjoin.ViewJoin, len(plan.Views))
		for i, vp := range plan.Views {
			joins[i] = viewJoin(vp, tables[i])
		}
		return pitjoin.Join(ctx, pitjoin.EntitySet{Table: ents, TimestampColumn: tsColumn}, joins, s.joinOptions())
	}
	return newJob(jobParams{
		kind:             metrics.HISTORICAL_FEATURES,
		target:           strings.Join(viewNames, ","),
		fullFeatureNames: req.FullFeatureNames,
		timestampColumn:  tsColumn,
		featureRefs:      plan.References(),
		keys:             plan.JoinKeys(),
		compute:          compute,
		clock:            s.clock,
		metrics:          s.metrics,
	}), nil
}

// PullLatest returns a job holding the latest row per join key of a view
// with an event timestamp in [start, end]. A zero end is unbounded.
func (s *OfflineStore) PullLatest(ctx context.Context, view string, start, end time.Time) (*Job, error) {
	return s.pull(ctx, metrics.PULL_LATEST, view, pitjoin.Window{Start: start, End: end},
		func(ctx context.Context, fs pitjoin.FeatureSet, w pitjoin.Window) ([]int, error) {
			return pitjoin.LatestPerKey(ctx, fs, w, s.joinOptions())
		})
}

// PullAll returns a job holding every row of a view with an event
// timestamp in [start, end]. A zero end is unbounded.
func (s *OfflineStore) PullAll(ctx context.Context, view string, start, end time.Time) (*Job, error) {
	return s.pull(ctx, metrics.PULL_ALL, view, pitjoin.Window{Start: start, End: end},
		func(_ context.Context, fs pitjoin.FeatureSet, w pitjoin.Window) ([]int, error) {
			return pitjoin.RowsInWindow(fs, w)
		})
}

type rowSelector func(ctx context.Context, fs pitjoin.FeatureSet, w pitjoin.Window) ([]int, error)

func (s *OfflineStore) pull(ctx context.Context, kind metrics.Kind, name string, w pitjoin.Window, selectRows rowSelector) (*Job, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	view, err := s.registry.GetFeatureView(ctx, name)
	if err != nil {
		return nil, err
	}
	schema, err := view.SourceSchema(nil)
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(view.Features))
	for _, f := range view.FeatureNames() {
		refs = append(refs, resolver.FeatureReference{View: view.Name, Feature: f}.String())
	}
	compute := func(ctx context.Context) (*pa.Table, error) {
		table, err := s.reader.Read(ctx, view.Source, schema)
		if err != nil {
			return nil, err
		}
		fs := featureSet(view, table)
		rows, err := selectRows(ctx, fs, w)
		if err != nil {
			return nil, err
		}
		return table.Take(rows)
	}
	return newJob(jobParams{
		kind:            kind,
		target:          view.Name,
		timestampColumn: view.TimestampColumn,
		featureRefs:     refs,
		keys:            view.JoinKeyNames(),
		compute:         compute,
		clock:           s.clock,
		metrics:         s.metrics,
	}), nil
}

func (s *OfflineStore) lookupViews(ctx context.Context, refs []resolver.FeatureReference) ([]*metadata.FeatureView, error) {
	var names []string
	seen := map[string]bool{}
	for _, ref := range refs {
		if !seen[ref.View] {
			seen[ref.View] = true
			names = append(names, ref.View)
		}
	}
	views := make([]*metadata.FeatureView, 0, len(names))
	for _, name := range names {
		view, err := s.registry.GetFeatureView(ctx, name)
		if fferr.IsType(err, fferr.FEATURE_VIEW_NOT_FOUND) {
			return nil, fferr.NewUnknownFeatureReferenceError(name, fmt.Errorf("feature view %s is not registered", name))
		}
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *OfflineStore) joinOptions() pitjoin.Options {
	return pitjoin.Options{Workers: s.config.JoinWorkers}
}

func featureSet(view *metadata.FeatureView, table *pa.Table) pitjoin.FeatureSet {
	return pitjoin.FeatureSet{
		View:                   view.Name,
		Table:                  table,
		JoinKeys:               view.JoinKeyNames(),
		TimestampColumn:        view.TimestampColumn,
		CreatedTimestampColumn: view.CreatedTimestampColumn,
		TTL:                    view.TTL.Duration(),
	}
}

func viewJoin(vp *resolver.ViewPlan, table *pa.Table) pitjoin.ViewJoin {
	mappings := make([]pitjoin.ColumnMapping, len(vp.Features))
	for i, f := range vp.Features {
		mappings[i] = pitjoin.ColumnMapping{Source: f.Field.Name, Output: f.OutputName}
	}
	return pitjoin.ViewJoin{Features: featureSet(vp.View, table), Columns: mappings}
}

// entitySourceSchema is the columns read from an entity source: every join
// key, typed as its first declaring view declares it, and the timestamp.
func entitySourceSchema(plan *resolver.Plan, tsColumn string) types.Schema {
	keyTypes := map[string]types.ScalarType{}
	for _, vp := range plan.Views {
		for _, key := range vp.View.JoinKeys {
			if _, has := keyTypes[key.Name]; !has {
				keyTypes[key.Name] = key.Type
			}
		}
	}
	var fields []types.ColumnSchema
	for _, key := range plan.JoinKeys() {
		fields = append(fields, types.ColumnSchema{Name: key, Type: keyTypes[key], IsNullable: true})
	}
	fields = append(fields, types.ColumnSchema{Name: tsColumn, Type: types.Timestamp, IsNullable: true})
	return types.NewSchema(fields...)
}

// normalizeEntities converts the entity timestamp column to a timestamp
// column, parsing strings and epoch numbers.
func normalizeEntities(entities *pa.Table, tsColumn string) (*pa.Table, error) {
	idx := entities.ColumnIndex(tsColumn)
	if idx < 0 {
		return nil, fferr.NewSchemaMismatchError("entity table", []string{tsColumn}, nil)
	}
	field := entities.Schema().Fields[idx]
	if field.Type == types.Timestamp {
		return entities, nil
	}
	field.Type = types.Timestamp
	field.NativeType = ""
	field.IsNullable = true
	normalized, err := pa.NormalizeColumn(entities.ColumnAt(idx), field)
	if err != nil {
		return nil, fferr.NewSchemaMismatchErrorf("entity table", "entity timestamp column %s: %v", tsColumn, err)
	}
	schema := types.Schema{Fields: append([]types.ColumnSchema{}, entities.Schema().Fields...)}
	schema.Fields[idx] = field
	columns := make([]arrowlib.Array, entities.NumCols())
	for i := range columns {
		columns[i] = entities.ColumnAt(i)
	}
	columns[idx] = normalized
	return pa.NewTable(schema, columns)
}
