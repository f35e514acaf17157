// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"context"

	arrowlib "github.com/apache/arrow-go/v18/arrow"
	"golang.org/x/sync/errgroup"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/logging"
	"github.com/featureform/historical/logging/redacted"
	pa "github.com/featureform/historical/provider/arrow"
	pl "github.com/featureform/historical/provider/location"
)

const defaultMaxConcurrentReads = 8

// SourceDescriptor names where a table lives. Query, when set, replaces the
// table named by a SQL locator.
type SourceDescriptor struct {
	Locator string `json:"locator" yaml:"locator"`
	Query   string `json:"query,omitempty" yaml:"query,omitempty"`
}

func (d SourceDescriptor) String() string {
	if d.Query != "" {
		return redacted.URL(d.Locator) + " (query)"
	}
	return redacted.URL(d.Locator)
}

// TableSource loads the declared columns of a source into a table. The
// result holds exactly the schema's columns, in schema order. Missing
// columns are a SchemaMismatch and unreachable backends are
// SourceUnavailable.
type TableSource interface {
	Read(ctx context.Context, desc SourceDescriptor, schema types.Schema) (*pa.Table, error)
}

type ReadRequest struct {
	Descriptor SourceDescriptor
	Schema     types.Schema
}

// Reader dispatches reads to the source that serves the locator's scheme.
type Reader struct {
	blob               TableSource
	sql                TableSource
	memory             TableSource
	maxConcurrentReads int
}

type ReaderOption func(*Reader)

func WithMaxConcurrentReads(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxConcurrentReads = n
		}
	}
}

func WithBlobSource(src TableSource) ReaderOption {
	return func(r *Reader) {
		r.blob = src
	}
}

func WithSQLSource(src TableSource) ReaderOption {
	return func(r *Reader) {
		r.sql = src
	}
}

func WithMemorySource(src TableSource) ReaderOption {
	return func(r *Reader) {
		r.memory = src
	}
}

func NewReader(creds CredentialProvider, opts ...ReaderOption) *Reader {
	if creds == nil {
		creds = StaticCredentials{}
	}
	r := &Reader{
		blob:               NewBlobSource(creds),
		sql:                NewSQLSource(creds),
		memory:             NewMemorySource(),
		maxConcurrentReads: defaultMaxConcurrentReads,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) MaxConcurrentReads() int {
	return r.maxConcurrentReads
}

func (r *Reader) Read(ctx context.Context, desc SourceDescriptor, schema types.Schema) (*pa.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := pl.Parse(desc.Locator)
	if err != nil {
		return nil, err
	}
	if desc.Query != "" && loc.Type() != pl.SQLLocationType {
		return nil, fferr.NewInvalidArgumentErrorf("query is only supported for SQL locators, got %s", loc.Location())
	}
	logger := logging.GetLoggerFromContext(ctx).WithSource(Backend(loc), loc.Location())
	logger.Debugw("Reading source", "columns", schema.ColumnNames())
	var src TableSource
	switch loc.Type() {
	case pl.FileStoreLocationType:
		src = r.blob
	case pl.SQLLocationType:
		src = r.sql
	case pl.MemoryLocationType:
		src = r.memory
	default:
		return nil, fferr.NewInvalidArgumentErrorf("no source serves locator %s", loc.Location())
	}
	table, err := src.Read(ctx, desc, schema)
	if err != nil {
		logger.Errorw("Failed to read source", "err", err)
		return nil, err
	}
	logger.Debugw("Read source", "rows", table.NumRows())
	return table, nil
}

// ReadAll reads every request concurrently, at most MaxConcurrentReads at
// a time. Results are in request order. The first failure cancels the
// remaining reads and is returned.
func (r *Reader) ReadAll(ctx context.Context, reqs []ReadRequest) ([]*pa.Table, error) {
	tables := make([]*pa.Table, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrentReads)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			table, err := r.Read(gctx, req.Descriptor, req.Schema)
			if err != nil {
				return err
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// projectTable keeps the declared columns of an already loaded table and
// converts them to their declared types.
func projectTable(table *pa.Table, schema types.Schema, source string) (*pa.Table, error) {
	var missing []string
	for _, field := range schema.Fields {
		if !table.HasColumn(field.Name) {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		return nil, fferr.NewSchemaMismatchError(source, missing, nil)
	}
	if table.NumRows() == 0 {
		return pa.EmptyTable(schema)
	}
	columns := make([]arrowlib.Array, len(schema.Fields))
	for i, field := range schema.Fields {
		arr, _, _ := table.Column(field.Name)
		normalized, err := pa.NormalizeColumn(arr, field)
		if err != nil {
			return nil, fferr.NewSchemaMismatchErrorf(source, "%v", err)
		}
		columns[i] = normalized
	}
	return pa.NewTable(schema, columns)
}
