// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package pitjoin

import (
	"context"

	arrowlib "github.com/apache/arrow-go/v18/arrow"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/logging"
	pa "github.com/featureform/historical/provider/arrow"
)

// ColumnMapping copies feature column Source into result column Output.
type ColumnMapping struct {
	Source string
	Output string
}

// ViewColumns are one view's output columns, aligned row for row with the
// entity table.
type ViewColumns struct {
	View    string
	Schema  types.Schema
	Columns []arrowlib.Array
}

// Gather takes the mapped feature columns at the selected rows.
func Gather(fs FeatureSet, sel *Selection, mappings []ColumnMapping) (ViewColumns, error) {
	out := ViewColumns{View: fs.View, Columns: make([]arrowlib.Array, len(mappings))}
	fields := make([]types.ColumnSchema, len(mappings))
	for i, m := range mappings {
		arr, col, has := fs.Table.Column(m.Source)
		if !has {
			return ViewColumns{}, fferr.NewSchemaMismatchError(fs.View, []string{m.Source}, nil)
		}
		taken, err := pa.Take(arr, sel.Indices)
		if err != nil {
			return ViewColumns{}, err
		}
		fields[i] = types.ColumnSchema{Name: m.Output, NativeType: col.NativeType, Type: col.Type, IsNullable: true}
		out.Columns[i] = taken
	}
	out.Schema = types.NewSchema(fields...)
	return out, nil
}

// Combine appends each view's columns to the entity table, in view order.
// The entity rows keep their order and count. A column name produced twice
// is an error, never an overwrite.
func Combine(entities *pa.Table, views []ViewColumns) (*pa.Table, error) {
	names := mapset.NewThreadUnsafeSet[string](entities.ColumnNames()...)
	owners := map[string]string{}
	for _, name := range entities.ColumnNames() {
		owners[name] = "entity table"
	}
	var fields []types.ColumnSchema
	var columns []arrowlib.Array
	for _, view := range views {
		if len(view.Columns) != len(view.Schema.Fields) {
			return nil, fferr.NewInternalErrorf("view %s has %d columns but %d fields", view.View, len(view.Columns), len(view.Schema.Fields))
		}
		for i, field := range view.Schema.Fields {
			if !names.Add(field.Name) {
				return nil, fferr.NewNamingConflictError(field.Name, []string{owners[field.Name], view.View})
			}
			owners[field.Name] = view.View
			if view.Columns[i].Len() != entities.NumRows() {
				return nil, fferr.NewInternalErrorf("column %s of view %s has %d rows, entity table has %d",
					field.Name, view.View, view.Columns[i].Len(), entities.NumRows())
			}
			fields = append(fields, field)
			columns = append(columns, view.Columns[i])
		}
	}
	return entities.AppendColumns(types.Schema{Fields: fields}, columns)
}

// ViewJoin is one view to join along with the columns to keep from it.
type ViewJoin struct {
	Features FeatureSet
	Columns  []ColumnMapping
}

// Join runs every view's point-in-time join concurrently and combines the
// results. Any failure fails the whole join and no partial table is
// returned.
func Join(ctx context.Context, entities EntitySet, views []ViewJoin, opts Options) (*pa.Table, error) {
	opts = opts.withDefaults()
	logger := logging.GetLoggerFromContext(ctx)
	results := make([]ViewColumns, len(views))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, view := range views {
		i, view := i, view
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sel, err := PointInTimeJoin(gctx, entities, view.Features, opts)
			if err != nil {
				return err
			}
			cols, err := Gather(view.Features, sel, view.Columns)
			if err != nil {
				return err
			}
			results[i] = cols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Errorw("Point-in-time join failed", "err", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Combine(entities.Table, results)
}
