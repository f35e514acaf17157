// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

// Package pitjoin joins entity rows to time-versioned feature rows without
// leaking values from the future.
//
// For each entity row the join selects, among the feature rows with the
// same join key, the one with the greatest feature timestamp that is not
// after the entity timestamp. Ties on the feature timestamp go to the
// latest created timestamp, then to the row read last. A selected row older
// than the view's TTL is dropped. Entity rows without a selection get
// nulls, so the result always has one row per entity row.
package pitjoin

import (
	"context"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/logging"
	pa "github.com/featureform/historical/provider/arrow"
)

const defaultChunkSize = 4096

// EntitySet is the left side of the join.
type EntitySet struct {
	Table           *pa.Table
	TimestampColumn string
}

// FeatureSet is one feature view's rows as read from its source.
type FeatureSet struct {
	View                   string
	Table                  *pa.Table
	JoinKeys               []string
	TimestampColumn        string
	CreatedTimestampColumn string
	// TTL bounds how old a selected row may be. Zero is unbounded.
	TTL time.Duration
}

type Options struct {
	// Workers bounds the goroutines used per join. Defaults to GOMAXPROCS.
	Workers int
	// ChunkSize is the number of entity rows handed to a worker at once.
	ChunkSize int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	return o
}

// Selection maps each entity row to the feature row chosen for it, or to
// pa.NoMatch.
type Selection struct {
	Indices []int
	// Matched rows got a feature row. Expired rows had one, but it was
	// older than the TTL. Missing rows had no eligible row at all.
	Matched int
	Expired int
	Missing int
}

// featureIndex holds the feature rows grouped by key, each group sorted by
// (timestamp, created timestamp, row).
type featureIndex struct {
	groups     map[string][]int
	ts         []int64
	created    []int64
	hasCreated []bool
}

func (idx *featureIndex) less(a, b int) bool {
	if idx.ts[a] != idx.ts[b] {
		return idx.ts[a] < idx.ts[b]
	}
	if idx.hasCreated[a] != idx.hasCreated[b] {
		return !idx.hasCreated[a]
	}
	if idx.hasCreated[a] && idx.created[a] != idx.created[b] {
		return idx.created[a] < idx.created[b]
	}
	return a < b
}

func timestampColumn(table *pa.Table, name, source string) (*timestamps, error) {
	arr, col, has := table.Column(name)
	if !has {
		return nil, fferr.NewSchemaMismatchError(source, []string{name}, nil)
	}
	if col.Type != types.Timestamp {
		return nil, fferr.NewSchemaMismatchErrorf(source, "column %s must be a timestamp, got %s", name, col.Type)
	}
	ts := &timestamps{values: make([]int64, arr.Len()), valid: make([]bool, arr.Len())}
	for i := range ts.values {
		ts.values[i], ts.valid[i] = pa.TimestampMicros(arr, i)
	}
	return ts, nil
}

type timestamps struct {
	values []int64
	valid  []bool
}

func buildIndex(ctx context.Context, fs FeatureSet, opts Options) (*featureIndex, error) {
	ts, err := timestampColumn(fs.Table, fs.TimestampColumn, fs.View)
	if err != nil {
		return nil, err
	}
	idx := &featureIndex{
		groups:     map[string][]int{},
		ts:         ts.values,
		created:    make([]int64, fs.Table.NumRows()),
		hasCreated: make([]bool, fs.Table.NumRows()),
	}
	if fs.CreatedTimestampColumn != "" {
		created, err := timestampColumn(fs.Table, fs.CreatedTimestampColumn, fs.View)
		if err != nil {
			return nil, err
		}
		idx.created, idx.hasCreated = created.values, created.valid
	}
	key, err := newCompositeKey(fs.Table, fs.JoinKeys, fs.View, false)
	if err != nil {
		return nil, err
	}
	var buf []byte
	for i := 0; i < fs.Table.NumRows(); i++ {
		if !ts.valid[i] {
			continue
		}
		var ok bool
		buf, ok = key.encode(buf, i)
		if !ok {
			continue
		}
		idx.groups[string(buf)] = append(idx.groups[string(buf)], i)
	}

	groups := make([][]int, 0, len(idx.groups))
	for _, group := range idx.groups {
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for start := 0; start < len(groups); start += opts.ChunkSize {
		end := min(start+opts.ChunkSize, len(groups))
		chunk := groups[start:end]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for _, group := range chunk {
				sort.Slice(group, func(a, b int) bool {
					return idx.less(group[a], group[b])
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return idx, nil
}

// PointInTimeJoin selects, for every entity row, the feature row to join
// to it. Entity rows with a null key or timestamp select nothing.
func PointInTimeJoin(ctx context.Context, entities EntitySet, fs FeatureSet, opts Options) (*Selection, error) {
	opts = opts.withDefaults()
	logger := logging.GetLoggerFromContext(ctx).WithFeatureView(fs.View)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fs.TTL < 0 {
		return nil, fferr.NewInvalidArgumentErrorf("feature view %s has negative ttl %s", fs.View, fs.TTL)
	}
	if len(fs.JoinKeys) == 0 {
		return nil, fferr.NewInvalidArgumentErrorf("feature view %s has no join keys", fs.View)
	}
	entityKey, err := newCompositeKey(entities.Table, fs.JoinKeys, fs.View, true)
	if err != nil {
		return nil, err
	}
	if _, err := newCompositeKey(fs.Table, fs.JoinKeys, fs.View, false); err != nil {
		return nil, err
	}
	if err := checkKeyFamilies(entities.Table, fs.Table, fs.JoinKeys, fs.View); err != nil {
		return nil, err
	}
	entityTS, err := timestampColumn(entities.Table, entities.TimestampColumn, "entity table")
	if err != nil {
		return nil, err
	}
	idx, err := buildIndex(ctx, fs, opts)
	if err != nil {
		return nil, err
	}

	n := entities.Table.NumRows()
	sel := &Selection{Indices: make([]int, n)}
	ttl := fs.TTL.Microseconds()
	var matched, expired atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for start := 0; start < n; start += opts.ChunkSize {
		start, end := start, min(start+opts.ChunkSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var buf []byte
			var chunkMatched, chunkExpired int64
			for i := start; i < end; i++ {
				sel.Indices[i] = pa.NoMatch
				if !entityTS.valid[i] {
					continue
				}
				var ok bool
				buf, ok = entityKey.encode(buf, i)
				if !ok {
					continue
				}
				group, has := idx.groups[string(buf)]
				if !has {
					continue
				}
				at := entityTS.values[i]
				pos := sort.Search(len(group), func(j int) bool {
					return idx.ts[group[j]] > at
				})
				if pos == 0 {
					continue
				}
				row := group[pos-1]
				if fs.TTL > 0 && at-idx.ts[row] > ttl {
					chunkExpired++
					continue
				}
				sel.Indices[i] = row
				chunkMatched++
			}
			matched.Add(chunkMatched)
			expired.Add(chunkExpired)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sel.Matched = int(matched.Load())
	sel.Expired = int(expired.Load())
	sel.Missing = n - sel.Matched - sel.Expired
	logger.Debugw("Point-in-time join complete",
		"entity-rows", n, "feature-rows", fs.Table.NumRows(), "keys", len(idx.groups),
		"matched", sel.Matched, "expired", sel.Expired, "missing", sel.Missing)
	return sel, nil
}
