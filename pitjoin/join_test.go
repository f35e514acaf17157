// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package pitjoin

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	pa "github.com/featureform/historical/provider/arrow"
)

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func table(t *testing.T, schema types.Schema, rows ...[]any) *pa.Table {
	t.Helper()
	tb, err := pa.NewTableBuilder(schema)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, tb.AppendRow(row...))
	}
	built, err := tb.Build()
	require.NoError(t, err)
	return built
}

var (
	entitySchema = types.NewSchema(
		types.ColumnSchema{Name: "id", Type: types.Int64, IsNullable: true},
		types.ColumnSchema{Name: "event_timestamp", Type: types.Timestamp, IsNullable: true},
	)
	featureSchema = types.NewSchema(
		types.ColumnSchema{Name: "id", Type: types.Int64, IsNullable: true},
		types.ColumnSchema{Name: "ts", Type: types.Timestamp, IsNullable: true},
		types.ColumnSchema{Name: "created", Type: types.Timestamp, IsNullable: true},
		types.ColumnSchema{Name: "val", Type: types.Int64, IsNullable: true},
	)
)

func entities(t *testing.T, rows ...[]any) EntitySet {
	return EntitySet{Table: table(t, entitySchema, rows...), TimestampColumn: "event_timestamp"}
}

func features(t *testing.T, ttl time.Duration, rows ...[]any) FeatureSet {
	return FeatureSet{
		View:                   "v",
		Table:                  table(t, featureSchema, rows...),
		JoinKeys:               []string{"id"},
		TimestampColumn:        "ts",
		CreatedTimestampColumn: "created",
		TTL:                    ttl,
	}
}

func selectedValues(t *testing.T, fs FeatureSet, sel *Selection) []any {
	t.Helper()
	cols, err := Gather(fs, sel, []ColumnMapping{{Source: "val", Output: "val"}})
	require.NoError(t, err)
	values := make([]any, cols.Columns[0].Len())
	for i := range values {
		values[i] = pa.ValueAt(cols.Columns[0], i)
	}
	return values
}

func TestPointInTimeJoinTTLScenario(t *testing.T) {
	ents := entities(t, []any{1, jan(10)}, []any{2, jan(10)})
	fs := features(t, 2*24*time.Hour,
		[]any{1, jan(9), nil, 5},
		[]any{1, jan(5), nil, 1},
		[]any{2, jan(1), nil, 9},
	)
	sel, err := PointInTimeJoin(context.Background(), ents, fs, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, pa.NoMatch}, sel.Indices)
	assert.Equal(t, []any{int64(5), nil}, selectedValues(t, fs, sel))
	assert.Equal(t, 1, sel.Matched)
	assert.Equal(t, 1, sel.Expired)
	assert.Equal(t, 0, sel.Missing)
}

func TestPointInTimeJoinSemantics(t *testing.T) {
	cases := []struct {
		name     string
		entities [][]any
		features [][]any
		ttl      time.Duration
		expected []any
	}{
		{
			name:     "InclusiveBound",
			entities: [][]any{{1, jan(5)}},
			features: [][]any{{1, jan(5), nil, 7}, {1, jan(6), nil, 8}},
			expected: []any{int64(7)},
		},
		{
			name:     "NoFutureLeakage",
			entities: [][]any{{1, jan(4)}},
			features: [][]any{{1, jan(5), nil, 7}},
			expected: []any{nil},
		},
		{
			name:     "UnknownKey",
			entities: [][]any{{3, jan(4)}},
			features: [][]any{{1, jan(1), nil, 7}},
			expected: []any{nil},
		},
		{
			name:     "ZeroTTLIsUnbounded",
			entities: [][]any{{1, jan(31)}},
			features: [][]any{{1, jan(1), nil, 7}},
			expected: []any{int64(7)},
		},
		{
			name:     "TTLBoundaryIsInclusive",
			entities: [][]any{{1, jan(3)}},
			features: [][]any{{1, jan(1), nil, 7}},
			ttl:      2 * 24 * time.Hour,
			expected: []any{int64(7)},
		},
		{
			name:     "LaterCreatedWinsTie",
			entities: [][]any{{1, jan(5)}},
			features: [][]any{{1, jan(5), jan(7), 2}, {1, jan(5), jan(6), 1}},
			expected: []any{int64(2)},
		},
		{
			name:     "NullCreatedLosesTie",
			entities: [][]any{{1, jan(5)}},
			features: [][]any{{1, jan(5), jan(6), 2}, {1, jan(5), nil, 1}},
			expected: []any{int64(2)},
		},
		{
			name:     "LastReadWinsFullTie",
			entities: [][]any{{1, jan(5)}},
			features: [][]any{{1, jan(5), nil, 1}, {1, jan(5), nil, 2}},
			expected: []any{int64(2)},
		},
		{
			name:     "DuplicateEntityRows",
			entities: [][]any{{1, jan(5)}, {1, jan(5)}, {1, jan(2)}},
			features: [][]any{{1, jan(1), nil, 1}, {1, jan(4), nil, 4}},
			expected: []any{int64(4), int64(4), int64(1)},
		},
		{
			name:     "NullEntityTimestampOrKey",
			entities: [][]any{{1, nil}, {nil, jan(5)}},
			features: [][]any{{1, jan(1), nil, 1}},
			expected: []any{nil, nil},
		},
		{
			name:     "NullFeatureRowsIgnored",
			entities: [][]any{{1, jan(5)}},
			features: [][]any{{1, jan(1), nil, 1}, {1, nil, nil, 2}, {nil, jan(2), nil, 3}},
			expected: []any{int64(1)},
		},
		{
			name:     "NullFeatureValueIsSelected",
			entities: [][]any{{1, jan(5)}},
			features: [][]any{{1, jan(1), nil, 1}, {1, jan(2), nil, nil}},
			expected: []any{nil},
		},
		{
			name:     "EmptyFeatureTable",
			entities: [][]any{{1, jan(5)}},
			expected: []any{nil},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fs := features(t, c.ttl, c.features...)
			sel, err := PointInTimeJoin(context.Background(), entities(t, c.entities...), fs, Options{})
			require.NoError(t, err)
			assert.Equal(t, c.expected, selectedValues(t, fs, sel))
		})
	}
}

func TestPointInTimeJoinCompositeKeys(t *testing.T) {
	entSchema := types.NewSchema(
		types.ColumnSchema{Name: "driver_id", Type: types.Int32},
		types.ColumnSchema{Name: "city", Type: types.String},
		types.ColumnSchema{Name: "event_timestamp", Type: types.Timestamp},
	)
	featSchema := types.NewSchema(
		types.ColumnSchema{Name: "driver_id", Type: types.Int64},
		types.ColumnSchema{Name: "city", Type: types.String},
		types.ColumnSchema{Name: "ts", Type: types.Timestamp},
		types.ColumnSchema{Name: "val", Type: types.Int64},
	)
	ents := EntitySet{
		Table: table(t, entSchema,
			[]any{1, "sf", jan(5)},
			[]any{1, "nyc", jan(5)},
			[]any{2, "sf", jan(5)},
		),
		TimestampColumn: "event_timestamp",
	}
	fs := FeatureSet{
		View: "by_city",
		Table: table(t, featSchema,
			[]any{1, "sf", jan(1), 10},
			[]any{1, "nyc", jan(2), 20},
			[]any{12, "", jan(1), 99},
		),
		JoinKeys:        []string{"driver_id", "city"},
		TimestampColumn: "ts",
	}
	sel, err := PointInTimeJoin(context.Background(), ents, fs, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, pa.NoMatch}, sel.Indices)
}

func TestPointInTimeJoinErrors(t *testing.T) {
	ents := entities(t, []any{1, jan(5)})
	stringKeys := EntitySet{
		Table: table(t, types.NewSchema(
			types.ColumnSchema{Name: "id", Type: types.String},
			types.ColumnSchema{Name: "event_timestamp", Type: types.Timestamp},
		), []any{"1", jan(5)}),
		TimestampColumn: "event_timestamp",
	}
	cases := []struct {
		name     string
		entities EntitySet
		mutate   func(fs *FeatureSet)
		errType  string
	}{
		{"MissingEntityKey", ents, func(fs *FeatureSet) { fs.JoinKeys = []string{"driver_id"} }, fferr.MISSING_JOIN_KEY_COLUMN},
		{"KeyFamilyMismatch", stringKeys, func(fs *FeatureSet) {}, fferr.SCHEMA_MISMATCH},
		{"MissingFeatureTimestamp", ents, func(fs *FeatureSet) { fs.TimestampColumn = "updated" }, fferr.SCHEMA_MISMATCH},
		{"NonTimestampColumn", ents, func(fs *FeatureSet) { fs.TimestampColumn = "val" }, fferr.SCHEMA_MISMATCH},
		{"NegativeTTL", ents, func(fs *FeatureSet) { fs.TTL = -time.Hour }, fferr.INVALID_ARGUMENT},
		{"NoJoinKeys", ents, func(fs *FeatureSet) { fs.JoinKeys = nil }, fferr.INVALID_ARGUMENT},
		{"MissingEntityTimestamp", EntitySet{Table: ents.Table, TimestampColumn: "ts"}, func(fs *FeatureSet) {}, fferr.SCHEMA_MISMATCH},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fs := features(t, 0, []any{1, jan(1), nil, 1})
			c.mutate(&fs)
			_, err := PointInTimeJoin(context.Background(), c.entities, fs, Options{})
			assert.True(t, fferr.IsType(err, c.errType), err)
		})
	}
}

func TestPointInTimeJoinCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PointInTimeJoin(ctx, entities(t, []any{1, jan(5)}), features(t, 0, []any{1, jan(1), nil, 1}), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestPointInTimeJoinProperties checks the join against a brute force scan
// on random data, with small chunks so that work is spread across workers.
func TestPointInTimeJoinProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := jan(1)
	randomTime := func() any {
		if rng.Intn(20) == 0 {
			return nil
		}
		return base.Add(time.Duration(rng.Intn(30*24)) * time.Hour)
	}
	var entRows, featRows [][]any
	for i := 0; i < 500; i++ {
		entRows = append(entRows, []any{rng.Intn(40), randomTime()})
	}
	for i := 0; i < 2000; i++ {
		featRows = append(featRows, []any{rng.Intn(50), randomTime(), randomTime(), i})
	}
	ttl := 5 * 24 * time.Hour
	ents := entities(t, entRows...)
	fs := features(t, ttl, featRows...)

	parallel, err := PointInTimeJoin(context.Background(), ents, fs, Options{Workers: 4, ChunkSize: 7})
	require.NoError(t, err)
	sequential, err := PointInTimeJoin(context.Background(), ents, fs, Options{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, sequential.Indices, parallel.Indices)
	require.Len(t, parallel.Indices, len(entRows))

	for i, row := range entRows {
		expected := pa.NoMatch
		if row[1] != nil {
			at := row[1].(time.Time)
			for j, f := range featRows {
				if f[1] == nil || f[0] != row[0] {
					continue
				}
				ts := f[1].(time.Time)
				if ts.After(at) {
					continue
				}
				if expected == pa.NoMatch || laterThan(f, featRows[expected], j, expected) {
					expected = j
				}
			}
			if expected != pa.NoMatch && at.Sub(featRows[expected][1].(time.Time)) > ttl {
				expected = pa.NoMatch
			}
		}
		assert.Equal(t, expected, parallel.Indices[i], "entity row %d", i)
		if got := parallel.Indices[i]; got != pa.NoMatch {
			assert.False(t, featRows[got][1].(time.Time).After(row[1].(time.Time)), "future leakage at row %d", i)
		}
	}
}

func laterThan(a, b []any, ai, bi int) bool {
	at, bt := a[1].(time.Time), b[1].(time.Time)
	if !at.Equal(bt) {
		return at.After(bt)
	}
	ac, aok := a[2].(time.Time)
	bc, bok := b[2].(time.Time)
	if aok != bok {
		return aok
	}
	if aok && !ac.Equal(bc) {
		return ac.After(bc)
	}
	return ai > bi
}
