// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package arrow

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	arrowlib "github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
)

var driverSchema = types.NewSchema(
	types.ColumnSchema{Name: "driver_id", Type: types.Int64},
	types.ColumnSchema{Name: "conv_rate", Type: types.Float32, IsNullable: true},
	types.ColumnSchema{Name: "city", Type: types.String, IsNullable: true},
	types.ColumnSchema{Name: "active", Type: types.Bool, IsNullable: true},
	types.ColumnSchema{Name: "ts", Type: types.Timestamp},
)

func day(d int) time.Time {
	return time.Date(2021, 4, d, 0, 0, 0, 0, time.UTC)
}

func buildDriverTable(t *testing.T) *Table {
	t.Helper()
	tb, err := NewTableBuilder(driverSchema)
	require.NoError(t, err)
	require.NoError(t, tb.AppendRow(1001, 0.5, "sf", true, day(1)))
	require.NoError(t, tb.AppendRow(int64(1002), nil, "nyc", false, "2021-04-02T00:00:00Z"))
	require.NoError(t, tb.AppendRow("1003", float64(0.25), nil, nil, day(3)))
	table, err := tb.Build()
	require.NoError(t, err)
	return table
}

func TestTableBuilder(t *testing.T) {
	table := buildDriverTable(t)
	assert.Equal(t, 3, table.NumRows())
	assert.Equal(t, 5, table.NumCols())
	assert.Equal(t, []string{"driver_id", "conv_rate", "city", "active", "ts"}, table.ColumnNames())

	assert.Equal(t, int64(1003), table.Value("driver_id", 2))
	assert.Equal(t, float64(float32(0.5)), table.Value("conv_rate", 0))
	assert.Nil(t, table.Value("conv_rate", 1))
	assert.Nil(t, table.Value("city", 2))
	assert.Equal(t, day(2), table.Value("ts", 1))
	assert.Nil(t, table.Value("missing", 0))

	arr, col, ok := table.Column("ts")
	require.True(t, ok)
	assert.Equal(t, types.Timestamp, col.Type)
	assert.True(t, arrowlib.TypeEqual(TimestampType, arr.DataType()))
}

func TestTableBuilderRejectsBadValues(t *testing.T) {
	tb, err := NewTableBuilder(driverSchema)
	require.NoError(t, err)
	err = tb.AppendRow("not-a-number", 0.5, "sf", true, day(1))
	assert.Error(t, err)
	err = tb.AppendRow(1)
	assert.Error(t, err)

	table, err := tb.Build()
	require.NoError(t, err)
	assert.Equal(t, 0, table.NumRows())
}

func TestTake(t *testing.T) {
	table := buildDriverTable(t)
	taken, err := table.Take([]int{2, NoMatch, 0, 0})
	require.NoError(t, err)
	require.Equal(t, 4, taken.NumRows())

	rows := taken.Rows()
	assert.Equal(t, int64(1003), rows[0]["driver_id"])
	for _, name := range table.ColumnNames() {
		assert.Nil(t, rows[1][name], name)
	}
	assert.Equal(t, rows[2], rows[3])
	assert.Equal(t, day(1), rows[2]["ts"])

	_, err = table.Take([]int{3})
	assert.Error(t, err)
}

func TestSelectAndAppendColumns(t *testing.T) {
	table := buildDriverTable(t)
	keys, err := table.Select("ts", "driver_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"ts", "driver_id"}, keys.ColumnNames())

	_, err = table.Select("nope")
	assert.Error(t, err)

	extra, _, _ := table.Column("city")
	combined, err := keys.AppendColumns(types.NewSchema(types.ColumnSchema{Name: "city", Type: types.String}), []arrowlib.Array{extra})
	require.NoError(t, err)
	assert.Equal(t, "nyc", combined.Value("city", 1))

	_, err = keys.AppendColumns(types.NewSchema(types.ColumnSchema{Name: "ts", Type: types.String}), []arrowlib.Array{extra})
	assert.Error(t, err)
}

func TestIPCRoundTrip(t *testing.T) {
	table := buildDriverTable(t)
	var buf bytes.Buffer
	require.NoError(t, WriteIPC(&buf, table))

	read, err := ReadIPC(&buf)
	require.NoError(t, err)
	assert.True(t, table.Equal(read))
	assert.Equal(t, table.Rows(), read.Rows())
}

func TestIPCEmptyTable(t *testing.T) {
	empty, err := EmptyTable(driverSchema)
	require.NoError(t, err)
	raw, err := ToIPCBytes(empty)
	require.NoError(t, err)

	read, err := ReadIPC(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 0, read.NumRows())
	assert.Equal(t, driverSchema.ColumnNames(), read.ColumnNames())
}

func TestNormalizeColumn(t *testing.T) {
	b := array.NewInt16Builder(memory.DefaultAllocator)
	b.AppendValues([]int16{1, 2}, nil)
	b.AppendNull()
	arr := b.NewArray()

	normalized, err := NormalizeColumn(arr, types.ColumnSchema{Name: "x", Type: types.Int64})
	require.NoError(t, err)
	assert.True(t, arrowlib.TypeEqual(arrowlib.PrimitiveTypes.Int64, normalized.DataType()))
	assert.Equal(t, int64(2), ValueAt(normalized, 1))
	assert.Nil(t, ValueAt(normalized, 2))
}

func TestFromColumns(t *testing.T) {
	table, err := FromColumns(
		[]string{"driver_id", "event_timestamp", "rating"},
		map[string][]any{
			"driver_id":       {float64(1001), float64(1002)},
			"event_timestamp": {"2021-04-12T10:59:42Z", "2021-04-12 08:12:10"},
			"rating":          {float64(4), 4.5},
		},
		map[string]types.ScalarType{"event_timestamp": types.Timestamp},
	)
	require.NoError(t, err)
	assert.Equal(t, types.Int64, table.Schema().Fields[0].Type)
	assert.Equal(t, types.Timestamp, table.Schema().Fields[1].Type)
	assert.Equal(t, types.Float64, table.Schema().Fields[2].Type)
	assert.Equal(t, time.Date(2021, 4, 12, 8, 12, 10, 0, time.UTC), table.Value("event_timestamp", 1))

	_, err = FromColumns([]string{"a", "b"}, map[string][]any{"a": {1}, "b": {1, 2}}, nil)
	assert.Error(t, err)
	_, err = FromColumns([]string{"a"}, map[string][]any{}, nil)
	assert.Error(t, err)

	_, err = FromColumns([]string{"a"}, map[string][]any{"a": {nil, nil}}, nil)
	assert.True(t, fferr.IsType(err, fferr.INVALID_ARGUMENT), err)
	assert.Contains(t, err.Error(), "column a")

	hinted, err := FromColumns([]string{"a"}, map[string][]any{"a": {nil}}, map[string]types.ScalarType{"a": types.String})
	require.NoError(t, err)
	assert.Nil(t, hinted.Value("a", 0))

	large, err := FromColumns([]string{"id"}, map[string][]any{"id": {json.Number("9007199254740993")}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), large.Value("id", 0))
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name     string
		values   []any
		expected types.ScalarType
	}{
		{"Integers", []any{1, int64(2), nil}, types.Int64},
		{"JSON integers", []any{float64(1), float64(2)}, types.Int64},
		{"Mixed numbers", []any{float64(1), 2.5}, types.Float64},
		{"Strings", []any{"a", nil}, types.String},
		{"Mixed", []any{"a", 1}, types.String},
		{"Bools", []any{true, false}, types.Bool},
		{"Times", []any{day(1)}, types.Timestamp},
		{"JSON numbers", []any{json.Number("9007199254740993"), nil}, types.Int64},
		{"JSON fractional numbers", []any{json.Number("1"), json.Number("0.5")}, types.Float64},
		{"All null", []any{nil, nil}, types.Unknown},
		{"Empty", []any{}, types.Unknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, InferType(tc.values))
		})
	}
}

func TestConcat(t *testing.T) {
	first := buildDriverTable(t)
	second, err := first.Take([]int{0})
	require.NoError(t, err)

	combined, err := Concat(first, second)
	require.NoError(t, err)
	assert.Equal(t, 4, combined.NumRows())
	assert.Equal(t, int64(1001), combined.Value("driver_id", 3))

	same, err := Concat(first)
	require.NoError(t, err)
	assert.Same(t, first, same)

	_, err = Concat()
	assert.Error(t, err)
}
