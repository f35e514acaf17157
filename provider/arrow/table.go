// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package arrow

import (
	arrowlib "github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
)

// Table is an immutable columnar table: an Arrow record plus the declared
// schema it was built from. Every column has the same length.
type Table struct {
	schema  types.Schema
	record  arrowlib.Record
	indexes map[string]int
}

func NewTable(schema types.Schema, columns []arrowlib.Array) (*Table, error) {
	if len(columns) != len(schema.Fields) {
		return nil, fferr.NewInternalErrorf("table has %d columns but schema has %d", len(columns), len(schema.Fields))
	}
	arrowSchema, err := ToArrowSchema(schema)
	if err != nil {
		return nil, err
	}
	numRows := 0
	for i, col := range columns {
		if i == 0 {
			numRows = col.Len()
		} else if col.Len() != numRows {
			return nil, fferr.NewInternalErrorf("column %s has %d rows, expected %d", schema.Fields[i].Name, col.Len(), numRows)
		}
		if !arrowlib.TypeEqual(col.DataType(), arrowSchema.Field(i).Type) {
			return nil, fferr.NewInternalErrorf("column %s has type %s, expected %s", schema.Fields[i].Name, col.DataType(), arrowSchema.Field(i).Type)
		}
	}
	indexes := make(map[string]int, len(schema.Fields))
	for i, f := range schema.Fields {
		indexes[f.Name] = i
	}
	return &Table{
		schema:  schema,
		record:  array.NewRecord(arrowSchema, columns, int64(numRows)),
		indexes: indexes,
	}, nil
}

// EmptyTable returns a zero-row table with the given schema.
func EmptyTable(schema types.Schema) (*Table, error) {
	tb, err := NewTableBuilder(schema)
	if err != nil {
		return nil, err
	}
	return tb.Build()
}

func (t *Table) Schema() types.Schema {
	return t.schema
}

func (t *Table) ArrowSchema() *arrowlib.Schema {
	return t.record.Schema()
}

func (t *Table) Record() arrowlib.Record {
	return t.record
}

func (t *Table) NumRows() int {
	return int(t.record.NumRows())
}

func (t *Table) NumCols() int {
	return int(t.record.NumCols())
}

func (t *Table) ColumnNames() []string {
	return t.schema.ColumnNames()
}

func (t *Table) HasColumn(name string) bool {
	_, has := t.indexes[name]
	return has
}

func (t *Table) ColumnIndex(name string) int {
	idx, has := t.indexes[name]
	if !has {
		return -1
	}
	return idx
}

func (t *Table) Column(name string) (arrowlib.Array, types.ColumnSchema, bool) {
	idx, has := t.indexes[name]
	if !has {
		return nil, types.ColumnSchema{}, false
	}
	return t.record.Column(idx), t.schema.Fields[idx], true
}

func (t *Table) ColumnAt(i int) arrowlib.Array {
	return t.record.Column(i)
}

// Value returns the Go value at row of the named column, or nil when the
// cell is null or the column does not exist.
func (t *Table) Value(column string, row int) any {
	arr, _, has := t.Column(column)
	if !has {
		return nil
	}
	return ValueAt(arr, row)
}

// Rows returns a row-oriented copy of the table keyed by column name.
func (t *Table) Rows() []map[string]any {
	rows := make([]map[string]any, t.NumRows())
	for i := range rows {
		rows[i] = make(map[string]any, t.NumCols())
	}
	for j, f := range t.schema.Fields {
		arr := t.record.Column(j)
		for i := range rows {
			rows[i][f.Name] = ValueAt(arr, i)
		}
	}
	return rows
}

// Select returns a table holding only the named columns, in the given
// order. Column data is shared, not copied.
func (t *Table) Select(names ...string) (*Table, error) {
	schema := types.Schema{}
	columns := make([]arrowlib.Array, 0, len(names))
	for _, name := range names {
		arr, col, has := t.Column(name)
		if !has {
			return nil, fferr.NewInternalErrorf("table has no column %s", name)
		}
		schema.Fields = append(schema.Fields, col)
		columns = append(columns, arr)
	}
	return NewTable(schema, columns)
}

// Take gathers rows by index. An index of -1 produces a row of nulls.
func (t *Table) Take(indices []int) (*Table, error) {
	columns := make([]arrowlib.Array, t.NumCols())
	for j := range columns {
		taken, err := Take(t.record.Column(j), indices)
		if err != nil {
			return nil, err
		}
		columns[j] = taken
	}
	return NewTable(t.schema, columns)
}

// AppendColumns returns a new table with the given columns added after the
// existing ones. Names must not collide and lengths must match.
func (t *Table) AppendColumns(schema types.Schema, columns []arrowlib.Array) (*Table, error) {
	combined := types.Schema{Fields: append(append([]types.ColumnSchema{}, t.schema.Fields...), schema.Fields...)}
	if err := combined.Validate(); err != nil {
		return nil, err
	}
	arrays := make([]arrowlib.Array, 0, len(combined.Fields))
	for j := 0; j < t.NumCols(); j++ {
		arrays = append(arrays, t.record.Column(j))
	}
	arrays = append(arrays, columns...)
	return NewTable(combined, arrays)
}

// Equal reports whether both tables have the same schema and cell values.
func (t *Table) Equal(other *Table) bool {
	if other == nil {
		return false
	}
	return array.RecordEqual(t.record, other.record)
}

func (t *Table) Release() {
	t.record.Release()
}

// Concat stacks tables with identical schemas vertically.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fferr.NewInternalErrorf("concat needs at least one table")
	}
	if len(tables) == 1 {
		return tables[0], nil
	}
	schema := tables[0].Schema()
	columns := make([]arrowlib.Array, len(schema.Fields))
	for j := range columns {
		parts := make([]arrowlib.Array, len(tables))
		for i, t := range tables {
			if t.NumCols() != len(schema.Fields) {
				return nil, fferr.NewInternalErrorf("cannot concat tables with different column counts")
			}
			parts[i] = t.ColumnAt(j)
		}
		concatenated, err := array.Concatenate(parts, memory.DefaultAllocator)
		if err != nil {
			return nil, fferr.NewInternalErrorf("failed to concatenate column %s: %v", schema.Fields[j].Name, err)
		}
		columns[j] = concatenated
	}
	return NewTable(schema, columns)
}
