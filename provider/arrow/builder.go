// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package arrow

import (
	"encoding/json"
	"fmt"
	"time"

	arrowlib "github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
)

// ColumnBuilder appends Go values to a single typed column, coercing them
// to the column's declared type.
type ColumnBuilder struct {
	column  types.ColumnSchema
	builder array.Builder
}

func NewColumnBuilder(mem memory.Allocator, column types.ColumnSchema) (*ColumnBuilder, error) {
	dt, err := ToArrowType(column.Type)
	if err != nil {
		return nil, err
	}
	return &ColumnBuilder{
		column:  column,
		builder: array.NewBuilder(mem, dt),
	}, nil
}

func (b *ColumnBuilder) Column() types.ColumnSchema {
	return b.column
}

func (b *ColumnBuilder) Len() int {
	return b.builder.Len()
}

func (b *ColumnBuilder) AppendNull() {
	b.builder.AppendNull()
}

// Append coerces v to the column type. nil appends a null. A value that
// cannot be coerced returns an error and leaves the column unchanged.
func (b *ColumnBuilder) Append(v any) error {
	casted, err := b.cast(v)
	if err != nil {
		return err
	}
	return b.appendCasted(casted)
}

func (b *ColumnBuilder) cast(v any) (any, error) {
	casted, err := types.Cast(v, b.column.Type)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", b.column.Name, err)
	}
	return casted, nil
}

func (b *ColumnBuilder) appendCasted(casted any) error {
	if casted == nil {
		b.builder.AppendNull()
		return nil
	}
	switch bldr := b.builder.(type) {
	case *array.Int64Builder:
		bldr.Append(casted.(int64))
	case *array.Int32Builder:
		bldr.Append(int32(casted.(int64)))
	case *array.Float64Builder:
		bldr.Append(casted.(float64))
	case *array.Float32Builder:
		bldr.Append(float32(casted.(float64)))
	case *array.StringBuilder:
		bldr.Append(casted.(string))
	case *array.BooleanBuilder:
		bldr.Append(casted.(bool))
	case *array.TimestampBuilder:
		bldr.Append(arrowlib.Timestamp(casted.(time.Time).UnixMicro()))
	default:
		return fferr.NewInternalErrorf("column %s has unsupported builder %T", b.column.Name, b.builder)
	}
	return nil
}

func (b *ColumnBuilder) NewArray() arrowlib.Array {
	return b.builder.NewArray()
}

func (b *ColumnBuilder) Release() {
	b.builder.Release()
}

// TableBuilder accumulates rows for a fixed schema.
type TableBuilder struct {
	schema  types.Schema
	columns []*ColumnBuilder
}

func NewTableBuilder(schema types.Schema) (*TableBuilder, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	mem := memory.DefaultAllocator
	columns := make([]*ColumnBuilder, len(schema.Fields))
	for i, col := range schema.Fields {
		cb, err := NewColumnBuilder(mem, col)
		if err != nil {
			return nil, err
		}
		columns[i] = cb
	}
	return &TableBuilder{schema: schema, columns: columns}, nil
}

func (b *TableBuilder) Column(i int) *ColumnBuilder {
	return b.columns[i]
}

// AppendRow appends one value per column, in schema order. Nothing is
// appended when any value fails to coerce.
func (b *TableBuilder) AppendRow(values ...any) error {
	if len(values) != len(b.columns) {
		return fferr.NewInternalErrorf("row has %d values but schema has %d columns", len(values), len(b.columns))
	}
	casted := make([]any, len(values))
	for i, v := range values {
		c, err := b.columns[i].cast(v)
		if err != nil {
			return err
		}
		casted[i] = c
	}
	for i, c := range casted {
		if err := b.columns[i].appendCasted(c); err != nil {
			return err
		}
	}
	return nil
}

func (b *TableBuilder) NumRows() int {
	if len(b.columns) == 0 {
		return 0
	}
	return b.columns[0].Len()
}

func (b *TableBuilder) Build() (*Table, error) {
	arrays := make([]arrowlib.Array, len(b.columns))
	for i, cb := range b.columns {
		arrays[i] = cb.NewArray()
		cb.Release()
	}
	return NewTable(b.schema, arrays)
}

// FromColumns builds a table from column-oriented Go values. Column types
// come from hints when present and are otherwise inferred from the data.
func FromColumns(order []string, columns map[string][]any, hints map[string]types.ScalarType) (*Table, error) {
	schema := types.Schema{}
	numRows := -1
	for _, name := range order {
		values, has := columns[name]
		if !has {
			return nil, fferr.NewInvalidArgumentErrorf("column %s has no values", name)
		}
		if numRows >= 0 && len(values) != numRows {
			return nil, fferr.NewInvalidArgumentErrorf("column %s has %d values, expected %d", name, len(values), numRows)
		}
		numRows = len(values)
		typ, hinted := hints[name]
		if !hinted {
			typ = InferType(values)
			if typ == types.Unknown {
				return nil, fferr.NewInvalidArgumentErrorf("column %s has no non-null values to infer a type from", name)
			}
		}
		schema.Fields = append(schema.Fields, types.ColumnSchema{Name: name, Type: typ, IsNullable: true})
	}
	tb, err := NewTableBuilder(schema)
	if err != nil {
		return nil, err
	}
	for i, name := range order {
		cb := tb.Column(i)
		for _, v := range columns[name] {
			if err := cb.Append(v); err != nil {
				return nil, fferr.NewInvalidArgumentError(err)
			}
		}
	}
	return tb.Build()
}

// InferType picks the narrowest type that fits every non-null value.
// Integral floats and json.Numbers infer as int64. A column with no
// non-null values infers as Unknown.
func InferType(values []any) types.ScalarType {
	inferred := types.Unknown
	for _, v := range values {
		var t types.ScalarType
		switch val := v.(type) {
		case nil:
			continue
		case int, int32, int64:
			t = types.Int64
		case float32:
			t = types.Float64
		case float64:
			if val == float64(int64(val)) {
				t = types.Int64
			} else {
				t = types.Float64
			}
		case json.Number:
			if _, err := val.Int64(); err == nil {
				t = types.Int64
			} else {
				t = types.Float64
			}
		case bool:
			t = types.Bool
		case time.Time:
			t = types.Timestamp
		default:
			t = types.String
		}
		switch {
		case inferred == types.Unknown:
			inferred = t
		case inferred == t:
		case inferred.IsNumeric() && t.IsNumeric():
			inferred = types.Float64
		default:
			inferred = types.String
		}
	}
	return inferred
}

// NormalizeColumn converts arr to the canonical representation of col's
// type, for example int8 to int32 or millisecond to microsecond
// timestamps. Arrays that already match are returned as is.
func NormalizeColumn(arr arrowlib.Array, col types.ColumnSchema) (arrowlib.Array, error) {
	dt, err := ToArrowType(col.Type)
	if err != nil {
		return nil, err
	}
	if arrowlib.TypeEqual(arr.DataType(), dt) {
		return arr, nil
	}
	cb, err := NewColumnBuilder(memory.DefaultAllocator, col)
	if err != nil {
		return nil, err
	}
	defer cb.Release()
	for i := 0; i < arr.Len(); i++ {
		if err := cb.Append(ValueAt(arr, i)); err != nil {
			return nil, fferr.NewSchemaMismatchErrorf(col.Name, "%v", err)
		}
	}
	return cb.NewArray(), nil
}
