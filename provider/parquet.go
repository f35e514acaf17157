// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io"
	"reflect"
	"time"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	pa "github.com/featureform/historical/provider/arrow"
)

const parquetReadBatchSize = 512

type parquetColumn struct {
	position int
	leaf     parquet.LeafColumn
}

// readParquet decodes a single parquet file into a table holding the
// declared columns, in declared order. Only flat schemas are supported.
func readParquet(b []byte, schema types.Schema, source string) (*pa.Table, error) {
	reader := parquet.NewReader(bytes.NewReader(b))
	defer reader.Close()

	fileSchema := reader.Schema()
	columns := make(map[int]parquetColumn, len(schema.Fields))
	var missing []string
	for i, field := range schema.Fields {
		leaf, ok := fileSchema.Lookup(field.Name)
		if !ok {
			missing = append(missing, field.Name)
			continue
		}
		if leaf.MaxRepetitionLevel > 0 {
			return nil, fferr.NewSchemaMismatchErrorf(source, "column %s is repeated", field.Name)
		}
		columns[leaf.ColumnIndex] = parquetColumn{position: i, leaf: leaf}
	}
	if len(missing) > 0 {
		return nil, fferr.NewSchemaMismatchError(source, missing, nil)
	}

	tb, err := pa.NewTableBuilder(schema)
	if err != nil {
		return nil, err
	}
	rows := make([]parquet.Row, parquetReadBatchSize)
	values := make([]any, len(schema.Fields))
	for {
		n, readErr := reader.ReadRows(rows)
		for _, row := range rows[:n] {
			for i := range values {
				values[i] = nil
			}
			for _, v := range row {
				col, wanted := columns[v.Column()]
				if !wanted {
					continue
				}
				converted, err := parquetValue(v, col.leaf.Node)
				if err != nil {
					return nil, fferr.NewSchemaMismatchErrorf(source, "column %s: %v", schema.Fields[col.position].Name, err)
				}
				values[col.position] = converted
			}
			if err := tb.AppendRow(values...); err != nil {
				return nil, fferr.NewSchemaMismatchErrorf(source, "%v", err)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fferr.NewSourceUnavailableError("parquet", source, readErr)
		}
		if n == 0 {
			break
		}
	}
	return tb.Build()
}

func parquetValue(v parquet.Value, node parquet.Node) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	logical := node.Type().LogicalType()
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean(), nil
	case parquet.Int32:
		if logical != nil && logical.Date != nil {
			return time.Unix(int64(v.Int32())*24*60*60, 0).UTC(), nil
		}
		return int64(v.Int32()), nil
	case parquet.Int64:
		if logical != nil && logical.Timestamp != nil {
			unit := logical.Timestamp.Unit
			switch {
			case unit.Millis != nil:
				return time.UnixMilli(v.Int64()).UTC(), nil
			case unit.Nanos != nil:
				return time.Unix(0, v.Int64()).UTC(), nil
			default:
				return time.UnixMicro(v.Int64()).UTC(), nil
			}
		}
		return v.Int64(), nil
	case parquet.Float:
		return float64(v.Float()), nil
	case parquet.Double:
		return v.Double(), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray()), nil
	default:
		return nil, fmt.Errorf("unsupported parquet type %s", v.Kind())
	}
}

// parquetModel builds a struct type whose fields mirror the table's columns
// so parquet-go can derive a schema. Fields are pointers so nulls survive the
// round trip, except timestamps: parquet-go only accepts the timestamp tag on
// a plain time.Time, and an optional time.Time writes its zero value as null.
func parquetModel(schema types.Schema) (reflect.Type, []string, error) {
	caser := cases.Title(language.English)
	fields := make([]reflect.StructField, len(schema.Fields))
	names := make([]string, len(schema.Fields))
	used := make(map[string]bool, len(schema.Fields))
	for i, col := range schema.Fields {
		goType, err := parquetGoType(col.Type)
		if err != nil {
			return nil, nil, err
		}
		// Field names must be exported identifiers; the parquet tag keeps
		// the real column name.
		name := caser.String(col.Name)
		if !token.IsIdentifier(name) || !token.IsExported(name) || used[name] {
			name = fmt.Sprintf("Column%d", i)
		}
		used[name] = true
		names[i] = name
		field := reflect.StructField{
			Name: name,
			Type: reflect.PointerTo(goType),
			Tag:  reflect.StructTag(fmt.Sprintf(`parquet:"%s,optional"`, col.Name)),
		}
		if col.Type == types.Timestamp {
			field.Type = goType
			field.Tag = reflect.StructTag(fmt.Sprintf(`parquet:"%s,optional,timestamp(microsecond)"`, col.Name))
		}
		fields[i] = field
	}
	return reflect.StructOf(fields), names, nil
}

func parquetGoType(t types.ScalarType) (reflect.Type, error) {
	switch t {
	case types.Int, types.Int64:
		return reflect.TypeOf(int64(0)), nil
	case types.Int32:
		return reflect.TypeOf(int32(0)), nil
	case types.Float32:
		return reflect.TypeOf(float32(0)), nil
	case types.Float64:
		return reflect.TypeOf(float64(0)), nil
	case types.String:
		return reflect.TypeOf(""), nil
	case types.Bool:
		return reflect.TypeOf(false), nil
	case types.Timestamp:
		return reflect.TypeOf(time.Time{}), nil
	default:
		return nil, fferr.NewInvalidArgumentErrorf("type %s cannot be written to parquet", t)
	}
}

func writeParquet(w io.Writer, table *pa.Table) error {
	model, names, err := parquetModel(table.Schema())
	if err != nil {
		return err
	}
	records := make([]any, table.NumRows())
	for i := range records {
		record := reflect.New(model)
		for j, col := range table.Schema().Fields {
			value := pa.ValueAt(table.ColumnAt(j), i)
			if value == nil {
				continue
			}
			field := record.Elem().FieldByName(names[j])
			switch v := value.(type) {
			case int64:
				if col.Type == types.Int32 {
					casted := int32(v)
					field.Set(reflect.ValueOf(&casted))
				} else {
					field.Set(reflect.ValueOf(&v))
				}
			case float64:
				if col.Type == types.Float32 {
					casted := float32(v)
					field.Set(reflect.ValueOf(&casted))
				} else {
					field.Set(reflect.ValueOf(&v))
				}
			case string:
				field.Set(reflect.ValueOf(&v))
			case bool:
				field.Set(reflect.ValueOf(&v))
			case time.Time:
				field.Set(reflect.ValueOf(v.UTC()))
			default:
				return fferr.NewInternalErrorf("cannot write %T to parquet column %s", value, col.Name)
			}
		}
		records[i] = record.Interface()
	}
	schema := parquet.SchemaOf(reflect.New(model).Interface())
	if err := parquet.Write[any](w, records, schema); err != nil {
		return fferr.NewInternalErrorf("failed to write parquet: %v", err)
	}
	return nil
}
