// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package arrow

import (
	arrowlib "github.com/apache/arrow-go/v18/arrow"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
)

// TimestampType is the single timestamp representation used by every
// table: microseconds since the epoch, UTC.
var TimestampType = &arrowlib.TimestampType{Unit: arrowlib.Microsecond, TimeZone: "UTC"}

var scalarTypeMap = map[string]types.ScalarType{
	"utf8":       types.String,
	"large_utf8": types.String,
	"binary":     types.String,
	"bool":       types.Bool,

	"int8":   types.Int32,
	"int16":  types.Int32,
	"int32":  types.Int32,
	"int64":  types.Int64,
	"uint8":  types.Int32,
	"uint16": types.Int32,
	"uint32": types.Int64,

	"float16": types.Float32,
	"float32": types.Float32,
	"float64": types.Float64,

	"timestamp": types.Timestamp,
	"date32":    types.Timestamp,
	"date64":    types.Timestamp,
}

func ToArrowType(t types.ScalarType) (arrowlib.DataType, error) {
	switch t {
	case types.Int, types.Int64:
		return arrowlib.PrimitiveTypes.Int64, nil
	case types.Int32:
		return arrowlib.PrimitiveTypes.Int32, nil
	case types.Float32:
		return arrowlib.PrimitiveTypes.Float32, nil
	case types.Float64:
		return arrowlib.PrimitiveTypes.Float64, nil
	case types.String:
		return arrowlib.BinaryTypes.String, nil
	case types.Bool:
		return arrowlib.FixedWidthTypes.Boolean, nil
	case types.Timestamp:
		return TimestampType, nil
	default:
		return nil, fferr.NewInvalidArgumentErrorf("type %s has no columnar representation", t)
	}
}

func ToArrowSchema(schema types.Schema) (*arrowlib.Schema, error) {
	fields := make([]arrowlib.Field, len(schema.Fields))
	for i, col := range schema.Fields {
		dt, err := ToArrowType(col.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = arrowlib.Field{Name: col.Name, Type: dt, Nullable: true}
	}
	return arrowlib.NewSchema(fields, nil), nil
}

func ConvertSchema(schema *arrowlib.Schema) types.Schema {
	var sch types.Schema
	for _, field := range schema.Fields() {
		nativeType, valType := mapScalarType(field.Type)
		sch.Fields = append(sch.Fields, types.ColumnSchema{
			Name:       field.Name,
			NativeType: nativeType,
			Type:       valType,
			IsNullable: field.Nullable,
		})
	}
	return sch
}

func mapScalarType(dt arrowlib.DataType) (types.NativeType, types.ScalarType) {
	nativeType := dt.Name()
	valueType, ok := scalarTypeMap[nativeType]
	if !ok {
		valueType = types.Unknown
	}
	return types.NativeType(nativeType), valueType
}
