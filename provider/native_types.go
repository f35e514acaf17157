// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"strings"

	types "github.com/featureform/historical/fftypes"
	pl "github.com/featureform/historical/provider/location"
)

var postgresNativeTypes = map[string]types.ScalarType{
	"int2":                     types.Int32,
	"int4":                     types.Int32,
	"integer":                  types.Int32,
	"int":                      types.Int32,
	"int8":                     types.Int64,
	"bigint":                   types.Int64,
	"float4":                   types.Float32,
	"real":                     types.Float32,
	"float8":                   types.Float64,
	"double precision":         types.Float64,
	"numeric":                  types.Float64,
	"text":                     types.String,
	"varchar":                  types.String,
	"character varying":        types.String,
	"bpchar":                   types.String,
	"bool":                     types.Bool,
	"boolean":                  types.Bool,
	"date":                     types.Timestamp,
	"timestamp":                types.Timestamp,
	"timestamptz":              types.Timestamp,
	"timestamp with time zone": types.Timestamp,
}

var mysqlNativeTypes = map[string]types.ScalarType{
	"tinyint":   types.Int32,
	"smallint":  types.Int32,
	"int":       types.Int32,
	"integer":   types.Int32,
	"bigint":    types.Int64,
	"float":     types.Float32,
	"double":    types.Float64,
	"decimal":   types.Float64,
	"char":      types.String,
	"varchar":   types.String,
	"text":      types.String,
	"boolean":   types.Bool,
	"date":      types.Timestamp,
	"datetime":  types.Timestamp,
	"timestamp": types.Timestamp,
}

var clickhouseNativeTypes = map[string]types.ScalarType{
	"int8":       types.Int32,
	"int16":      types.Int32,
	"int32":      types.Int32,
	"int64":      types.Int64,
	"uint8":      types.Int32,
	"uint16":     types.Int32,
	"uint32":     types.Int64,
	"uint64":     types.Int64,
	"float32":    types.Float32,
	"float64":    types.Float64,
	"string":     types.String,
	"bool":       types.Bool,
	"date":       types.Timestamp,
	"datetime":   types.Timestamp,
	"datetime64": types.Timestamp,
}

var snowflakeNativeTypes = map[string]types.ScalarType{
	"fixed":         types.Int64,
	"number":        types.Int64,
	"real":          types.Float64,
	"float":         types.Float64,
	"text":          types.String,
	"varchar":       types.String,
	"boolean":       types.Bool,
	"date":          types.Timestamp,
	"timestamp_ntz": types.Timestamp,
	"timestamp_ltz": types.Timestamp,
	"timestamp_tz":  types.Timestamp,
}

var nativeTypes = map[pl.SQLEngine]map[string]types.ScalarType{
	pl.Postgres:   postgresNativeTypes,
	pl.MySQL:      mysqlNativeTypes,
	pl.ClickHouse: clickhouseNativeTypes,
	pl.Snowflake:  snowflakeNativeTypes,
}

// normalizeNativeType lower-cases a driver type name and strips
// Nullable(...) wrappers and precision arguments, so "Nullable(DateTime64(9))"
// becomes "datetime64".
func normalizeNativeType(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.HasPrefix(name, "nullable(") && strings.HasSuffix(name, ")") {
		name = name[len("nullable(") : len(name)-1]
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "unsigned ")
	return strings.TrimSpace(name)
}

// nativeScalarType returns the type a backend column's values scan into.
func nativeScalarType(engine pl.SQLEngine, name string) (types.ScalarType, bool) {
	t, ok := nativeTypes[engine][normalizeNativeType(name)]
	return t, ok
}

// compatibleNativeType reports whether values of a native column can be
// coerced into the declared type. Unknown native types are assumed to be.
func compatibleNativeType(declared, native types.ScalarType) bool {
	switch {
	case native == types.Unknown, declared == types.String:
		return true
	case native == types.Timestamp:
		return declared == types.Timestamp
	case declared == types.Timestamp:
		return native == types.String || native.IsInteger()
	default:
		return true
	}
}
