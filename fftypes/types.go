// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package types

import (
	"fmt"
	"slices"
	"strings"

	"github.com/featureform/historical/fferr"
)

// ScalarType is the logical type of a column, independent of the backend
// that stores it.
type ScalarType string

const (
	Int       ScalarType = "int"
	Int32     ScalarType = "int32"
	Int64     ScalarType = "int64"
	Float32   ScalarType = "float32"
	Float64   ScalarType = "float64"
	String    ScalarType = "string"
	Bool      ScalarType = "bool"
	Timestamp ScalarType = "timestamp"
	Unknown   ScalarType = "unknown"
)

var ScalarTypes = []ScalarType{
	Int, Int32, Int64, Float32, Float64, String, Bool, Timestamp,
}

var NumericTypes = []ScalarType{
	Int, Int32, Int64, Float32, Float64,
}

var aliases = map[string]ScalarType{
	"int":       Int,
	"integer":   Int,
	"int32":     Int32,
	"int64":     Int64,
	"bigint":    Int64,
	"long":      Int64,
	"float32":   Float32,
	"float":     Float32,
	"float64":   Float64,
	"double":    Float64,
	"string":    String,
	"str":       String,
	"text":      String,
	"varchar":   String,
	"bool":      Bool,
	"boolean":   Bool,
	"timestamp": Timestamp,
	"datetime":  Timestamp,
}

func ParseScalarType(s string) (ScalarType, error) {
	t, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Unknown, fferr.NewInvalidArgumentErrorf("unsupported type '%s', must be one of %v", s, ScalarTypes)
	}
	return t, nil
}

func (t ScalarType) IsNumeric() bool {
	return slices.Contains(NumericTypes, t)
}

func (t ScalarType) IsInteger() bool {
	return t == Int || t == Int32 || t == Int64
}

// Family groups types that compare equal as join keys. Integers of any
// width share a family, as do floats.
func (t ScalarType) Family() string {
	switch t {
	case Int, Int32, Int64:
		return "integer"
	case Float32, Float64:
		return "float"
	default:
		return string(t)
	}
}

func (t ScalarType) String() string {
	return string(t)
}

type NativeType string

type ColumnSchema struct {
	Name       string
	NativeType NativeType
	Type       ScalarType
	IsNullable bool
}

type Schema struct {
	Fields []ColumnSchema
}

func NewSchema(fields ...ColumnSchema) Schema {
	return Schema{Fields: fields}
}

func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s Schema) Lookup(name string) (ColumnSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return ColumnSchema{}, false
}

// Validate rejects empty and duplicate column names.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fferr.NewInvalidArgumentErrorf("schema has a column with no name")
		}
		if _, has := seen[f.Name]; has {
			return fferr.NewInvalidArgumentErrorf("schema has duplicate column '%s'", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func (s Schema) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = fmt.Sprintf("%s:%s", f.Name, f.Type)
	}
	return strings.Join(parts, ", ")
}
