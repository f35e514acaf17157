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
)

// NoMatch is the index that Take turns into a null.
const NoMatch = -1

// Take builds a new array holding arr[indices[i]] at position i. NoMatch
// and null source cells both produce nulls.
func Take(arr arrowlib.Array, indices []int) (arrowlib.Array, error) {
	mem := memory.DefaultAllocator
	n := arr.Len()
	for _, idx := range indices {
		if idx != NoMatch && (idx < 0 || idx >= n) {
			return nil, fferr.NewInternalErrorf("take index %d out of range for column of length %d", idx, n)
		}
	}
	valid := func(idx int) bool {
		return idx != NoMatch && arr.IsValid(idx)
	}
	switch col := arr.(type) {
	case *array.Int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.Reserve(len(indices))
		for _, idx := range indices {
			if valid(idx) {
				b.Append(col.Value(idx))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case *array.Int32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.Reserve(len(indices))
		for _, idx := range indices {
			if valid(idx) {
				b.Append(col.Value(idx))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case *array.Float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.Reserve(len(indices))
		for _, idx := range indices {
			if valid(idx) {
				b.Append(col.Value(idx))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case *array.Float32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.Reserve(len(indices))
		for _, idx := range indices {
			if valid(idx) {
				b.Append(col.Value(idx))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case *array.String:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.Reserve(len(indices))
		for _, idx := range indices {
			if valid(idx) {
				b.Append(col.Value(idx))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case *array.Boolean:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.Reserve(len(indices))
		for _, idx := range indices {
			if valid(idx) {
				b.Append(col.Value(idx))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case *array.Timestamp:
		b := array.NewTimestampBuilder(mem, col.DataType().(*arrowlib.TimestampType))
		defer b.Release()
		b.Reserve(len(indices))
		for _, idx := range indices {
			if valid(idx) {
				b.Append(col.Value(idx))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	default:
		return nil, fferr.NewInternalErrorf("take is not supported for %s columns", arr.DataType())
	}
}
