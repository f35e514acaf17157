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
)

// ValueAt converts a single cell to a Go value. Integers widen to int64,
// floats to float64 and timestamps become UTC time.Time. Nulls are nil.
func ValueAt(arr arrowlib.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch col := arr.(type) {
	case *array.Int64:
		return col.Value(i)
	case *array.Int32:
		return int64(col.Value(i))
	case *array.Int16:
		return int64(col.Value(i))
	case *array.Int8:
		return int64(col.Value(i))
	case *array.Uint32:
		return int64(col.Value(i))
	case *array.Uint16:
		return int64(col.Value(i))
	case *array.Uint8:
		return int64(col.Value(i))
	case *array.Float64:
		return col.Value(i)
	case *array.Float32:
		return float64(col.Value(i))
	case *array.String:
		return col.Value(i)
	case *array.LargeString:
		return col.Value(i)
	case *array.Binary:
		return string(col.Value(i))
	case *array.Boolean:
		return col.Value(i)
	case *array.Timestamp:
		unit := col.DataType().(*arrowlib.TimestampType).Unit
		return col.Value(i).ToTime(unit).UTC()
	case *array.Date32:
		return col.Value(i).ToTime().UTC()
	case *array.Date64:
		return col.Value(i).ToTime().UTC()
	default:
		return arr.ValueStr(i)
	}
}

// TimestampMicros returns the cell as microseconds since the epoch and
// whether it was non-null. Columns built by this package are always
// microsecond timestamps.
func TimestampMicros(arr arrowlib.Array, i int) (int64, bool) {
	col, ok := arr.(*array.Timestamp)
	if !ok || col.IsNull(i) {
		return 0, false
	}
	ts := col.Value(i)
	switch col.DataType().(*arrowlib.TimestampType).Unit {
	case arrowlib.Second:
		return int64(ts) * 1_000_000, true
	case arrowlib.Millisecond:
		return int64(ts) * 1_000, true
	case arrowlib.Nanosecond:
		return int64(ts) / 1_000, true
	default:
		return int64(ts), true
	}
}
