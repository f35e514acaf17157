// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// Cast coerces a backend value into the Go representation of t: int64 for
// integer types, float64 for floats, string, bool and UTC time.Time. A nil
// input casts to nil.
func Cast(v any, t ScalarType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case Int, Int32, Int64:
		return CastNumberToInt64(v)
	case Float32, Float64:
		return CastNumberToFloat64(v)
	case String:
		return CastString(v)
	case Bool:
		return CastBool(v)
	case Timestamp:
		return CastTimestamp(v)
	default:
		return nil, fmt.Errorf("cannot cast to type %s", t)
	}
}

func CastNumberToInt(v any) (int, error) {
	casted, err := CastNumberToInt64(v)
	if err != nil {
		return 0, err
	}
	return int(casted), nil
}

func CastNumberToInt32(v any) (int32, error) {
	casted, err := CastNumberToInt64(v)
	if err != nil {
		return 0, err
	}
	if casted > math.MaxInt32 || casted < math.MinInt32 {
		return 0, fmt.Errorf("value %d overflows int32", casted)
	}
	return int32(casted), nil
}

func CastNumberToInt64(v any) (int64, error) {
	switch casted := v.(type) {
	case int:
		return int64(casted), nil
	case int8:
		return int64(casted), nil
	case int16:
		return int64(casted), nil
	case int32:
		return int64(casted), nil
	case int64:
		return casted, nil
	case uint8:
		return int64(casted), nil
	case uint16:
		return int64(casted), nil
	case uint32:
		return int64(casted), nil
	case uint64:
		if casted > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", casted)
		}
		return int64(casted), nil
	case float32:
		return int64(casted), nil
	case float64:
		if casted != math.Trunc(casted) {
			return 0, fmt.Errorf("cannot cast non-integral %v to int64", casted)
		}
		return int64(casted), nil
	case json.Number:
		if intVal, err := casted.Int64(); err == nil {
			return intVal, nil
		}
		floatVal, err := casted.Float64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse int64 from number %s: %w", casted, err)
		}
		return CastNumberToInt64(floatVal)
	case []byte:
		return strconv.ParseInt(string(casted), 10, 64)
	case string:
		intVal, err := strconv.ParseInt(casted, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse int64 from string: %w", err)
		}
		return intVal, nil
	default:
		return 0, fmt.Errorf("cannot cast %T to int64", v)
	}
}

func CastNumberToFloat32(v any) (float32, error) {
	casted, err := CastNumberToFloat64(v)
	if err != nil {
		return 0, err
	}
	return float32(casted), nil
}

func CastNumberToFloat64(v any) (float64, error) {
	switch casted := v.(type) {
	case int:
		return float64(casted), nil
	case int8:
		return float64(casted), nil
	case int16:
		return float64(casted), nil
	case int32:
		return float64(casted), nil
	case int64:
		return float64(casted), nil
	case uint8:
		return float64(casted), nil
	case uint16:
		return float64(casted), nil
	case uint32:
		return float64(casted), nil
	case uint64:
		return float64(casted), nil
	case float32:
		return float64(casted), nil
	case float64:
		return casted, nil
	case json.Number:
		return casted.Float64()
	case []byte:
		return strconv.ParseFloat(string(casted), 64)
	case string:
		floatVal, err := strconv.ParseFloat(casted, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse float64 from string: %w", err)
		}
		return floatVal, nil
	default:
		return 0, fmt.Errorf("cannot cast %T to float64", v)
	}
}

func CastString(v any) (string, error) {
	switch casted := v.(type) {
	case string:
		return casted, nil
	case []byte:
		return string(casted), nil
	case fmt.Stringer:
		return casted.String(), nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64, bool:
		return fmt.Sprintf("%v", casted), nil
	case float32:
		return strconv.FormatFloat(float64(casted), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(casted, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("cannot cast %T to string", v)
	}
}

func CastBool(v any) (bool, error) {
	switch casted := v.(type) {
	case bool:
		return casted, nil
	case string:
		return strconv.ParseBool(casted)
	case []byte:
		return strconv.ParseBool(string(casted))
	case int:
		return casted != 0, nil
	case int32:
		return casted != 0, nil
	case int64:
		return casted != 0, nil
	default:
		return false, fmt.Errorf("cannot cast %T to bool", v)
	}
}

// CastTimestamp accepts time values, common date strings and epoch seconds.
// Strings without a zone are read as UTC.
func CastTimestamp(v any) (time.Time, error) {
	switch casted := v.(type) {
	case time.Time:
		return casted.UTC(), nil
	case *time.Time:
		if casted == nil {
			return time.Time{}, fmt.Errorf("cannot cast nil *time.Time")
		}
		return casted.UTC(), nil
	case []byte:
		return CastTimestamp(string(casted))
	case string:
		parsed, err := dateparse.ParseIn(casted, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse timestamp from string: %w", err)
		}
		return parsed.UTC(), nil
	case int64:
		return time.Unix(casted, 0).UTC(), nil
	case int:
		return time.Unix(int64(casted), 0).UTC(), nil
	case json.Number:
		if sec, err := casted.Int64(); err == nil {
			return time.Unix(sec, 0).UTC(), nil
		}
		f, err := casted.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse timestamp from number %s: %w", casted, err)
		}
		return CastTimestamp(f)
	case float64:
		sec, frac := math.Modf(casted)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot cast %T to timestamp", v)
	}
}
