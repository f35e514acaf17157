// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package pitjoin

import (
	"math"
	"strconv"

	arrowlib "github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/featureform/historical/fferr"
	pa "github.com/featureform/historical/provider/arrow"
)

// keyEncoder appends the encoding of row i to buf. It reports false when
// the cell is null. Values of the same type family encode identically, so
// an int32 entity key matches an int64 feature key.
type keyEncoder func(buf []byte, i int) ([]byte, bool)

func newKeyEncoder(arr arrowlib.Array, column string) (keyEncoder, error) {
	switch col := arr.(type) {
	case *array.Int64:
		return func(buf []byte, i int) ([]byte, bool) {
			if col.IsNull(i) {
				return buf, false
			}
			return strconv.AppendInt(append(buf, 'i'), col.Value(i), 10), true
		}, nil
	case *array.Int32:
		return func(buf []byte, i int) ([]byte, bool) {
			if col.IsNull(i) {
				return buf, false
			}
			return strconv.AppendInt(append(buf, 'i'), int64(col.Value(i)), 10), true
		}, nil
	case *array.Float64:
		return func(buf []byte, i int) ([]byte, bool) {
			if col.IsNull(i) {
				return buf, false
			}
			return appendFloat(buf, col.Value(i)), true
		}, nil
	case *array.Float32:
		return func(buf []byte, i int) ([]byte, bool) {
			if col.IsNull(i) {
				return buf, false
			}
			return appendFloat(buf, float64(col.Value(i))), true
		}, nil
	case *array.String:
		return func(buf []byte, i int) ([]byte, bool) {
			if col.IsNull(i) {
				return buf, false
			}
			v := col.Value(i)
			buf = strconv.AppendInt(append(buf, 's'), int64(len(v)), 10)
			return append(append(buf, ':'), v...), true
		}, nil
	case *array.Boolean:
		return func(buf []byte, i int) ([]byte, bool) {
			if col.IsNull(i) {
				return buf, false
			}
			if col.Value(i) {
				return append(buf, 'b', '1'), true
			}
			return append(buf, 'b', '0'), true
		}, nil
	case *array.Timestamp:
		return func(buf []byte, i int) ([]byte, bool) {
			micros, ok := pa.TimestampMicros(col, i)
			if !ok {
				return buf, false
			}
			return strconv.AppendInt(append(buf, 't'), micros, 10), true
		}, nil
	default:
		return nil, fferr.NewInternalErrorf("column %s of type %s cannot be a join key", column, arr.DataType())
	}
}

func appendFloat(buf []byte, v float64) []byte {
	// -0 and 0 are the same key.
	if v == 0 {
		v = 0
	}
	if math.IsNaN(v) {
		return append(buf, 'f', 'N')
	}
	return strconv.AppendFloat(append(buf, 'f'), v, 'g', -1, 64)
}

// compositeKey encodes the join keys of one table.
type compositeKey struct {
	encoders []keyEncoder
}

func newCompositeKey(table *pa.Table, keys []string, view string, entitySide bool) (*compositeKey, error) {
	encoders := make([]keyEncoder, len(keys))
	for i, key := range keys {
		arr, _, has := table.Column(key)
		if !has {
			if entitySide {
				return nil, fferr.NewMissingJoinKeyColumnError(view, key)
			}
			return nil, fferr.NewSchemaMismatchError(view, []string{key}, nil)
		}
		enc, err := newKeyEncoder(arr, key)
		if err != nil {
			return nil, err
		}
		encoders[i] = enc
	}
	return &compositeKey{encoders: encoders}, nil
}

// encode returns the key of row i, or false if any key cell is null.
func (k *compositeKey) encode(buf []byte, i int) ([]byte, bool) {
	buf = buf[:0]
	for j, enc := range k.encoders {
		if j > 0 {
			buf = append(buf, 0x1f)
		}
		var ok bool
		buf, ok = enc(buf, i)
		if !ok {
			return buf, false
		}
	}
	return buf, true
}

// checkKeyFamilies fails when an entity key and the matching feature key
// cannot compare equal, such as a string entity id against integer
// feature ids.
func checkKeyFamilies(entities, features *pa.Table, keys []string, view string) error {
	for _, key := range keys {
		_, entityCol, _ := entities.Column(key)
		_, featureCol, _ := features.Column(key)
		if entityCol.Type.Family() != featureCol.Type.Family() {
			return fferr.NewSchemaMismatchErrorf(view,
				"join key %s is %s in the entity table but %s in the feature view", key, entityCol.Type, featureCol.Type)
		}
	}
	return nil
}
