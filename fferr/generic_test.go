// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package fferr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestErrorRoundTrip(t *testing.T) {
	type testCase struct {
		Name string
		Err  Error
		Type string
		Code codes.Code
	}
	tests := []testCase{
		{"SourceUnavailable", NewSourceUnavailableError("s3", "s3://bucket/path", fmt.Errorf("no such bucket")), SOURCE_UNAVAILABLE, codes.Unavailable},
		{"SchemaMismatch", NewSchemaMismatchError("file:///tmp/a.parquet", []string{"trips"}, nil), SCHEMA_MISMATCH, codes.FailedPrecondition},
		{"UnknownFeatureReference", NewUnknownFeatureReferenceError("driver_hourly:missing", nil), UNKNOWN_FEATURE_REFERENCE, codes.InvalidArgument},
		{"NamingConflict", NewNamingConflictError("conv_rate", []string{"a", "b"}), NAMING_CONFLICT, codes.InvalidArgument},
		{"FeatureViewNotFound", NewFeatureViewNotFoundError("driver_hourly", nil), FEATURE_VIEW_NOT_FOUND, codes.NotFound},
		{"MissingJoinKeyColumn", NewMissingJoinKeyColumnError("driver_hourly", "driver_id"), MISSING_JOIN_KEY_COLUMN, codes.InvalidArgument},
		{"NotMaterialized", NewNotMaterializedError("job-1", "persist"), NOT_MATERIALIZED, codes.FailedPrecondition},
		{"InvalidArgument", NewInvalidArgumentErrorf("bad %s", "input"), INVALID_ARGUMENT, codes.InvalidArgument},
		{"InvalidFileType", NewInvalidFileTypeError("xlsx", nil), INVALID_FILE_TYPE, codes.InvalidArgument},
		{"KeyNotFound", NewKeyNotFoundError("views/a", nil), KEY_NOT_FOUND, codes.NotFound},
		{"Internal", NewInternalErrorf("boom"), INTERNAL_ERROR, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			assert.Equal(t, tt.Type, tt.Err.GetType())
			assert.Equal(t, tt.Code, tt.Err.GetCode())

			rebuilt := FromErr(tt.Err.ToErr())
			require.NotNil(t, rebuilt)
			assert.Equal(t, tt.Type, rebuilt.GetType())
			assert.Equal(t, tt.Code, rebuilt.GetCode())
			assert.Equal(t, tt.Err.Details(), rebuilt.Details())
		})
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewSourceUnavailableError("postgres", "postgres://db/features", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "postgres", err.GetDetail("backend"))
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("reading view: %w", NewSchemaMismatchErrorf("mem://trips", "column %s missing", "ts"))
	assert.True(t, IsType(wrapped, SCHEMA_MISMATCH))
	assert.False(t, IsType(wrapped, SOURCE_UNAVAILABLE))
	assert.False(t, IsType(fmt.Errorf("plain"), SCHEMA_MISMATCH))
}

func TestFromErrPassthrough(t *testing.T) {
	assert.Nil(t, FromErr(nil))

	original := NewNamingConflictError("trips", []string{"view_a", "view_b"})
	assert.Same(t, Error(original), FromErr(original))

	plain := FromErr(fmt.Errorf("plain"))
	assert.Equal(t, INTERNAL_ERROR, plain.GetType())
}

func TestDetailKeysAreNormalized(t *testing.T) {
	err := NewInternalErrorf("boom")
	err.AddDetail("Feature View", "driver_hourly")
	assert.Equal(t, "driver_hourly", err.GetDetail("feature_view"))
	assert.Contains(t, err.Error(), "feature_view: driver_hourly")
}

func TestInvalidConfig(t *testing.T) {
	missing := NewMissingEnvError("ENTITY_TIMESTAMP_COLUMN")
	assert.Contains(t, missing.Error(), "ENTITY_TIMESTAMP_COLUMN is required")
	assert.Equal(t, "ENTITY_TIMESTAMP_COLUMN", missing.GetDetail("env"))
	assert.Equal(t, codes.InvalidArgument, missing.GetCode())

	invalid := NewInvalidEnvError("JOIN_WORKERS", -1, "a positive integer")
	assert.Contains(t, invalid.Error(), "JOIN_WORKERS is -1, expected a positive integer")

	rebuilt := FromErr(invalid.ToErr())
	assert.Equal(t, INVALID_CONFIG, rebuilt.GetType())
	assert.Equal(t, "JOIN_WORKERS", rebuilt.GetDetail("env"))
}
