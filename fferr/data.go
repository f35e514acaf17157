// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package fferr

import (
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
)

func NewSchemaMismatchError(location string, missing []string, err error) *SchemaMismatchError {
	if err == nil {
		err = fmt.Errorf("declared columns are missing from the loaded data")
	}
	baseError := newBaseError(err, SCHEMA_MISMATCH, codes.FailedPrecondition)
	baseError.AddDetail("location", location)
	if len(missing) > 0 {
		baseError.AddDetail("missing_columns", strings.Join(missing, ", "))
	}

	return &SchemaMismatchError{
		baseError,
	}
}

func NewSchemaMismatchErrorf(location string, format string, a ...any) *SchemaMismatchError {
	return NewSchemaMismatchError(location, nil, fmt.Errorf(format, a...))
}

type SchemaMismatchError struct {
	baseError
}

func NewUnknownFeatureReferenceError(reference string, err error) *UnknownFeatureReferenceError {
	if err == nil {
		err = fmt.Errorf("feature reference does not name a known feature view and feature")
	}
	baseError := newBaseError(err, UNKNOWN_FEATURE_REFERENCE, codes.InvalidArgument)
	baseError.AddDetail("reference", reference)

	return &UnknownFeatureReferenceError{
		baseError,
	}
}

type UnknownFeatureReferenceError struct {
	baseError
}

func NewNamingConflictError(column string, sources []string) *NamingConflictError {
	err := fmt.Errorf("output column %q is produced more than once; request full feature names to namespace it", column)
	baseError := newBaseError(err, NAMING_CONFLICT, codes.InvalidArgument)
	baseError.AddDetail("column", column)
	baseError.AddDetail("sources", strings.Join(sources, ", "))

	return &NamingConflictError{
		baseError,
	}
}

type NamingConflictError struct {
	baseError
}

func NewFeatureViewNotFoundError(name string, err error) *FeatureViewNotFoundError {
	if err == nil {
		err = fmt.Errorf("feature view not found")
	}
	baseError := newBaseError(err, FEATURE_VIEW_NOT_FOUND, codes.NotFound)
	baseError.AddDetail("feature_view", name)

	return &FeatureViewNotFoundError{
		baseError,
	}
}

type FeatureViewNotFoundError struct {
	baseError
}

func NewMissingJoinKeyColumnError(featureView, column string) *MissingJoinKeyColumnError {
	err := fmt.Errorf("entity table has no column %q required to join feature view %q", column, featureView)
	baseError := newBaseError(err, MISSING_JOIN_KEY_COLUMN, codes.InvalidArgument)
	baseError.AddDetail("feature_view", featureView)
	baseError.AddDetail("column", column)

	return &MissingJoinKeyColumnError{
		baseError,
	}
}

type MissingJoinKeyColumnError struct {
	baseError
}
