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

	"github.com/rotisserie/eris"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// SOURCES:
	SOURCE_UNAVAILABLE = "Source Unavailable"
	SCHEMA_MISMATCH    = "Schema Mismatch"
	INVALID_FILE_TYPE  = "Invalid File Type"

	// RESOLUTION:
	UNKNOWN_FEATURE_REFERENCE = "Unknown Feature Reference"
	NAMING_CONFLICT           = "Naming Conflict"
	FEATURE_VIEW_NOT_FOUND    = "Feature View Not Found"

	// JOIN:
	MISSING_JOIN_KEY_COLUMN = "Missing Join Key Column"

	// JOBS:
	NOT_MATERIALIZED = "Not Materialized"

	// MISCELLANEOUS:
	INTERNAL_ERROR   = "Internal Error"
	INVALID_ARGUMENT = "Invalid Argument"
	INVALID_CONFIG   = "Invalid Config"
	KEY_NOT_FOUND    = "Key Not Found"
)

type JSONStackTrace map[string]interface{}

// Error is implemented by every error in this package. The type string
// and gRPC code survive a round trip through ToErr and FromErr.
type Error interface {
	GetCode() codes.Code
	GetType() string
	ToErr() error
	AddDetail(key, value string)
	GetDetail(key string) string
	Details() map[string]string
	Stack() JSONStackTrace
	Error() string
}

func newBaseError(err error, errorType string, code codes.Code) baseError {
	if err == nil {
		err = fmt.Errorf("initial error")
	}
	return baseError{
		code:         code,
		errorType:    errorType,
		GenericError: NewGenericError(err),
	}
}

type baseError struct {
	code      codes.Code
	errorType string
	GenericError
}

func (e *baseError) GetCode() codes.Code {
	return e.code
}

func (e *baseError) GetType() string {
	return e.errorType
}

func (e *baseError) ToErr() error {
	st := status.New(e.code, e.msg)
	ef := &errdetails.ErrorInfo{
		Reason:   e.errorType,
		Metadata: e.details,
	}
	statusWithDetails, err := st.WithDetails(ef)
	if err == nil {
		return statusWithDetails.Err()
	}
	return st.Err()
}

// FromErr rebuilds a typed error from a gRPC status error. Errors that
// are already typed are returned as is.
func FromErr(err error) Error {
	// If the error is nil, then simply pass it through to
	// avoid having to check for nil errors at the call site
	if err == nil {
		return nil
	}
	var typed Error
	if errors.As(err, &typed) {
		return typed
	}
	st, ok := status.FromError(err)
	if !ok {
		return NewInternalError(err)
	}
	for _, detail := range st.Details() {
		errorInfo, ok := detail.(*errdetails.ErrorInfo)
		if !ok {
			continue
		}
		base := baseError{
			code:      st.Code(),
			errorType: errorInfo.Reason,
			GenericError: GenericError{
				msg:     st.Message(),
				err:     eris.New(st.Message()),
				details: map[string]string{},
			},
		}
		for k, v := range errorInfo.Metadata {
			base.details[k] = v
		}
		return wrapBase(base)
	}
	return NewInternalError(err)
}

func wrapBase(base baseError) Error {
	switch base.errorType {
	case SOURCE_UNAVAILABLE:
		return &SourceUnavailableError{base}
	case SCHEMA_MISMATCH:
		return &SchemaMismatchError{base}
	case INVALID_FILE_TYPE:
		return &InvalidFileTypeError{base}
	case UNKNOWN_FEATURE_REFERENCE:
		return &UnknownFeatureReferenceError{base}
	case NAMING_CONFLICT:
		return &NamingConflictError{base}
	case FEATURE_VIEW_NOT_FOUND:
		return &FeatureViewNotFoundError{base}
	case MISSING_JOIN_KEY_COLUMN:
		return &MissingJoinKeyColumnError{base}
	case NOT_MATERIALIZED:
		return &NotMaterializedError{base}
	case INVALID_ARGUMENT:
		return &InvalidArgumentError{base}
	case INVALID_CONFIG:
		return &InvalidConfigError{base}
	case KEY_NOT_FOUND:
		return &KeyNotFoundError{base}
	default:
		return &InternalError{base}
	}
}

// IsType reports whether err, or anything it wraps, is an fferr error of
// the given type.
func IsType(err error, errorType string) bool {
	var typed Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.GetType() == errorType
}
