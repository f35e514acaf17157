// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package fferr

import (
	"fmt"

	"google.golang.org/grpc/codes"
)

func NewInternalError(err error) *InternalError {
	if err == nil {
		err = fmt.Errorf("internal")
	}
	baseError := newBaseError(err, INTERNAL_ERROR, codes.Internal)

	return &InternalError{
		baseError,
	}
}

func NewInternalErrorf(format string, a ...any) *InternalError {
	return NewInternalError(fmt.Errorf(format, a...))
}

type InternalError struct {
	baseError
}

func NewInvalidArgumentError(err error) *InvalidArgumentError {
	if err == nil {
		err = fmt.Errorf("invalid argument")
	}
	baseError := newBaseError(err, INVALID_ARGUMENT, codes.InvalidArgument)

	return &InvalidArgumentError{
		baseError,
	}
}

func NewInvalidArgumentErrorf(format string, a ...any) *InvalidArgumentError {
	return NewInvalidArgumentError(fmt.Errorf(format, a...))
}

type InvalidArgumentError struct {
	baseError
}

func NewKeyNotFoundError(key string, err error) *KeyNotFoundError {
	if err == nil {
		err = fmt.Errorf("key not found")
	}
	baseError := newBaseError(err, KEY_NOT_FOUND, codes.NotFound)
	baseError.AddDetail("key", key)

	return &KeyNotFoundError{
		baseError,
	}
}

type KeyNotFoundError struct {
	baseError
}

func NewInvalidConfigError(err error) *InvalidConfigError {
	if err == nil {
		err = fmt.Errorf("invalid configuration")
	}
	baseError := newBaseError(err, INVALID_CONFIG, codes.InvalidArgument)

	return &InvalidConfigError{
		baseError,
	}
}

func NewInvalidConfigErrorf(format string, a ...any) *InvalidConfigError {
	return NewInvalidConfigError(fmt.Errorf(format, a...))
}

// NewMissingEnvError reports a required environment variable that is unset.
func NewMissingEnvError(env string) *InvalidConfigError {
	err := NewInvalidConfigErrorf("%s is required", env)
	err.AddDetail("env", env)
	return err
}

// NewInvalidEnvError reports an environment variable whose value is out of range.
func NewInvalidEnvError(env string, value any, expected any) *InvalidConfigError {
	err := NewInvalidConfigErrorf("%s is %v, expected %v", env, value, expected)
	err.AddDetail("env", env)
	return err
}

type InvalidConfigError struct {
	baseError
}
