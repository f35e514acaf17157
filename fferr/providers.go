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

func NewSourceUnavailableError(backend, location string, err error) *SourceUnavailableError {
	if err == nil {
		err = fmt.Errorf("source unavailable")
	}
	baseError := newBaseError(err, SOURCE_UNAVAILABLE, codes.Unavailable)
	baseError.AddDetail("backend", backend)
	baseError.AddDetail("location", location)

	return &SourceUnavailableError{
		baseError,
	}
}

type SourceUnavailableError struct {
	baseError
}

func NewInvalidFileTypeError(extension string, err error) *InvalidFileTypeError {
	if err == nil {
		err = fmt.Errorf("invalid filetype")
	}
	baseError := newBaseError(err, INVALID_FILE_TYPE, codes.InvalidArgument)
	baseError.AddDetail("extension", extension)

	return &InvalidFileTypeError{
		baseError,
	}
}

type InvalidFileTypeError struct {
	baseError
}
