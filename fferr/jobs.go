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

func NewNotMaterializedError(jobID string, operation string) *NotMaterializedError {
	err := fmt.Errorf("retrieval job must be materialized before %s", operation)
	baseError := newBaseError(err, NOT_MATERIALIZED, codes.FailedPrecondition)
	baseError.AddDetail("job_id", jobID)

	return &NotMaterializedError{
		baseError,
	}
}

type NotMaterializedError struct {
	baseError
}
