// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package serving

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/logging"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Type    string            `json:"type"`
	Details map[string]string `json:"details,omitempty"`
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return 499
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Errorw("Request timed out", "err", err)
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: err.Error(), Type: "Deadline Exceeded"})
		return
	case errors.Is(err, context.Canceled):
		logger.Infow("Request cancelled", "err", err)
		c.JSON(httpStatus(codes.Canceled), ErrorResponse{Error: err.Error(), Type: "Cancelled"})
		return
	}
	typed := fferr.FromErr(err)
	status := httpStatus(typed.GetCode())
	if status >= http.StatusInternalServerError {
		logger.Errorw("Request failed", "err", typed, "stack", typed.Stack())
	} else {
		logger.Infow("Request rejected", "err", typed)
	}
	c.JSON(status, ErrorResponse{
		Error:   typed.Error(),
		Type:    typed.GetType(),
		Details: typed.Details(),
	})
}
