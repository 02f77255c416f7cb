// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

// errorStatus maps an error to an HTTP status and error code.
//
// A compile that times out is a build failure, so ErrBuild is checked
// before ErrTimeout.
func errorStatus(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}

	var buildErr *domain.BuildError
	var execErr *domain.ExecutionError

	switch {
	case errors.Is(err, domain.ErrValidation):
		resp.Code = "INVALID_REQUEST"
		return http.StatusBadRequest, resp
	case errors.As(err, &buildErr):
		resp.Code = "BUILD_FAILED"
		resp.Details = buildErr.Diagnostics
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, domain.ErrBuild):
		resp.Code = "BUILD_FAILED"
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		resp.Code = "TIMEOUT"
		return http.StatusGatewayTimeout, resp
	case errors.As(err, &execErr):
		resp.Code = "EXECUTION_FAILED"
		resp.Details = execErr.Output
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, domain.ErrExecution):
		resp.Code = "EXECUTION_FAILED"
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, domain.ErrNotFound):
		resp.Code = "NOT_FOUND"
		return http.StatusNotFound, resp
	case errors.Is(err, context.Canceled):
		resp.Code = "CANCELLED"
		return http.StatusServiceUnavailable, resp
	default:
		resp.Code = "INTERNAL"
		return http.StatusInternalServerError, resp
	}
}
