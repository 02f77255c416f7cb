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
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/perfscope/services/perfscope/inputgen"
	"github.com/go-playground/validator/v10"
)

// newValidator builds the request validator.
//
// Description:
//
//	Registers two custom tags:
//	  - maxbytes: string byte length <= maxCodeBytes
//	  - shape: empty or a shape inputgen.ParseShape accepts
func newValidator(maxCodeBytes int) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxCodeBytes
	})
	_ = v.RegisterValidation("shape", validateShape)
	return v
}

func validateShape(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := inputgen.ParseShape(s)
	return err == nil
}

// describeValidation turns validator errors into one readable line.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "maxbytes":
			parts = append(parts, field+" is too large")
		case "shape":
			parts = append(parts, fmt.Sprintf("%s %q is not a supported shape", field, fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}
