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
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginPolicy decides which browser origins may call the API.
//
// Description:
//
//	Every analysis compiles and runs the caller's code, so a page in the
//	user's browser must not be able to reach the API just because the
//	server listens on localhost. Requests without an Origin header come
//	from non-browser clients and are allowed. Requests with one are
//	allowed when the origin's host matches the request Host or the
//	origin is on the allowlist.
//
// Thread Safety: Safe for concurrent use after construction.
type OriginPolicy struct {
	allowed map[string]struct{}
}

// NewOriginPolicy creates a policy. Entries are full origins such as
// "http://localhost:5173"; a trailing slash is ignored.
func NewOriginPolicy(allowed []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(allowed))}
	for _, o := range allowed {
		if o = normalizeOrigin(o); o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether r may proceed. Its signature matches
// websocket.Upgrader.CheckOrigin.
func (p *OriginPolicy) Allowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := p.allowed[normalizeOrigin(origin)]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Middleware rejects requests from disallowed origins with 403.
func (p *OriginPolicy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !p.Allowed(c.Request) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error: "Origin not allowed",
				Code:  "FORBIDDEN_ORIGIN",
			})
			return
		}
		c.Next()
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(origin), "/"))
}
