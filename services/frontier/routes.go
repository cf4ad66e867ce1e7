// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package frontier

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const requestIDKey = "frontier.request_id"

// RegisterRoutes registers all /v1/frontier/* endpoints.
//
// Endpoints:
//
//	POST /v1/frontier/edges - Insert an edge between node ids
//	POST /v1/frontier/relations - Insert an edge between entity names
//	POST /v1/frontier/import - Import a knowledge-graph document
//	GET  /v1/frontier/paths - Bounded shortest paths from one source
//	POST /v1/frontier/impact - Nearest reachable nodes with paths
//	POST /v1/frontier/expand - Multi-seed expansion
//	GET  /v1/frontier/stats - Graph, heuristic and cache statistics
//	GET  /v1/frontier/health - Liveness
//	GET  /v1/frontier/ready - Readiness
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	fg := rg.Group("/frontier")
	{
		fg.POST("/edges", h.HandleAddEdge)
		fg.POST("/relations", h.HandleAddRelation)
		fg.POST("/import", h.HandleImport)

		fg.GET("/paths", h.HandlePaths)
		fg.POST("/impact", h.HandleImpact)
		fg.POST("/expand", h.HandleExpand)

		fg.GET("/stats", h.HandleStats)
		fg.GET("/health", h.HandleHealth)
		fg.GET("/ready", h.HandleReady)
	}
}

// RequestID assigns every request an X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		getOrCreateRequestID(c)
		c.Next()
	}
}

// RateLimit rejects requests above rps with 429. rps <= 0 disables it.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	retryAfter := strconv.Itoa(max(1, int(1/rps)))

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error:     "rate limit exceeded",
				Code:      "RATE_LIMITED",
				RequestID: c.GetString(requestIDKey),
			})
			return
		}
		c.Next()
	}
}

// MaxBodyBytes caps request body size.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
