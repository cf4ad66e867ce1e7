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
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/ingest"
	"github.com/AleutianAI/FrontierGraph/services/frontier/traversal"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers serves the /v1/frontier API over a Database.
type Handlers struct {
	db     *Database
	logger *slog.Logger
}

// NewHandlers creates handlers. A nil logger uses slog.Default().
func NewHandlers(db *Database, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{db: db, logger: logger}
}

// HandleAddEdge handles POST /v1/frontier/edges.
//
// Response:
//
//	201 Created: empty body
//	400 Bad Request: INVALID_REQUEST
//	507 Insufficient Storage: CAPACITY_EXCEEDED
func (h *Handlers) HandleAddEdge(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req AddEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, requestID, err)
		return
	}

	err := h.db.AddEdge(c.Request.Context(), graph.NodeID(*req.From), graph.NodeID(*req.To), *req.Weight)
	if err != nil {
		h.writeError(c, requestID, "AddEdge", err)
		return
	}
	c.Status(http.StatusCreated)
}

// HandleAddRelation handles POST /v1/frontier/relations.
//
// Response:
//
//	201 Created: AddRelationResponse
//	400 Bad Request: INVALID_REQUEST
//	507 Insufficient Storage: CAPACITY_EXCEEDED
func (h *Handlers) HandleAddRelation(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req AddRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, requestID, err)
		return
	}
	weight := float32(1)
	if req.Weight != nil {
		weight = *req.Weight
	}

	from, to, err := h.db.AddRelation(c.Request.Context(), req.Source, req.Target, weight)
	if err != nil {
		h.writeError(c, requestID, "AddRelation", err)
		return
	}
	c.JSON(http.StatusCreated, AddRelationResponse{From: from, To: to})
}

// HandlePaths handles GET /v1/frontier/paths.
//
// Query Parameters:
//
//	source: numeric node id (or use name)
//	name: entity name of the source
//	bound: search radius; omitted or "inf" for unbounded
//
// Response:
//
//	200 OK: PathsResponse
//	400 Bad Request: INVALID_BOUND or INVALID_REQUEST
//	404 Not Found: UNKNOWN_NODE
func (h *Handlers) HandlePaths(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	source, err := h.sourceFromQuery(c)
	if err != nil {
		h.writeError(c, requestID, "Paths", err)
		return
	}
	bound, err := parseBound(c.Query("bound"))
	if err != nil {
		h.writeError(c, requestID, "Paths", err)
		return
	}

	res, cached, err := h.db.ShortestPaths(c.Request.Context(), source, bound)
	if err != nil {
		h.writeError(c, requestID, "Paths", err)
		return
	}
	c.JSON(http.StatusOK, NewPathsResponse(res, cached, h.db.Name))
}

// HandleImpact handles POST /v1/frontier/impact.
//
// Response:
//
//	200 OK: ImpactReport
//	400 Bad Request: INVALID_BOUND or INVALID_REQUEST
//	404 Not Found: UNKNOWN_NODE
func (h *Handlers) HandleImpact(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req ImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, requestID, err)
		return
	}

	var source graph.NodeID
	switch {
	case req.Source != nil:
		source = graph.NodeID(*req.Source)
	case req.SourceName != "":
		id, err := h.db.Resolve(req.SourceName)
		if err != nil {
			h.writeError(c, requestID, "Impact", err)
			return
		}
		source = id
	default:
		h.badRequest(c, requestID, errors.New("source or source_name is required"))
		return
	}

	report, err := h.db.Impact(c.Request.Context(), source, boundOrInf(req.Bound), req.Limit)
	if err != nil {
		h.writeError(c, requestID, "Impact", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleExpand handles POST /v1/frontier/expand.
//
// Response:
//
//	200 OK: Expansion
//	400 Bad Request: INVALID_BOUND or INVALID_REQUEST
//	404 Not Found: UNKNOWN_NODE
func (h *Handlers) HandleExpand(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req ExpandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, requestID, err)
		return
	}

	seeds := make([]graph.NodeID, 0, len(req.Seeds)+len(req.SeedNames))
	for _, s := range req.Seeds {
		seeds = append(seeds, graph.NodeID(s))
	}
	for _, name := range req.SeedNames {
		id, err := h.db.Resolve(name)
		if err != nil {
			h.writeError(c, requestID, "Expand", err)
			return
		}
		seeds = append(seeds, id)
	}

	exp, err := h.db.Expand(c.Request.Context(), seeds, boundOrInf(req.Bound))
	if err != nil {
		h.writeError(c, requestID, "Expand", err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// HandleImport handles POST /v1/frontier/import with a document body.
//
// Response:
//
//	200 OK: ImportSummary
//	400 Bad Request: INVALID_REQUEST
//	507 Insufficient Storage: CAPACITY_EXCEEDED (partial import)
func (h *Handlers) HandleImport(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	doc, err := ingest.Parse(c.Request.Body)
	if err != nil {
		h.writeError(c, requestID, "Import", err)
		return
	}

	summary, err := h.db.Import(c.Request.Context(), doc)
	if err != nil {
		h.writeError(c, requestID, "Import", err)
		return
	}
	h.logger.Info("document imported over http",
		"request_id", requestID,
		"document_id", summary.DocumentID,
		"inserted", summary.Inserted)
	c.JSON(http.StatusOK, summary)
}

// HandleStats handles GET /v1/frontier/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.db.Stats())
}

// HandleHealth handles GET /v1/frontier/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: ServiceVersion})
}

// HandleReady handles GET /v1/frontier/ready.
//
// Returns 503 once the database is closed.
func (h *Handlers) HandleReady(c *gin.Context) {
	h.db.mu.RLock()
	closed := h.db.closed
	resp := ReadyResponse{
		Ready: !closed,
		Nodes: h.db.store.NodeCount(),
		Edges: h.db.store.EdgeCount(),
	}
	h.db.mu.RUnlock()

	if closed {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handlers) sourceFromQuery(c *gin.Context) (graph.NodeID, error) {
	if name := c.Query("name"); name != "" {
		return h.db.Resolve(name)
	}
	raw := c.Query("source")
	if raw == "" {
		return 0, errInvalidRequest("source or name is required")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errInvalidRequest("source must be a non-negative 32-bit integer")
	}
	return graph.NodeID(id), nil
}

// parseBound accepts a decimal, "inf", or "" (unbounded). Range checks are
// left to the engine.
func parseBound(raw string) (float32, error) {
	if raw == "" {
		return float32(math.Inf(1)), nil
	}
	f, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, traversal.ErrInvalidBound
	}
	return float32(f), nil
}

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func errInvalidRequest(msg string) error { return &requestError{msg: msg} }

func (h *Handlers) badRequest(c *gin.Context, requestID string, err error) {
	h.logger.Warn("invalid request body", "request_id", requestID, "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:     err.Error(),
		Code:      "INVALID_REQUEST",
		RequestID: requestID,
	})
}

// writeError maps domain errors to status codes.
func (h *Handlers) writeError(c *gin.Context, requestID, op string, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"

	var reqErr *requestError
	switch {
	case errors.Is(err, graph.ErrUnknownNode), errors.Is(err, ErrUnknownEntity):
		status, code = http.StatusNotFound, "UNKNOWN_NODE"
	case errors.Is(err, traversal.ErrInvalidBound):
		status, code = http.StatusBadRequest, "INVALID_BOUND"
	case errors.Is(err, graph.ErrAllocation):
		status, code = http.StatusInsufficientStorage, "CAPACITY_EXCEEDED"
	case errors.Is(err, ingest.ErrInvalidDocument), errors.Is(err, ErrNoSeeds), errors.As(err, &reqErr):
		status, code = http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, ErrClosed):
		status, code = http.StatusServiceUnavailable, "UNAVAILABLE"
	}

	logger := h.logger.With("request_id", requestID, "op", op, "code", code)
	if status >= 500 && status != http.StatusInsufficientStorage {
		logger.Error("request failed", "error", err)
	} else {
		logger.Warn("request rejected", "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code, RequestID: requestID})
}

// getOrCreateRequestID returns X-Request-ID, generating one if absent, and
// echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDKey, requestID)
	c.Header("X-Request-ID", requestID)
	return requestID
}
