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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/FrontierGraph/services/frontier/config"
	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T, opts ...Option) (*gin.Engine, *Database) {
	t.Helper()
	db := openTestDB(t, opts...)
	router := gin.New()
	router.Use(RequestID())
	RegisterRoutes(router.Group("/v1"), NewHandlers(db, nil))
	return router, db
}

func doJSON(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleAddEdge(t *testing.T) {
	router, db := setupTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"valid", `{"from":0,"to":1,"weight":2.5}`, http.StatusCreated, ""},
		{"zero weight", `{"from":1,"to":2,"weight":0}`, http.StatusCreated, ""},
		{"missing weight", `{"from":0,"to":1}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing from", `{"to":1,"weight":1}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"negative weight", `{"from":0,"to":1,"weight":-1}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"malformed", `{"from":`, http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/v1/frontier/edges", tt.body)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, w).Code)
			}
		})
	}
	assert.Equal(t, 2, db.Stats().Graph.Edges)
}

func TestHandleAddEdge_CapacityExceeded(t *testing.T) {
	router, _ := setupTestRouter(t, WithStoreOptions(graph.WithMaxNodes(1)))

	w := doJSON(router, http.MethodPost, "/v1/frontier/edges", `{"from":0,"to":5,"weight":1}`)
	assert.Equal(t, http.StatusInsufficientStorage, w.Code)
	assert.Equal(t, "CAPACITY_EXCEEDED", decodeError(t, w).Code)
}

func TestHandleAddRelation(t *testing.T) {
	router, db := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/frontier/relations", AddRelationRequest{Source: "api", Target: "db"})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp AddRelationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	id, err := db.Resolve("db")
	require.NoError(t, err)
	assert.Equal(t, id, resp.To)

	res, _, err := db.ShortestPaths(context.Background(), resp.From, inf)
	require.NoError(t, err)
	d, _ := res.Distance(resp.To)
	assert.Equal(t, float32(1), d)

	w = doJSON(router, http.MethodPost, "/v1/frontier/relations", `{"source":"api"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePaths(t *testing.T) {
	router, db := setupTestRouter(t, WithCache(8))
	addPath(t, db, 4)

	t.Run("unbounded omits bound", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/frontier/paths?source=0", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), `"bound"`)

		var resp PathsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 4, resp.Reached)
		assert.False(t, resp.Cached)
		require.Len(t, resp.Nodes, 4)
		assert.Nil(t, resp.Nodes[0].Predecessor)
		require.NotNil(t, resp.Nodes[3].Predecessor)
		assert.Equal(t, graph.NodeID(2), *resp.Nodes[3].Predecessor)
	})

	t.Run("bounded and cached", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/frontier/paths?source=0&bound=1.5", nil)
		require.Equal(t, http.StatusOK, w.Code)
		w = doJSON(router, http.MethodGet, "/v1/frontier/paths?source=0&bound=1.5", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp PathsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Bound)
		assert.Equal(t, float32(1.5), *resp.Bound)
		assert.True(t, resp.Cached)
		assert.Equal(t, 2, resp.Reached)
	})

	errorCases := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{"unknown node", "source=99", http.StatusNotFound, "UNKNOWN_NODE"},
		{"unknown name", "name=ghost", http.StatusNotFound, "UNKNOWN_NODE"},
		{"negative bound", "source=0&bound=-1", http.StatusBadRequest, "INVALID_BOUND"},
		{"unparsable bound", "source=0&bound=far", http.StatusBadRequest, "INVALID_BOUND"},
		{"missing source", "", http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad source", "source=-3", http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodGet, "/v1/frontier/paths?"+tt.query, nil)
			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestHandlePaths_ByName(t *testing.T) {
	router, db := setupTestRouter(t)
	_, _, err := db.AddRelation(context.Background(), "svc", "cache", 0.25)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/v1/frontier/paths?name=svc", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PathsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Nodes, 2)
	assert.Equal(t, "svc", resp.Nodes[0].Name)
	assert.Equal(t, "cache", resp.Nodes[1].Name)
	assert.Equal(t, float32(0.25), resp.Nodes[1].Distance)
}

func TestHandleImpact(t *testing.T) {
	router, db := setupTestRouter(t)
	addPath(t, db, 4)

	w := doJSON(router, http.MethodPost, "/v1/frontier/impact", `{"source":0,"limit":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report ImpactReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 3, report.Reached)
	assert.True(t, report.Truncated)
	require.Len(t, report.Affected, 2)
	assert.Equal(t, []graph.NodeID{0, 1, 2}, report.Affected[1].Path)

	w = doJSON(router, http.MethodPost, "/v1/frontier/impact", `{"limit":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/v1/frontier/impact", `{"source_name":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleExpand(t *testing.T) {
	router, db := setupTestRouter(t)
	_, _, err := db.AddRelation(context.Background(), "a", "b", 1)
	require.NoError(t, err)
	_, _, err = db.AddRelation(context.Background(), "c", "b", 0.5)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/v1/frontier/expand", `{"seed_names":["a","c"],"bound":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var exp Expansion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exp))
	require.Len(t, exp.Nodes, 3)
	last := exp.Nodes[2]
	assert.Equal(t, "b", last.Name)
	assert.Equal(t, float32(0.5), last.Distance)

	w = doJSON(router, http.MethodPost, "/v1/frontier/expand", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
}

func TestHandleImport(t *testing.T) {
	router, db := setupTestRouter(t)

	body := `{
		"id": "kg-1",
		"entities": [{"name": "auth"}, {"name": "users"}],
		"relationships": [{"source": "auth", "target": "users", "type": "reads", "confidence": 0.8}]
	}`
	w := doJSON(router, http.MethodPost, "/v1/frontier/import", body)
	require.Equal(t, http.StatusOK, w.Code)

	var summary ImportSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "kg-1", summary.DocumentID)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 2, summary.NewEntities)

	auth, err := db.Resolve("auth")
	require.NoError(t, err)
	users, err := db.Resolve("users")
	require.NoError(t, err)
	res, _, err := db.ShortestPaths(context.Background(), auth, inf)
	require.NoError(t, err)
	d, _ := res.Distance(users)
	assert.InDelta(t, 1.25, d, 1e-6)

	w = doJSON(router, http.MethodPost, "/v1/frontier/import", `{"relationships":[{"source":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
}

func TestHandleStatsHealthReady(t *testing.T) {
	router, db := setupTestRouter(t, WithCache(4))
	addPath(t, db, 3)

	w := doJSON(router, http.MethodGet, "/v1/frontier/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Graph.Nodes)
	assert.Equal(t, 2, stats.Graph.Edges)
	assert.NotNil(t, stats.Cache)

	w = doJSON(router, http.MethodGet, "/v1/frontier/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, ServiceVersion, health.Version)

	w = doJSON(router, http.MethodGet, "/v1/frontier/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, db.Close())
	w = doJSON(router, http.MethodGet, "/v1/frontier/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/frontier/paths?source=0", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "UNAVAILABLE", decodeError(t, w).Code)
}

func TestRequestID(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/frontier/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = doJSON(router, http.MethodGet, "/v1/frontier/paths?source=42", nil)
	generated := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, decodeError(t, w).RequestID)
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), RateLimit(0.5, 2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := doJSON(router, http.MethodGet, "/ping", nil)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "2", w.Header().Get("Retry-After"))
			assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Code)
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(0, 0))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusNoContent, doJSON(router, http.MethodGet, "/ping", nil).Code)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	limited := gin.New()
	limited.Use(MaxBodyBytes(16))
	RegisterRoutes(limited.Group("/v1"), NewHandlers(openTestDB(t), nil))

	body := `{"source":"` + strings.Repeat("x", 64) + `","target":"y"}`
	w := doJSON(limited, http.MethodPost, "/v1/frontier/relations", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewRouter(t *testing.T) {
	db := openTestDB(t)
	addPath(t, db, 2)

	cfg := config.Default()
	cfg.Server.RateLimit = 0
	router, err := NewRouter(cfg, db, nil)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/v1/frontier/paths?source=0", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = doJSON(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/frontier/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
