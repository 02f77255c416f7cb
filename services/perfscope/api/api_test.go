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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/perfscope/services/perfscope/build"
	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/execution"
	"github.com/AleutianAI/perfscope/services/perfscope/fit"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
	"github.com/AleutianAI/perfscope/services/perfscope/history"
	"github.com/AleutianAI/perfscope/services/perfscope/source"
)

// =============================================================================
// FIXTURES
// =============================================================================

const linearSearch = `import java.util.Scanner;

public class LinearSearch {
    public static void main(String[] args) {
        Scanner sc = new Scanner(System.in);
        int n = sc.nextInt();
        int[] arr = new int[n];
        for (int i = 0; i < n; i++) {
            arr[i] = sc.nextInt();
        }
        System.out.println(arr[0]);
    }
}
`

type stubBuilder struct {
	err error
}

func (b *stubBuilder) Build(_ context.Context, unit source.Unit) (*build.Artifact, error) {
	if b.err != nil {
		return nil, b.err
	}
	dir, err := os.MkdirTemp("", "perfscope_api_test_")
	if err != nil {
		return nil, err
	}
	return &build.Artifact{Dir: dir, EntryType: unit.EntryType}, nil
}

type stubRunner struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (r *stubRunner) Run(_ context.Context, _ execution.Request) (domain.PerformanceSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	if r.err != nil {
		return domain.PerformanceSample{}, r.err
	}
	return domain.PerformanceSample{ElapsedMs: 2, MemoryDeltaBytes: 1024, Stdout: "1\n"}, nil
}

type testServer struct {
	router   *gin.Engine
	handlers *Handlers
	store    *history.Store
	builder  *stubBuilder
	runner   *stubRunner
}

func newTestServer(t *testing.T, withHistory bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &stubBuilder{}
	r := &stubRunner{}
	analyzer := harness.NewAnalyzer(harness.NewConfig(), b, r, nil)

	var store *history.Store
	if withHistory {
		db, err := history.OpenDB(history.InMemoryDBConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		store = history.NewStore(db, nil)
	}

	svc := NewService(analyzer, store, nil, ServiceConfig{MaxConcurrent: 2, RecordToHistory: true}, nil)
	h := NewHandlers(svc, 4096, nil)
	return &testServer{
		router:   NewRouter(h, RouterConfig{}),
		handlers: h,
		store:    store,
		builder:  b,
		runner:   r,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// =============================================================================
// ANALYZE
// =============================================================================

func TestHandleAnalyze_RecordsToHistory(t *testing.T) {
	s := newTestServer(t, true)

	w := s.do(t, http.MethodPost, "/v1/perfscope/analyze", AnalyzeRequest{
		Code:   linearSearch,
		Input:  "3\n1 2 3\n",
		Source: "LinearSearch.java",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	resp := decode[AnalyzeResponse](t, w)
	require.NotNil(t, resp.Report)
	assert.True(t, resp.Recorded)
	assert.Equal(t, harness.ModeFixed, resp.Report.Mode)
	assert.Equal(t, domain.LabelLinear, resp.Report.Result.TimeComplexity)
	assert.InDelta(t, 2.0, resp.Report.Result.AvgTimeMs, 1e-9)
	assert.Equal(t, 8, s.runner.runs)

	id := resp.Report.ID
	w = s.do(t, http.MethodGet, "/v1/perfscope/history/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[history.Record](t, w)
	assert.Equal(t, "LinearSearch.java", rec.Source)

	w = s.do(t, http.MethodGet, "/v1/perfscope/history?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[HistoryListResponse](t, w)
	assert.Equal(t, 1, list.Count)

	w = s.do(t, http.MethodDelete, "/v1/perfscope/history/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/v1/perfscope/history/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, w).Code)
}

func TestHandleAnalyze_RecordOptOut(t *testing.T) {
	s := newTestServer(t, true)
	off := false

	w := s.do(t, http.MethodPost, "/v1/perfscope/analyze", AnalyzeRequest{Code: linearSearch, Input: "HARDCODED", Record: &off})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[AnalyzeResponse](t, w).Recorded)

	records, err := s.store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHandleAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        AnalyzeRequest
		buildErr   error
		runErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing code",
			req:        AnalyzeRequest{Input: "1"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "code too large",
			req:        AnalyzeRequest{Code: strings.Repeat("x", 5000)},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "no public class",
			req:        AnalyzeRequest{Code: "class Hidden {}"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "bad sweep",
			req:        AnalyzeRequest{Code: linearSearch, Input: "generate:array:random:100"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "build failure",
			req:        AnalyzeRequest{Code: linearSearch},
			buildErr:   &domain.BuildError{EntryType: "LinearSearch", Diagnostics: "LinearSearch.java:3: error"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "BUILD_FAILED",
		},
		{
			name:       "execution failure",
			req:        AnalyzeRequest{Code: linearSearch},
			runErr:     &domain.ExecutionError{ExitCode: 1, Output: "Exception"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "EXECUTION_FAILED",
		},
		{
			name:       "timeout",
			req:        AnalyzeRequest{Code: linearSearch},
			runErr:     &domain.TimeoutError{Deadline: time.Second},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, false)
			s.builder.err = tt.buildErr
			s.runner.err = tt.runErr

			w := s.do(t, http.MethodPost, "/v1/perfscope/analyze", tt.req)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHandleAnalyze_BuildDiagnosticsInDetails(t *testing.T) {
	s := newTestServer(t, false)
	s.builder.err = &domain.BuildError{Diagnostics: "Main.java:1: error: ';' expected"}

	w := s.do(t, http.MethodPost, "/v1/perfscope/analyze", AnalyzeRequest{Code: linearSearch})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Details, "';' expected")
}

// =============================================================================
// AUXILIARY ENDPOINTS
// =============================================================================

func TestHandleGenerate(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/v1/perfscope/generate", GenerateRequest{Code: linearSearch, Size: 5, Shape: "sorted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[GenerateResponse](t, w)
	assert.Equal(t, "5\n0\n1\n2\n3\n4\n", resp.Input)
	assert.Equal(t, 6, resp.Lines)

	w = s.do(t, http.MethodPost, "/v1/perfscope/generate", GenerateRequest{Code: linearSearch, Size: 5, Shape: "zigzag"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Error, "zigzag")

	w = s.do(t, http.MethodPost, "/v1/perfscope/generate", GenerateRequest{Code: linearSearch, Size: 200000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCheck(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/v1/perfscope/check", CodeRequest{Code: linearSearch})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[CheckResponse](t, w)
	assert.True(t, resp.HasEntryPoint)
	// "int i = 0;" is a literal assignment, so the heuristic fires.
	assert.True(t, resp.HasEmbeddedData)
	assert.Equal(t, "LinearSearch", resp.EntryType)
	require.NotNil(t, resp.Syntax)
	assert.True(t, resp.Syntax.Valid)

	w = s.do(t, http.MethodPost, "/v1/perfscope/check", CodeRequest{Code: "public class Broken { void f( { }"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[CheckResponse](t, w).Syntax.Valid)
}

func TestHandleClassify(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/v1/perfscope/classify", CodeRequest{Code: linearSearch})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ClassifyResponse](t, w)
	assert.Equal(t, domain.LabelLinear, resp.Time)
}

func TestHandleFit(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/v1/perfscope/fit", FitRequest{
		Sizes:  []int{100, 200, 400, 800},
		Values: []float64{1, 2, 4, 8},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.LabelLinear, decode[fit.Result](t, w).Label)

	w = s.do(t, http.MethodPost, "/v1/perfscope/fit", FitRequest{
		Sizes:  []int{100, 200, 400},
		Values: []float64{1, 2},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory_Disabled(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodGet, "/v1/perfscope/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(t, http.MethodGet, "/v1/perfscope/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.False(t, health.History)
}

func TestHistory_BadLimit(t *testing.T) {
	s := newTestServer(t, true)
	w := s.do(t, http.MethodGet, "/v1/perfscope/history?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	analyzer := harness.NewAnalyzer(nil, &stubBuilder{}, &stubRunner{}, nil)
	h := NewHandlers(NewService(analyzer, nil, nil, ServiceConfig{}, nil), 0, nil)
	router := NewRouter(h, RouterConfig{Limiter: NewClientRateLimiter(0.001, 1)})

	get := func() int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/perfscope/health", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, get())
	assert.Equal(t, http.StatusTooManyRequests, get())
}

func TestClientRateLimiter_EvictsIdle(t *testing.T) {
	l := NewClientRateLimiter(1, 1)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(limiterIdle + time.Second)
	assert.True(t, l.Allow("b"))
	l.mu.Lock()
	_, kept := l.clients["a"]
	l.mu.Unlock()
	assert.False(t, kept)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("size", "bad"), http.StatusBadRequest},
		{&domain.BuildError{Cause: context.DeadlineExceeded}, http.StatusUnprocessableEntity},
		{&domain.TimeoutError{}, http.StatusGatewayTimeout},
		{&domain.ExecutionError{ExitCode: 2}, http.StatusUnprocessableEntity},
		{domain.ErrNotFound, http.StatusNotFound},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := errorStatus(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}

// =============================================================================
// STREAM
// =============================================================================

func TestHandleAnalyzeStream(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/perfscope/analyze/stream"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	var hello StreamMessage
	require.NoError(t, ws.ReadJSON(&hello))
	assert.Equal(t, StreamSession, hello.Type)
	assert.NotEmpty(t, hello.SessionID)

	require.NoError(t, ws.WriteJSON(AnalyzeRequest{Code: linearSearch, Input: "size:10"}))

	var progress int
	var result *AnalyzeResponse
	for result == nil {
		var msg StreamMessage
		require.NoError(t, ws.ReadJSON(&msg))
		switch msg.Type {
		case StreamProgress:
			progress++
		case StreamResult:
			result = msg.Result
		default:
			t.Fatalf("unexpected message %+v", msg)
		}
	}
	assert.Greater(t, progress, 0)
	require.NotNil(t, result.Report)
	assert.Equal(t, harness.ModeSingle, result.Report.Mode)

	// A second request on the same connection reports its own error after
	// the failed-state progress message.
	require.NoError(t, ws.WriteJSON(AnalyzeRequest{Code: "class Hidden {}"}))
	var msg StreamMessage
	for {
		require.NoError(t, ws.ReadJSON(&msg))
		if msg.Type != StreamProgress {
			break
		}
		assert.Equal(t, harness.StateFailed, msg.Progress.State)
	}
	assert.Equal(t, StreamError, msg.Type)
	require.NotNil(t, msg.Error)
	assert.Equal(t, "INVALID_REQUEST", msg.Error.Code)
}

// =============================================================================
// ORIGINS
// =============================================================================

func TestOriginPolicy_Allowed(t *testing.T) {
	policy := NewOriginPolicy([]string{"http://localhost:5173/"})

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", "http://127.0.0.1:12240", true},
		{"same host other scheme", "https://127.0.0.1:12240", true},
		{"allowlisted", "http://localhost:5173", true},
		{"allowlisted case", "HTTP://LOCALHOST:5173", true},
		{"other site", "https://evil.example", false},
		{"other port", "http://127.0.0.1:8080", false},
		{"opaque", "null", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/perfscope/health", nil)
			req.Host = "127.0.0.1:12240"
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, policy.Allowed(req))
		})
	}
}

func TestHandleAnalyze_RejectsCrossOrigin(t *testing.T) {
	s := newTestServer(t, false)

	body, err := json.Marshal(AnalyzeRequest{Code: linearSearch, Input: "size:10"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/perfscope/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN_ORIGIN", decode[ErrorResponse](t, w).Code)
	assert.Zero(t, s.runner.runs)
}

func TestHandleAnalyze_RequiresJSONContentType(t *testing.T) {
	s := newTestServer(t, false)

	body, err := json.Marshal(AnalyzeRequest{Code: linearSearch, Input: "size:10"})
	require.NoError(t, err)

	for _, ct := range []string{"text/plain", "application/x-www-form-urlencoded", ""} {
		t.Run("content type "+ct, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/perfscope/analyze", bytes.NewReader(body))
			if ct != "" {
				req.Header.Set("Content-Type", ct)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
			assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", decode[ErrorResponse](t, w).Code)
		})
	}
	assert.Zero(t, s.runner.runs)
}

func TestHandleAnalyzeStream_Origins(t *testing.T) {
	s := newTestServer(t, false)
	router := NewRouter(s.handlers, RouterConfig{AllowedOrigins: []string{"http://localhost:5173"}})
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/perfscope/analyze/stream"
	dial := func(origin string) (*websocket.Conn, *http.Response, error) {
		header := http.Header{}
		header.Set("Origin", origin)
		return websocket.DefaultDialer.Dial(url, header)
	}

	ws, resp, err := dial("https://evil.example")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Nil(t, ws)

	for _, origin := range []string{srv.URL, "http://localhost:5173"} {
		ws, resp, err := dial(origin)
		require.NoError(t, err, origin)
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
		var hello StreamMessage
		require.NoError(t, ws.ReadJSON(&hello))
		assert.Equal(t, StreamSession, hello.Type)
		_ = ws.Close()
	}
	assert.Zero(t, s.runner.runs)
}
