package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/codepad/config"
	"github.com/isdmx/codepad/execution"
	"github.com/isdmx/codepad/langmode"
	"github.com/isdmx/codepad/piston"
	"github.com/isdmx/codepad/registry"
)

type stubLister struct {
	runtimes []piston.Runtime
}

func (s *stubLister) Runtimes(_ context.Context) ([]piston.Runtime, error) {
	return s.runtimes, nil
}

// MockExecutor implements piston.Executor for testing
type MockExecutor struct {
	response piston.ExecuteResponse
	err      error
	requests []piston.ExecuteRequest
}

func (m *MockExecutor) Execute(_ context.Context, req piston.ExecuteRequest) (piston.ExecuteResponse, error) { //nolint:gocritic // Mock implementation requires full parameter signature
	m.requests = append(m.requests, req)
	return m.response, m.err
}

func testConfig() *config.Config {
	return &config.Config{
		Web: config.WebConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
			MonacoURL:      "https://cdn.example.com/monaco/min/vs",
		},
		Editor: config.EditorConfig{
			DefaultMode:       "javascript",
			Placeholder:       "// some comment",
			EagerSyncLanguage: "javascript",
		},
		View: config.ViewConfig{DiscardStaleResults: true},
	}
}

func newTestServer(t *testing.T, runtimes []piston.Runtime, executor *MockExecutor) *Server {
	t.Helper()
	logger := zaptest.NewLogger(t)

	reg := registry.New(&stubLister{runtimes: runtimes}, logger)
	require.NoError(t, reg.Load(context.Background()))

	s, err := New(testConfig(), logger, reg, langmode.NewMapper(nil), execution.New(executor, logger))
	require.NoError(t, err)
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

var catalog = []piston.Runtime{
	{Language: "c++", Version: "10.2.0"},
	{Language: "javascript", Version: "18.15.0"},
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, catalog, &MockExecutor{})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, `src="https://cdn.example.com/monaco/min/vs/loader.js"`)
	assert.Contains(t, body, `setEagerModelSync(true)`)
	assert.Contains(t, body, "some comment")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, catalog, &MockExecutor{})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","languages":2}`, w.Body.String())
}

func TestLanguages(t *testing.T) {
	t.Run("WithDefault", func(t *testing.T) {
		s := newTestServer(t, catalog, &MockExecutor{})

		w := serve(s, httptest.NewRequest(http.MethodGet, "/api/languages", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp LanguagesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []Language{
			{Name: "c++", Version: "10.2.0", Label: "c++ (10.2.0)", Mode: "cpp"},
			{Name: "javascript", Version: "18.15.0", Label: "javascript (18.15.0)", Mode: "javascript"},
		}, resp.Languages)
		require.NotNil(t, resp.Default)
		assert.Equal(t, "javascript", resp.Default.Name)
	})

	t.Run("Empty", func(t *testing.T) {
		s := newTestServer(t, nil, &MockExecutor{})

		w := serve(s, httptest.NewRequest(http.MethodGet, "/api/languages", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"languages":[],"default":null}`, w.Body.String())
	})
}

func TestMode(t *testing.T) {
	s := newTestServer(t, catalog, &MockExecutor{})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/mode?name=c%2B%2B", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mode":"cpp"}`, w.Body.String())

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/mode", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRun(t *testing.T) {
	t.Run("Output", func(t *testing.T) {
		executor := &MockExecutor{response: piston.ExecuteResponse{Run: &piston.RunResult{Stdout: "5"}}}
		s := newTestServer(t, catalog, executor)

		body := strings.NewReader(`{"language":"javascript","version":"18.15.0","code":"console.log(5)"}`)
		w := serve(s, httptest.NewRequest(http.MethodPost, "/api/run", body))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"output":"5"}`, w.Body.String())

		require.Len(t, executor.requests, 1)
		assert.Equal(t, "console.log(5)", executor.requests[0].Files[0].Content)
	})

	t.Run("DefaultLanguage", func(t *testing.T) {
		executor := &MockExecutor{response: piston.ExecuteResponse{Run: &piston.RunResult{}}}
		s := newTestServer(t, catalog, executor)

		w := serve(s, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{"code":"1"}`)))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"output":"No output"}`, w.Body.String())
		require.Len(t, executor.requests, 1)
		assert.Equal(t, "javascript", executor.requests[0].Language)
		assert.Equal(t, "18.15.0", executor.requests[0].Version)
	})

	t.Run("UnknownLanguagePassedThrough", func(t *testing.T) {
		executor := &MockExecutor{err: &piston.APIError{StatusCode: 400, Message: "bad language"}}
		s := newTestServer(t, catalog, executor)

		body := strings.NewReader(`{"language":"cobol","version":"1","code":"DISPLAY 1"}`)
		w := serve(s, httptest.NewRequest(http.MethodPost, "/api/run", body))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"output":"Execution failed: bad language"}`, w.Body.String())
		assert.Equal(t, "cobol", executor.requests[0].Language)
	})

	t.Run("EmptyCode", func(t *testing.T) {
		executor := &MockExecutor{}
		s := newTestServer(t, catalog, executor)

		w := serve(s, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{"language":"javascript","code":""}`)))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"editor is empty"}`, w.Body.String())
		assert.Empty(t, executor.requests)
	})

	t.Run("NoLanguageAvailable", func(t *testing.T) {
		executor := &MockExecutor{}
		s := newTestServer(t, nil, executor)

		w := serve(s, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{"code":"1"}`)))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"no language selected"}`, w.Body.String())
		assert.Empty(t, executor.requests)
	})

	t.Run("InvalidBody", func(t *testing.T) {
		s := newTestServer(t, catalog, &MockExecutor{})

		w := serve(s, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRequestIDPropagated(t *testing.T) {
	s := newTestServer(t, catalog, &MockExecutor{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := serve(s, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRequestIDGenerated(t *testing.T) {
	s := newTestServer(t, catalog, &MockExecutor{})

	first := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Header().Get("X-Request-ID")
	second := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Header().Get("X-Request-ID")

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, catalog, &MockExecutor{})

	req := httptest.NewRequest(http.MethodOptions, "/api/run", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(s, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
