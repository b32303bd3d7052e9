package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/internal/testutil"
)

func newTestServer(t *testing.T, tablesDir string) *Server {
	t.Helper()
	s, err := New(Config{TablesDir: tablesDir, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return s
}

func post(t *testing.T, s *Server, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHealthAndDialects(t *testing.T) {
	s := newTestServer(t, "")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "tables": 0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dialects", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp DialectsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Dialects, "postgres")
	assert.Equal(t, "ansi", resp.Default)
}

func TestTranspile(t *testing.T) {
	s := newTestServer(t, "")

	code, out := post(t, s, "/v1/transpile", `{"sql": "SELECT a || b FROM t; SELECT 1", "source_dialect": "duckdb", "target_dialect": "mysql", "pretty": false}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "SELECT CONCAT(a, b) FROM t;\n\nSELECT 1", out["transpiled_sql"])
	assert.Equal(t, float64(2), out["statement_count"])
	assert.Equal(t, "duckdb", out["source_dialect"])

	code, out = post(t, s, "/v1/transpile", `{"sql": "SELECT 1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Target dialect is required.", out["error_message"])

	code, out = post(t, s, "/v1/transpile", `{"sql": "SELECT 1", "target_dialect": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "UnknownDialect", out["error_type"])
	assert.Equal(t, false, out["success"])
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t, "")

	code, out := post(t, s, "/v1/format", `{"sql": "  "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "SQL query is required.", out["error_message"])
	assert.Equal(t, errInvalidRequest, out["error_type"])

	code, out = post(t, s, "/v1/format", `{"query": "SELECT 1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error_message"], "invalid request body")
}

func TestFormat(t *testing.T) {
	s := newTestServer(t, "")

	code, out := post(t, s, "/v1/format", `{"sql": "select a from t", "identify": true}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SELECT\n  \"a\"\nFROM \"t\"", out["formatted_sql"])
	assert.Equal(t, "auto-detected", out["dialect"])
	assert.Equal(t, map[string]any{"identify": true, "normalize": false}, out["options"])
}

func TestValidate(t *testing.T) {
	s := newTestServer(t, "")

	code, out := post(t, s, "/v1/validate", `{"sql": "SELECT a FROM t; DELETE FROM t"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, float64(2), out["statement_count"])

	code, out = post(t, s, "/v1/validate", `{"sql": "SELECT FROM", "dialect": "postgres"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["valid"])
	assert.Equal(t, "ParseError", out["error_type"])
	errs, ok := out["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	detail := errs[0].(map[string]any)
	assert.Equal(t, float64(1), detail["line"])
	assert.Equal(t, float64(8), detail["col"])
	assert.Equal(t, "FROM", detail["highlight"])
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t, "")

	code, out := post(t, s, "/v1/analyze", `{"sql": "SELECT u.id FROM users u JOIN orders o ON u.id = o.uid"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Select", out["query_type"])
	assert.Equal(t, "auto-detected", out["dialect"])
	assert.Len(t, out["tables"], 2)
	assert.NotEmpty(t, out["original_sql"])

	code, out = post(t, s, "/v1/analyze", `{"sql": "SELECT FROM"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	details, ok := out["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(7), details["offset"])
}

func TestAnalyze_Lineage(t *testing.T) {
	s := newTestServer(t, "")

	code, out := post(t, s, "/v1/analyze", `{"sql": "SELECT u.id FROM users u"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, out["lineage"])

	code, out = post(t, s, "/v1/analyze", `{"sql": "SELECT * FROM users", "lineage": true, "schema": {"users": {"id": "INT", "name": "TEXT"}}}`)
	require.Equal(t, http.StatusOK, code)
	lin, ok := out["lineage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"users"}, lin["sources"])
	assert.Len(t, lin["columns"], 2)

	code, _ = post(t, s, "/v1/analyze", `{"sql": "DELETE FROM users", "lineage": true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestOptimize(t *testing.T) {
	s := newTestServer(t, "")

	code, out := post(t, s, "/v1/optimize", `{"sql": "SELECT id FROM t WHERE 1 = 1 AND v > 2", "schema": {"t": {"id": "INT", "v": "INT"}}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["schema_provided"])
	assert.Equal(t, true, out["optimization_applied"])
	assert.Equal(t, "SELECT\n  t.id\nFROM t\nWHERE\n  t.v > 2", out["optimized_sql"])
	assert.Nil(t, out["note"])

	code, out = post(t, s, "/v1/optimize", `{"sql": "SELECT 1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["schema_provided"])
	assert.Contains(t, out["note"], "partial optimization")

	code, out = post(t, s, "/v1/optimize", `{"sql": "SELECT 1", "schema": [1, 2]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "SchemaParseError", out["error_type"])
}

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.json"), []byte(`{"t": [{"id": 1, "v": 10}, {"id": 2, "v": 20}]}`), 0o600))
	s := newTestServer(t, dir)

	code, out := post(t, s, "/v1/execute", `{"sql": "SELECT SUM(v) AS total FROM t"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["row_count"])
	assert.Equal(t, []any{"total"}, out["columns"])
	assert.Equal(t, []any{map[string]any{"total": float64(30)}}, out["data"])

	// Request tables replace the loaded ones.
	code, out = post(t, s, "/v1/execute", `{"sql": "SELECT COUNT(*) AS n FROM t", "tables": {"t": [{"x": 1}]}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{map[string]any{"n": float64(1)}}, out["data"])

	code, out = post(t, s, "/v1/execute", `{"sql": "SELECT nope FROM t"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "EvaluationError", out["error_type"])

	code, out = post(t, s, "/v1/execute", `{"sql": "DELETE FROM t"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "UnsupportedConstruct", out["error_type"])

	code, out = post(t, s, "/v1/execute", `{"sql": "SELECT 1", "tables": {"t": 5}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "SchemaParseError", out["error_type"])
}

func TestLoadTablesDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"a": [{"x": 1}]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("b:\n  - y: two\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	tables, err := LoadTablesDir(dir)
	require.NoError(t, err)
	assert.Len(t, tables, 2)
	assert.Equal(t, []string{"y"}, tables["b"].Columns)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yml"), []byte("a:\n  - x: 3\n"), 0o600))
	_, err = LoadTablesDir(dir)
	assert.ErrorContains(t, err, `table "a" defined in both a.json and c.yml`)

	_, err = LoadTablesDir(filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "failed to read tables directory")
}

func TestWatchTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"t": [{"id": 1}]}`), 0o600))
	s := newTestServer(t, dir)
	require.Equal(t, 1, s.Tables()["t"].Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.watchTables(ctx) }()

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"t": [{"id": 1}, {"id": 2}]}`), 0o600)
		return s.Tables()["t"].Len() == 2
	}, 5*time.Second, 200*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestServe_Shutdown(t *testing.T) {
	s := newTestServer(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.Serve(ctx))
}
