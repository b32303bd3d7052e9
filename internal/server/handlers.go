package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/format"
	"github.com/leapstack-labs/polysql/pkg/lineage"
	"github.com/leapstack-labs/polysql/pkg/metadata"
	"github.com/leapstack-labs/polysql/pkg/optimizer"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// decode reads a JSON request body into v and checks that sql is present.
// It writes the error response itself and reports whether to continue.
func decode(w http.ResponseWriter, r *http.Request, v any, sqlText func() string) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error(), "")
		return false
	}
	if strings.TrimSpace(sqlText()) == "" {
		writeBadRequest(w, "SQL query is required.", "")
		return false
	}
	return true
}

// TranspileRequest is the body of POST /v1/transpile.
type TranspileRequest struct {
	SQL           string `json:"sql"`
	SourceDialect string `json:"source_dialect"`
	TargetDialect string `json:"target_dialect"`
	Pretty        *bool  `json:"pretty"`
}

// TranspileResponse is the result of POST /v1/transpile.
type TranspileResponse struct {
	Success        bool     `json:"success"`
	OriginalSQL    string   `json:"original_sql"`
	TranspiledSQL  string   `json:"transpiled_sql"`
	Statements     []string `json:"statements"`
	SourceDialect  string   `json:"source_dialect"`
	TargetDialect  string   `json:"target_dialect"`
	StatementCount int      `json:"statement_count"`
}

func (s *Server) handleTranspile(w http.ResponseWriter, r *http.Request) {
	var req TranspileRequest
	if !decode(w, r, &req, func() string { return req.SQL }) {
		return
	}
	if strings.TrimSpace(req.TargetDialect) == "" {
		writeBadRequest(w, "Target dialect is required.", req.SQL)
		return
	}
	pretty := req.Pretty == nil || *req.Pretty

	out, err := s.engine.Transpile(req.SQL, req.SourceDialect, req.TargetDialect, pretty)
	if err != nil {
		writeError(w, err, req.SQL)
		return
	}
	writeJSON(w, http.StatusOK, TranspileResponse{
		Success:        true,
		OriginalSQL:    req.SQL,
		TranspiledSQL:  strings.Join(out, format.ScriptSeparator),
		Statements:     out,
		SourceDialect:  sql.DialectLabel(req.SourceDialect),
		TargetDialect:  req.TargetDialect,
		StatementCount: len(out),
	})
}

// FormatRequest is the body of POST /v1/format.
type FormatRequest struct {
	SQL       string `json:"sql"`
	Dialect   string `json:"dialect"`
	Identify  bool   `json:"identify"`
	Normalize bool   `json:"normalize"`
}

// FormatOptions echoes the formatting flags.
type FormatOptions struct {
	Identify  bool `json:"identify"`
	Normalize bool `json:"normalize"`
}

// FormatResponse is the result of POST /v1/format.
type FormatResponse struct {
	Success        bool          `json:"success"`
	OriginalSQL    string        `json:"original_sql"`
	FormattedSQL   string        `json:"formatted_sql"`
	Dialect        string        `json:"dialect"`
	Options        FormatOptions `json:"options"`
	StatementCount int           `json:"statement_count"`
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req FormatRequest
	if !decode(w, r, &req, func() string { return req.SQL }) {
		return
	}

	out, n, err := s.engine.Format(req.SQL, req.Dialect, format.Options{Identify: req.Identify, Normalize: req.Normalize})
	if err != nil {
		writeError(w, err, req.SQL)
		return
	}
	writeJSON(w, http.StatusOK, FormatResponse{
		Success:        true,
		OriginalSQL:    req.SQL,
		FormattedSQL:   out,
		Dialect:        sql.DialectLabel(req.Dialect),
		Options:        FormatOptions{Identify: req.Identify, Normalize: req.Normalize},
		StatementCount: n,
	})
}

// SQLRequest is the body of POST /v1/validate and /v1/analyze.
type SQLRequest struct {
	SQL     string `json:"sql"`
	Dialect string `json:"dialect"`
}

// ValidateResponse is the result of POST /v1/validate. An invalid script
// is still a 200 response with Valid false and the error details.
type ValidateResponse struct {
	Valid          bool                `json:"valid"`
	Dialect        string              `json:"dialect"`
	StatementCount int                 `json:"statement_count"`
	Statements     []sql.StatementInfo `json:"statements"`
	Warnings       []string            `json:"warnings"`
	OriginalSQL    string              `json:"original_sql"`
	ErrorType      string              `json:"error_type,omitempty"`
	ErrorMessage   string              `json:"error_message,omitempty"`
	Errors         []ErrorDetail       `json:"errors,omitempty"`
}

// ErrorDetail locates one parse failure.
type ErrorDetail struct {
	Description  string `json:"description"`
	Line         int    `json:"line"`
	Col          int    `json:"col"`
	StartContext string `json:"start_context"`
	Highlight    string `json:"highlight"`
	EndContext   string `json:"end_context"`
}

func errorDetail(d *diag.Diagnostic) ErrorDetail {
	e := ErrorDetail{Description: d.Message, Line: d.Line, Col: d.Column}
	if d.Context != nil {
		e.StartContext = d.Context.Before
		e.Highlight = d.Context.Highlight
		e.EndContext = d.Context.After
	}
	return e
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req SQLRequest
	if !decode(w, r, &req, func() string { return req.SQL }) {
		return
	}

	writeJSON(w, http.StatusOK, NewValidateResponse(s.engine.Validate(req.SQL, req.Dialect), req.SQL))
}

// NewValidateResponse builds the validate body for src.
func NewValidateResponse(v *sql.Validation, src string) ValidateResponse {
	resp := ValidateResponse{
		Valid:          v.Valid,
		Dialect:        v.Dialect,
		StatementCount: len(v.Statements),
		Statements:     v.Statements,
		Warnings:       []string{},
		OriginalSQL:    src,
	}
	if v.Error != nil {
		resp.ErrorType = v.Error.Kind.String()
		resp.ErrorMessage = v.Error.Message
		resp.Errors = []ErrorDetail{errorDetail(v.Error)}
	}
	return resp
}

// AnalyzeRequest is the body of POST /v1/analyze. Lineage asks for
// column lineage of a SELECT; Schema optionally describes table columns
// for it, in the same shapes as OptimizeRequest.Schema.
type AnalyzeRequest struct {
	SQL     string          `json:"sql"`
	Dialect string          `json:"dialect"`
	Lineage bool            `json:"lineage"`
	Schema  json.RawMessage `json:"schema"`
}

// AnalyzeResponse is the result of POST /v1/analyze.
type AnalyzeResponse struct {
	Success bool `json:"success"`
	*metadata.Result
	Lineage     *lineage.QueryLineage `json:"lineage,omitempty"`
	Dialect     string                `json:"dialect"`
	OriginalSQL string                `json:"original_sql"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decode(w, r, &req, func() string { return req.SQL }) {
		return
	}

	q, err := s.engine.Parse(req.SQL, req.Dialect)
	if err != nil {
		writeError(w, err, req.SQL)
		return
	}
	resp := AnalyzeResponse{
		Success:     true,
		Result:      sql.ExtractMetadata(q),
		Dialect:     sql.DialectLabel(req.Dialect),
		OriginalSQL: req.SQL,
	}
	if req.Lineage {
		schema, err := decodeSchema(req.Schema)
		if err != nil {
			writeError(w, err, req.SQL)
			return
		}
		if resp.Lineage, err = s.engine.Lineage(q, schema); err != nil {
			writeError(w, err, req.SQL)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeSchema loads an optional request schema. A missing or null schema
// yields nil.
func decodeSchema(raw json.RawMessage) (*optimizer.Schema, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return optimizer.LoadSchema(raw)
}

// OptimizeRequest is the body of POST /v1/optimize. Schema maps table
// names to column types.
type OptimizeRequest struct {
	SQL     string          `json:"sql"`
	Dialect string          `json:"dialect"`
	Schema  json.RawMessage `json:"schema"`
}

// OptimizeResponse is the result of POST /v1/optimize.
type OptimizeResponse struct {
	Success             bool                 `json:"success"`
	OriginalSQL         string               `json:"original_sql"`
	OptimizedSQL        string               `json:"optimized_sql"`
	Dialect             string               `json:"dialect"`
	SchemaProvided      bool                 `json:"schema_provided"`
	OptimizationApplied bool                 `json:"optimization_applied"`
	Rules               []string             `json:"rules"`
	JoinHints           []optimizer.JoinHint `json:"join_hints,omitempty"`
	Note                string               `json:"note,omitempty"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if !decode(w, r, &req, func() string { return req.SQL }) {
		return
	}

	schema, err := decodeSchema(req.Schema)
	if err != nil {
		writeError(w, err, req.SQL)
		return
	}

	q, err := s.engine.Parse(req.SQL, req.Dialect)
	if err != nil {
		writeError(w, err, req.SQL)
		return
	}
	res, err := s.engine.Optimize(q, "", schema)
	if err != nil {
		writeError(w, err, req.SQL)
		return
	}
	out, err := sql.Render(res.Query, "", format.Options{Pretty: true})
	if err != nil {
		writeError(w, err, req.SQL)
		return
	}

	writeJSON(w, http.StatusOK, OptimizeResponse{
		Success:             true,
		OriginalSQL:         req.SQL,
		OptimizedSQL:        out,
		Dialect:             sql.DialectLabel(req.Dialect),
		SchemaProvided:      schema != nil,
		OptimizationApplied: len(res.Applied) > 0,
		Rules:               res.Applied,
		JoinHints:           res.Hints,
		Note:                strings.Join(res.Notes, " "),
	})
}

// ExecuteRequest is the body of POST /v1/execute. Tables, when present,
// replace the server's loaded tables for this request.
type ExecuteRequest struct {
	SQL     string          `json:"sql"`
	Dialect string          `json:"dialect"`
	Tables  json.RawMessage `json:"tables"`
}

// ExecuteResponse is the result of POST /v1/execute.
type ExecuteResponse struct {
	Success     bool               `json:"success"`
	RowCount    int                `json:"row_count"`
	Columns     []string           `json:"columns"`
	Data        *executor.Relation `json:"data"`
	OriginalSQL string             `json:"original_sql"`
	Dialect     string             `json:"dialect"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !decode(w, r, &req, func() string { return req.SQL }) {
		return
	}

	tables := s.Tables()
	if len(req.Tables) > 0 && string(req.Tables) != "null" {
		var err error
		if tables, err = executor.LoadJSON(req.Tables); err != nil {
			writeError(w, err, req.SQL)
			return
		}
	}

	rel, err := s.engine.Execute(req.SQL, req.Dialect, tables)
	if err != nil {
		writeError(w, err, req.SQL)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		Success:     true,
		RowCount:    rel.Len(),
		Columns:     rel.Columns,
		Data:        rel,
		OriginalSQL: req.SQL,
		Dialect:     sql.DialectLabel(req.Dialect),
	})
}

// DialectsResponse is the result of GET /v1/dialects.
type DialectsResponse struct {
	Dialects []string `json:"dialects"`
	Default  string   `json:"default"`
}

func (s *Server) handleDialects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DialectsResponse{Dialects: sql.Dialects(), Default: sql.DefaultDialect()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "tables": len(s.Tables())})
}
