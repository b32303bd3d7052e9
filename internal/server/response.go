package server

import (
	"encoding/json"
	"net/http"

	"github.com/leapstack-labs/polysql/pkg/diag"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success      bool             `json:"success"`
	ErrorType    string           `json:"error_type"`
	ErrorMessage string           `json:"error_message"`
	Details      *diag.Diagnostic `json:"details,omitempty"`
	OriginalSQL  string           `json:"original_sql,omitempty"`
}

// errInvalidRequest is the error type of malformed requests.
const errInvalidRequest = "InvalidRequest"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg, sql string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		ErrorType:    errInvalidRequest,
		ErrorMessage: msg,
		OriginalSQL:  sql,
	})
}

// writeError reports err. Diagnostics keep their kind as the error type;
// other errors are internal.
func writeError(w http.ResponseWriter, err error, sql string) {
	d, ok := diag.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			ErrorType:    "InternalError",
			ErrorMessage: err.Error(),
			OriginalSQL:  sql,
		})
		return
	}
	status := http.StatusBadRequest
	if d.Kind == diag.UnsupportedConstruct {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ErrorResponse{
		ErrorType:    d.Kind.String(),
		ErrorMessage: d.Message,
		Details:      d,
		OriginalSQL:  sql,
	})
}
