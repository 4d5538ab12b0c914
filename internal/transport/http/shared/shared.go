// Package shared holds response helpers common to every HTTP handler.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "attest/pkg/domain-errors"
)

// ErrorResponse is the wire shape of every error this API returns.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError maps a domain error to its HTTP status and writes the JSON
// envelope. Unknown errors collapse to a plain 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	body := ErrorResponse{Code: string(code), Message: err.Error()}
	if code == dErrors.CodeInternal {
		body.Message = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
