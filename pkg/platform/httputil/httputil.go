// Package httputil writes the response envelope shared by every endpoint:
//
//	{"success": true,  "data": {...}}
//	{"success": false, "error": "human readable message", "code": "capacity_exceeded"}
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "startingline/pkg/domain-errors"
)

const genericErrorMessage = "an unexpected error occurred, please try again"

// Envelope is the wire shape of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess wraps data in a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError translates a domain error into status and failure envelope.
// Internal and timeout messages are replaced with a generic message so store
// details never reach the caller.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	msg := ""
	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		msg = de.Message
	}
	if dErrors.IsSensitive(code) || msg == "" {
		msg = genericErrorMessage
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), Envelope{
		Success: false,
		Error:   msg,
		Code:    string(code),
	})
}

// DecodeJSON decodes a request body, rejecting unknown fields and trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
