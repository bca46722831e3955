// ABOUTME: JSON response envelope and error classification for the HTTP API
// ABOUTME: Maps domain sentinel errors to status codes and writes exactly one envelope

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/deflink/deflink/internal/auth"
	"github.com/deflink/deflink/internal/directory"
	"github.com/deflink/deflink/internal/entity"
	"github.com/deflink/deflink/internal/store"
)

// ErrValidation matches every input validation failure.
var ErrValidation = directory.ErrValidation

// errUnauthorized is the single message for every rejected credential.
const errUnauthorized = "unauthorized"

// Envelope wraps every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message})
}

// writeError classifies err and writes the matching envelope. Storage and
// unexpected errors are logged and reported without detail.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		writeFailure(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxBytes.Limit))
	case errors.Is(err, ErrValidation):
		writeFailure(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, auth.ErrPasswordTooShort):
		writeFailure(w, http.StatusBadRequest, auth.ErrPasswordTooShort.Error())
	case errors.Is(err, auth.ErrInvalidSession), errors.Is(err, auth.ErrInvalidPassword):
		writeFailure(w, http.StatusUnauthorized, errUnauthorized)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, entity.ErrInvalidID):
		writeFailure(w, http.StatusNotFound, "not found")
	case store.IsStorageError(err):
		a.logger.Error("storage failure", "method", r.Method, "path", r.URL.Path, "error", err)
		writeFailure(w, http.StatusInternalServerError, "internal server error")
	default:
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeFailure(w, http.StatusInternalServerError, "internal server error")
	}
}

// validationMessage returns the client-facing text of a validation error
// without the wrapping context added on the way up.
func validationMessage(err error) string {
	var ve *directory.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

// invalidJSON is returned for bodies that do not decode.
func invalidJSON() error {
	return &directory.ValidationError{Reason: "invalid JSON body"}
}

// missing reports required fields absent from a request body.
func missing(fields ...string) error {
	return &directory.ValidationError{Missing: fields}
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return invalidJSON()
	}
	return nil
}
