package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/devspace-core/internal/layout"
	"github.com/nerrad567/devspace-core/internal/output"
	"github.com/nerrad567/devspace-core/internal/space"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnavailable = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeSpaceError maps domain errors onto HTTP responses.
func writeSpaceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, space.ErrDeviceNotFound),
		errors.Is(err, space.ErrIndexOutOfRange),
		errors.Is(err, output.ErrAccessoryNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())

	case errors.Is(err, space.ErrInvalidKind),
		errors.Is(err, space.ErrInvalidStatus),
		errors.Is(err, space.ErrUnknownField),
		errors.Is(err, space.ErrFieldReadOnly),
		errors.Is(err, space.ErrInvalidName),
		errors.Is(err, space.ErrInvalidComment),
		errors.Is(err, space.ErrInvalidZoom),
		errors.Is(err, space.ErrInvalidPin),
		errors.Is(err, output.ErrUnsupportedAccessory):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, space.ErrNotHub),
		errors.Is(err, space.ErrNotPeripheral),
		errors.Is(err, space.ErrAlreadyConnected),
		errors.Is(err, space.ErrNotConnected),
		errors.Is(err, space.ErrPinOccupied),
		errors.Is(err, output.ErrNoHub),
		errors.Is(err, layout.ErrNoArea):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())

	case errors.Is(err, space.ErrLoopStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())

	default:
		writeInternalError(w, err.Error())
	}
}
