package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/nhle/task-dashboard/internal/ai"
	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/insight"
	"github.com/nhle/task-dashboard/internal/store"
)

// maxRequestBodyBytes limits decoded JSON payload size.
const maxRequestBodyBytes int64 = 1 << 20

var (
	errInvalidRequest = errors.New("invalid request")
	errForbidden      = errors.New("forbidden")
	errConflict       = errors.New("conflict")
)

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// writeErrorFrom maps domain errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	var integrity *insight.DataIntegrityError
	var cfgErr *insight.ConfigurationError

	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.As(err, &integrity):
		logger.WithFields(logrus.Fields{
			"event":   "insight_data_integrity",
			"task_id": integrity.TaskID,
			"field":   integrity.Field,
			"value":   integrity.Value,
		}).Error("task data failed validation")
		writeJSONError(w, http.StatusUnprocessableEntity, APIError{
			Code:    "data_integrity",
			Message: integrity.Error(),
			Context: map[string]any{
				"task_id": integrity.TaskID,
				"field":   integrity.Field,
				"value":   integrity.Value,
			},
		})
	case errors.As(err, &cfgErr):
		logger.WithFields(logrus.Fields{
			"event": "insight_configuration",
			"field": cfgErr.Field,
		}).WithError(err).Error("insight configuration error")
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "configuration_error",
			Message: cfgErr.Error(),
		})
	case errors.Is(err, ai.ErrUnavailable):
		writeJSONError(w, http.StatusBadGateway, APIError{
			Code:    "ai_unavailable",
			Message: "the AI assistant is unavailable, try again later",
		})
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, errInvalidRequest), errors.Is(err, store.ErrInvalid),
		errors.Is(err, ai.ErrEmptyMessage):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, APIError{
			Code:    "unauthorized",
			Message: err.Error(),
		})
	case errors.Is(err, errForbidden):
		writeJSONError(w, http.StatusForbidden, APIError{
			Code:    "forbidden",
			Message: err.Error(),
		})
	case errors.Is(err, errConflict):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "canceled",
			Message: "request canceled",
		})
	default:
		logger.WithFields(logrus.Fields{
			"event": "internal_error",
		}).WithError(err).Error("request failed")
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "internal server error",
		})
	}
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":%q}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: decode request body: %v", errInvalidRequest, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode request body: trailing content", errInvalidRequest)
	}
	return nil
}
