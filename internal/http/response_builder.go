// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping
// from service errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	applog "dompet/internal/log"
	"dompet/internal/services"
	"dompet/internal/store"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter. A 204 or a nil
// body writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

// writeError maps err to a status code and writes it. Internal errors are
// logged with their cause and answered with a generic message.
func writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	var fe *fieldError
	switch {
	case errors.Is(err, errMalformedBody):
		BadRequestError(err.Error()).Write(w)
	case errors.As(err, &fe), services.IsValidation(err):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, store.ErrNotFound):
		NotFoundError("not found").Write(w)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		w.WriteHeader(499)
	default:
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogError(ctx, "Request failed", err, applog.ComponentHTTP, op, nil)
		InternalServerError().Write(w)
	}
}
