// Package http provides the REST server and its handlers.
//
// This file holds the JSON response builder and the mapping from domain
// errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finarth/internal/agent"
	"finarth/internal/core"
	"finarth/internal/log"
	"finarth/internal/market"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a builder with a default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes only the status.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates the standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// statusFor maps a service error to its HTTP status and client message.
// Unknown errors become a 500 with a generic message.
func statusFor(err error) (int, string) {
	switch {
	case core.IsValidation(err):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, market.ErrNoSymbols), errors.Is(err, market.ErrTooMany):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, core.ErrEmailTaken):
		return http.StatusConflict, core.ErrEmailTaken.Error()
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized, core.ErrInvalidCredentials.Error()
	case errors.Is(err, agent.ErrNotConfigured):
		return http.StatusServiceUnavailable, agent.ErrNotConfigured.Error()
	case errors.Is(err, agent.ErrUpstream):
		return http.StatusBadGateway, "advisor service unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func validationMessage(err error) string {
	var v *core.ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	return err.Error()
}

// writeError logs server-side failures and writes the mapped error response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	logger := log.FromContext(r.Context())
	switch {
	case status >= 500:
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldError, err,
			log.FieldStatusCode, status)
	case status == http.StatusNotFound || status == http.StatusBadRequest:
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldError, err)
	default:
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldError, err,
			log.FieldStatusCode, status)
	}
	ErrorResponse(status, msg).Write(w)
}
