// Package http serves the JSON API over the check service.
//
// This file implements a small builder for API responses and the mapping
// from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"imprimecheque/internal/core"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode  int
	headers     map[string]string
	payload     any
	raw         []byte
	contentType string
}

// NewResponse creates a builder with a default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets a payload encoded as JSON on Write.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.payload = v
	b.raw = nil
	b.contentType = "application/json; charset=utf-8"
	return b
}

// Bytes sets a raw body, for rendered documents.
func (b *ResponseBuilder) Bytes(contentType string, data []byte) *ResponseBuilder {
	b.payload = nil
	b.raw = data
	b.contentType = contentType
	return b
}

// Write sends the response. Headers set with Header win over the content type.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	body := b.raw
	if b.payload != nil {
		data, err := json.Marshal(b.payload)
		if err != nil {
			http.Error(w, `{"error":"internal error","code":"internal"}`, http.StatusInternalServerError)
			return
		}
		body = append(data, '\n')
	}

	if b.contentType != "" {
		w.Header().Set("Content-Type", b.contentType)
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorResponse creates an error response with a machine-readable code.
func ErrorResponse(statusCode int, code, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(ErrorBody{Error: message, Code: code})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", "internal error")
}

// errorMapping is checked in order: Exhausted is listed before Conflict
// because issuance reports exhaustion first.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{core.ErrExhausted, http.StatusConflict, "exhausted"},
	{core.ErrConflict, http.StatusConflict, "conflict"},
	{core.ErrNotFound, http.StatusNotFound, "not_found"},
	{core.ErrFormat, http.StatusUnprocessableEntity, "format"},
	{core.ErrSeriesMismatch, http.StatusUnprocessableEntity, "series_mismatch"},
	{core.ErrOutOfRange, http.StatusUnprocessableEntity, "out_of_range"},
	{core.ErrInvalidAmount, http.StatusUnprocessableEntity, "invalid_amount"},
	{core.ErrMissingLayout, http.StatusUnprocessableEntity, "missing_layout"},
	{core.ErrInvalidPosition, http.StatusUnprocessableEntity, "invalid_position"},
	{core.ErrBankMismatch, http.StatusUnprocessableEntity, "bank_mismatch"},
}

// DomainError maps a service error to its response. Validation failures
// carry their message; anything unrecognised becomes an opaque 500.
func DomainError(err error) *ResponseBuilder {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return ErrorResponse(m.status, m.code, err.Error())
		}
	}
	if core.IsValidationError(err) {
		return ErrorResponse(http.StatusUnprocessableEntity, "validation", err.Error())
	}
	return InternalServerError()
}
