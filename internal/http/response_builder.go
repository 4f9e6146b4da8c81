// Package http serves the ledger over a JSON API: transaction entry and
// listing, monthly summaries, chart data and the summary export.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// JSONResponseBuilder provides a fluent API for building API responses.
type JSONResponseBuilder struct {
	statusCode  int
	headers     http.Header
	payload     any
	body        []byte
	contentType string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(http.Header),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers.Set(name, value)
	return b
}

// Warning adds an RFC 7234 style miscellaneous warning.
func (b *JSONResponseBuilder) Warning(message string) *JSONResponseBuilder {
	return b.Header("Warning", "199 glow "+strconv.Quote(message))
}

// JSON sets the value encoded as the response body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.payload = v
	b.body = nil
	return b
}

// Raw sets a pre-encoded body with its content type.
func (b *JSONResponseBuilder) Raw(contentType string, body []byte) *JSONResponseBuilder {
	b.contentType = contentType
	b.body = body
	b.payload = nil
	return b
}

// Render encodes the response without writing it.
func (b *JSONResponseBuilder) Render() (*renderedResponse, error) {
	out := &renderedResponse{status: b.statusCode, headers: b.headers.Clone(), body: b.body}
	if b.payload != nil {
		data, err := json.Marshal(b.payload)
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		out.body = append(data, '\n')
		out.headers.Set("Content-Type", "application/json; charset=utf-8")
	} else if b.contentType != "" {
		out.headers.Set("Content-Type", b.contentType)
	}
	return out, nil
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	rendered, err := b.Render()
	if err != nil {
		http.Error(w, `{"error":"internal_error","message":"could not encode response"}`, http.StatusInternalServerError)
		return
	}
	rendered.Send(w)
}

type renderedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

func (r *renderedResponse) Send(w http.ResponseWriter) {
	for name, values := range r.headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(r.status)
	if len(r.body) > 0 {
		_, _ = w.Write(r.body)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(errorBody{Error: code, Message: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, "invalid_input", message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, "conflict", message)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again later.")
}

// InternalServerError never exposes the underlying error.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal_error", "Something went wrong")
}

func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, "unavailable", message)
}

func MethodNotAllowedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
}
