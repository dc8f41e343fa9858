package http

import (
	"net/http"
	"strconv"
)

// ResponseBuilder assembles a status, headers and body before writing them
// in one go.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    http.Header
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    http.Header{},
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers.Set(name, value)
	return b
}

func (b *ResponseBuilder) ContentType(ct string) *ResponseBuilder {
	return b.Header("Content-Type", ct)
}

// Attachment asks the browser to download the body as filename.
func (b *ResponseBuilder) Attachment(filename string) *ResponseBuilder {
	return b.Header("Content-Disposition", "attachment;filename="+filename)
}

func (b *ResponseBuilder) Body(content []byte) *ResponseBuilder {
	b.body = content
	return b
}

func (b *ResponseBuilder) BodyString(content string) *ResponseBuilder {
	b.body = []byte(content)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, values := range b.headers {
		w.Header()[name] = values
	}
	if len(b.body) > 0 {
		w.Header().Set("Content-Length", strconv.Itoa(len(b.body)))
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is a plain text error. Text bodies need no HTML escaping.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		ContentType("text/plain; charset=utf-8").
		Header("X-Content-Type-Options", "nosniff").
		BodyString(message + "\n")
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func ServiceUnavailableError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

func TooManyRequestsError() *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").
		Header("Retry-After", "1")
}

// CSVResponse downloads body as data.csv.
func CSVResponse(body []byte) *ResponseBuilder {
	return NewResponse().
		ContentType("text/csv; charset=utf-8").
		Attachment("data.csv").
		Body(body)
}
