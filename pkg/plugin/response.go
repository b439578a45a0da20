package plugin

import (
	"encoding/json"
	"net/http"
)

// Response is the in-progress HTTP response carried on a RequestContext.
// Hooks and handlers build it up; the dispatcher writes it to the wire
// exactly once, between PreResponse and PostResponse.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// NewResponse creates an empty response with the given status code.
func NewResponse(status int) *Response {
	return &Response{
		StatusCode: status,
		Headers:    make(http.Header),
	}
}

// Text creates a text/plain response.
func Text(status int, body string) *Response {
	resp := NewResponse(status)
	resp.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	resp.Body = []byte(body)
	return resp
}

// JSON creates an application/json response by marshalling v.
// Marshal failures degrade to a 500 with a fixed body rather than
// panicking mid-pipeline.
func JSON(status int, v any) *Response {
	resp := NewResponse(status)
	resp.Headers.Set("Content-Type", "application/json")
	body, err := json.Marshal(v)
	if err != nil {
		resp.StatusCode = http.StatusInternalServerError
		resp.Body = []byte(`{"error":"response_encoding_failed"}`)
		return resp
	}
	resp.Body = body
	return resp
}

// SetHeader sets a header on the response, allocating the header map if
// the response was constructed manually.
func (r *Response) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	r.Headers.Set(name, value)
}

// WriteTo writes status, headers, and body to w.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	for name, values := range r.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(r.Body) > 0 {
		if _, err := w.Write(r.Body); err != nil {
			return err
		}
	}
	return nil
}
