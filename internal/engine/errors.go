package engine

import "net/http"

// statusError carries the HTTP status the API should answer with.
type statusError struct {
	code int
	msg  string
}

func (e statusError) Error() string   { return e.msg }
func (e statusError) StatusCode() int { return e.code }

func badRequest(msg string) error { return statusError{code: http.StatusBadRequest, msg: msg} }
func notFound(msg string) error   { return statusError{code: http.StatusNotFound, msg: msg} }
func unavailable() error {
	return statusError{code: http.StatusServiceUnavailable, msg: "Ollama service is not available"}
}
