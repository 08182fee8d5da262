package manager

import (
	"context"
	"errors"
	"net"
	"strconv"
)

// unavailableError signals the runtime could not be reached or started.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return "runtime unavailable: " + e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates the runtime is not reachable.
func IsUnavailable(err error) bool {
	var e unavailableError
	return errors.As(err, &e)
}

// modelNotFoundError is returned when the runtime does not know a model.
type modelNotFoundError struct{ name string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.name }

// ErrModelNotFound returns an error for a model missing from the runtime inventory.
func ErrModelNotFound(name string) error { return modelNotFoundError{name: name} }

// IsModelNotFound reports whether the error indicates a missing model.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// runtimeStatusError carries a non-2xx HTTP status from the runtime.
type runtimeStatusError struct {
	op   string
	code int
}

func (e runtimeStatusError) Error() string {
	return e.op + ": runtime returned status " + strconv.Itoa(e.code)
}

// IsRuntimeStatus reports whether err is a non-2xx runtime response and
// returns its status code.
func IsRuntimeStatus(err error) (int, bool) {
	var e runtimeStatusError
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}

// timeoutError marks an operation that exceeded its deadline.
type timeoutError struct{ op string }

func (e timeoutError) Error() string { return e.op + ": timed out" }

// IsTimeout reports whether err indicates a deadline was exceeded.
func IsTimeout(err error) bool {
	var e timeoutError
	return errors.As(err, &e)
}

// classify maps transport failures onto the package error types.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError{op: op}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return timeoutError{op: op}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return unavailableError{msg: op + ": " + err.Error()}
}
