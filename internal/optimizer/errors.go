package optimizer

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is matched by every request rejected before model construction
var ErrInvalidRequest = errors.New("invalid optimization request")

// RequestError describes why a request was rejected
type RequestError struct {
	Field  string
	Reason string
	Err    error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrInvalidRequest, e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...interface{}) *RequestError {
	return &RequestError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
