package classifier

import (
	"errors"
	"fmt"
)

// Failure classes. Match them with errors.Is.
var (
	ErrRateLimited     = errors.New("classifier rate limited")
	ErrQuotaExhausted  = errors.New("classifier quota exhausted")
	ErrUpstream        = errors.New("classifier upstream error")
	ErrTimeout         = errors.New("classifier timeout")
	ErrNetwork         = errors.New("classifier network error")
	ErrResponseInvalid = errors.New("classifier response invalid")
)

// Error carries the failure class of a classification call together with
// whatever the backend reported.
type Error struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, status int, message string, err error) *Error {
	return &Error{Kind: kind, StatusCode: status, Message: message, Err: err}
}

func invalid(format string, args ...interface{}) *Error {
	return newError(ErrResponseInvalid, 0, fmt.Sprintf(format, args...), nil)
}

// kindForStatus maps a non-2xx HTTP status to its failure class.
func kindForStatus(status int) error {
	switch status {
	case 429:
		return ErrRateLimited
	case 402:
		return ErrQuotaExhausted
	default:
		return ErrUpstream
	}
}
