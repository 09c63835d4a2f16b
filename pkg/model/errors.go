package model

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput     = errors.New("malformed input")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// InputError describes a raw usage response that cannot be normalized.
// It unwraps to ErrMalformedInput or ErrInvalidAmount.
type InputError struct {
	Kind    error
	Date    string
	Service string
	Reason  string
}

func (e *InputError) Error() string {
	switch {
	case e.Date != "" && e.Service != "":
		return fmt.Sprintf("%v: %s/%s: %s", e.Kind, e.Date, e.Service, e.Reason)
	case e.Date != "":
		return fmt.Sprintf("%v: %s: %s", e.Kind, e.Date, e.Reason)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	}
}

func (e *InputError) Unwrap() error { return e.Kind }

// ErrorKind maps an error to a stable identifier safe to show callers.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "internal"
	}
}
