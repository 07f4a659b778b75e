package domain

import (
	"errors"
	"fmt"
)

// Error codes reported to callers.
const (
	CodeValidation = "validation_error"
	CodeNotFound   = "not_found"
	CodeConflict   = "version_conflict"
)

// Error is a structured failure surfaced verbatim to the caller.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Validationf builds a validation error. Validation errors are raised before
// any write takes place.
func Validationf(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func hasCode(err error, code string) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

func IsValidation(err error) bool { return hasCode(err, CodeValidation) }
func IsNotFound(err error) bool   { return hasCode(err, CodeNotFound) }
func IsConflict(err error) bool   { return hasCode(err, CodeConflict) }
