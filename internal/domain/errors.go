package domain

import (
	"errors"
	"fmt"
)

type ErrCode string

const (
	CodeValidation      ErrCode = "validation_error"
	CodeRejected        ErrCode = "submission_rejected"
	CodeNotFound        ErrCode = "not_found"
	CodeUnauthorized    ErrCode = "unauthorized"
	CodeForbidden       ErrCode = "forbidden"
	CodeInvalidState    ErrCode = "invalid_state"
	CodeDataUnavailable ErrCode = "data_unavailable"
)

// AppError is the error shape every layer returns to transport.
// Message is safe for clients; Cause stays in logs.
type AppError struct {
	Code    ErrCode
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Meta) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Meta)
}

func (e *AppError) Unwrap() error { return e.Cause }


func ErrValidation(msg string) error { return &AppError{Code: CodeValidation, Message: msg} }
func ErrValidationMeta(msg string, meta map[string]string) error {
	return &AppError{Code: CodeValidation, Message: msg, Meta: meta}
}

// ErrRejected is an expected outcome of the anti-abuse filter, not a failure.
func ErrRejected(reason RejectReason, msg string) error {
	return &AppError{Code: CodeRejected, Message: msg, Meta: map[string]string{"reason": string(reason)}}
}

func ErrNotFound(msg string) error     { return &AppError{Code: CodeNotFound, Message: msg} }
func ErrUnauthorized(msg string) error { return &AppError{Code: CodeUnauthorized, Message: msg} }
func ErrForbidden(msg string) error    { return &AppError{Code: CodeForbidden, Message: msg} }
func ErrInvalidState(msg string) error { return &AppError{Code: CodeInvalidState, Message: msg} }

func ErrDataUnavailable(cause error) error {
	return &AppError{Code: CodeDataUnavailable, Message: "data temporarily unavailable", Cause: cause}
}

// Unavailable wraps foreign errors from a data boundary as DataUnavailable and
// passes AppErrors through untouched.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return err
	}
	return ErrDataUnavailable(err)
}

// CodeOf returns the AppError code of err, or "" for foreign errors.
func CodeOf(err error) ErrCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsDataUnavailable(err error) bool { return CodeOf(err) == CodeDataUnavailable }
