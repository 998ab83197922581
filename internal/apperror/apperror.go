package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies failures for callers and transport mapping.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindConflict    Kind = "conflict"
	KindExternal    Kind = "external_service_error"
	KindNoCandidate Kind = "no_candidate"
	KindNotFound    Kind = "not_found"
	KindForbidden   Kind = "forbidden"
)

// Error is a classified domain error. Code is a stable snake_case identifier.
type Error struct {
	Kind    Kind
	Code    string
	Service string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Service != "" {
			return fmt.Sprintf("%s: %s: %v", e.Code, e.Service, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error with the same kind and code so sentinel
// errors keep working after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func Validation(code string) *Error {
	return &Error{Kind: KindValidation, Code: code}
}

func Conflict(code string) *Error {
	return &Error{Kind: KindConflict, Code: code}
}

func NotFound(code string) *Error {
	return &Error{Kind: KindNotFound, Code: code}
}

func Forbidden(code string) *Error {
	return &Error{Kind: KindForbidden, Code: code}
}

func NoCandidate(code string) *Error {
	return &Error{Kind: KindNoCandidate, Code: code}
}

// External wraps a collaborator failure. Retryable external failures are
// timeouts and transport errors; explicit provider rejections are not.
func External(service string, err error) *Error {
	return &Error{Kind: KindExternal, Code: "external_service_error", Service: service, Err: err}
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind
	}
	return ""
}

// CodeOf returns the code of the first classified error in the chain.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}
	return ""
}

func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsConflict(err error) bool    { return KindOf(err) == KindConflict }
func IsExternal(err error) bool    { return KindOf(err) == KindExternal }
func IsNoCandidate(err error) bool { return KindOf(err) == KindNoCandidate }
func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
func IsForbidden(err error) bool   { return KindOf(err) == KindForbidden }
