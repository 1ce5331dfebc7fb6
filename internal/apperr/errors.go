package apperr

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeDuplicateActivation Code = "DUPLICATE_ACTIVATION"
	CodeLicenseInactive     Code = "LICENSE_INACTIVE"
	CodeLicenseExpired      Code = "LICENSE_EXPIRED"
	CodeLicenseInvalid      Code = "LICENSE_INVALID"
	CodeRateLimit           Code = "RATE_LIMIT_EXCEEDED"
	CodeStoreUnavailable    Code = "STORE_UNAVAILABLE"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Metadata describes how a code is surfaced over HTTP. Codes without
// DetailsAllowed never leak their message or cause to the caller.
type Metadata struct {
	HTTPStatus     int
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:          {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:        {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", DetailsAllowed: true},
	CodeNotFound:            {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found", DetailsAllowed: true},
	CodeConflict:            {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected", DetailsAllowed: true},
	CodeDuplicateActivation: {HTTPStatus: http.StatusConflict, PublicMessage: "license already activated", DetailsAllowed: true},
	CodeLicenseInactive:     {HTTPStatus: http.StatusForbidden, PublicMessage: "License inactive", DetailsAllowed: true},
	CodeLicenseExpired:      {HTTPStatus: http.StatusForbidden, PublicMessage: "License expired", DetailsAllowed: true},
	CodeLicenseInvalid:      {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "License record invalid", DetailsAllowed: true},
	CodeRateLimit:           {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded", DetailsAllowed: false},
	CodeStoreUnavailable:    {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "service temporarily unavailable", DetailsAllowed: false},
	CodeInternal:            {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", DetailsAllowed: false},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches any *Error carrying the same code, so package-level sentinels
// keep working after a message or cause has been attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}
