package license

import "licensedesk/internal/apperr"

var (
	ErrNotFound            = apperr.New(apperr.CodeNotFound, "License not found")
	ErrDuplicateActivation = apperr.New(apperr.CodeDuplicateActivation, "License already activated")
	ErrInvalidInput        = apperr.New(apperr.CodeValidation, "invalid input")
	ErrInactive            = apperr.New(apperr.CodeLicenseInactive, "License inactive")
	ErrExpired             = apperr.New(apperr.CodeLicenseExpired, "License expired")
	ErrInvalidRecord       = apperr.New(apperr.CodeLicenseInvalid, "License record has an unreadable validity date")
	ErrStoreUnavailable    = apperr.New(apperr.CodeStoreUnavailable, "license store unavailable")
)
