// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrConfig marks a missing or unusable setting (e.g. no webhook URL).
	ErrConfig = errors.New("configuration error")
	// ErrValidation marks rejected user input (e.g. a non-YouTube URL).
	ErrValidation = errors.New("validation error")
	// ErrParse marks a response body that could not be read or decoded.
	ErrParse = errors.New("parse error")
)
