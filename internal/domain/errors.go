package domain

import "errors"

var (
	// ErrNotFound marks a missing reference (quote, config, product, material, option, group, entry).
	ErrNotFound = errors.New("not found")
	// ErrValidation marks a domain invariant violation.
	ErrValidation = errors.New("validation failed")
)
