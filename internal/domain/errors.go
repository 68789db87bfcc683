package domain

import "errors"

// Expected domain conditions. Wrap with fmt.Errorf("%w: ...") for detail and
// match with errors.Is.
var (
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrNotFound         = errors.New("not found")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrValidation       = errors.New("validation failed")
	ErrExternalService  = errors.New("external service failure")
	ErrProtectedAccount = errors.New("protected account")
	ErrForbidden        = errors.New("forbidden")
)
