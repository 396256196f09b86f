package contacts

import "errors"

// Sentinel errors for the contact import path.
var (
	ErrAuthFailed          = errors.New("directory login failed")
	ErrMissingEmail        = errors.New("record has no email")
	ErrCategoryUnavailable = errors.New("category could not be resolved")
)
