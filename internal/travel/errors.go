package travel

import "errors"

// ErrNotFound is returned when the requested record does not exist.
// Handlers map it to 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller may not touch the record.
// Handlers map it to 403.
var ErrForbidden = errors.New("permission denied")

// ErrValidation marks input that breaks a business rule.
// Handlers map it to 400 and show the wrapped message.
var ErrValidation = errors.New("validation error")
