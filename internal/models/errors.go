package models

import "errors"

// Error kinds surfaced by the ledger core. Call sites wrap them with
// fmt.Errorf("%w: ...") so callers can test with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrDuplicateAccount      = errors.New("account already exists")
	ErrStorage               = errors.New("storage error")
	ErrConversionUnavailable = errors.New("currency conversion unavailable")
)
