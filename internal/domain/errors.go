package domain

import "errors"

var (
	ErrEmptyKeywords     = errors.New("keywords are required")
	ErrInvalidTone       = errors.New("invalid tone")
	ErrInvalidSimplicity = errors.New("invalid simplicity")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrInvalidIdentity   = errors.New("invalid identity")
)
