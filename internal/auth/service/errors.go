package service

import "errors"

// Caller-facing outcomes. Anything else returned by a service is a systemic
// failure (store unavailable, bad configuration) and maps to a 5xx.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidRole       = errors.New("invalid role")
	ErrAlreadyRegistered = errors.New("email already registered")
	ErrDuplicatePending  = errors.New("pending invite already exists for email")
	ErrNoLongerValid     = errors.New("invite no longer valid")
	ErrExpired           = errors.New("invite expired")
	ErrInvalidRequest    = errors.New("invalid request")

	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

var authErrors = []error{
	ErrUnauthenticated,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidRole,
	ErrAlreadyRegistered,
	ErrDuplicatePending,
	ErrNoLongerValid,
	ErrExpired,
	ErrInvalidRequest,
	ErrBootstrapAlready,
	ErrBootstrapUnauthorized,
}

// IsAuthError reports whether err is one of the expected, caller-facing
// outcomes rather than a systemic failure.
func IsAuthError(err error) bool {
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
