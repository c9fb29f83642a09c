package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrUsernameAlreadyExists is returned when registration fails because
	// an account with the same username already exists.
	ErrUsernameAlreadyExists = errors.New("username already exists")

	// ErrEmailAlreadyExists is returned when registration fails because an
	// account with the same email already exists.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrUserCodeAlreadyExists is returned when the generated short user
	// code collides with an existing one. Callers regenerate and retry.
	ErrUserCodeAlreadyExists = errors.New("user code already exists")

	// ErrNoUserWasFound is returned when a lookup expected to match one
	// user record produces an empty result set.
	ErrNoUserWasFound = errors.New("no user was found")

	// ErrTokenInvalid is returned for every failed token or OTP
	// consumption: not found, expired, or already consumed. The cases are
	// deliberately indistinguishable.
	ErrTokenInvalid = errors.New("token is invalid or expired")

	// ErrStateConflict is returned when a guarded signup-state transition
	// finds the stored state different from the expected one.
	ErrStateConflict = errors.New("signup state conflict")
)
