package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, empty DSN or an unsupported driver name).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSessionConfigs indicates invalid session settings
	// (for example, a missing cookie signing key).
	ErrInvalidSessionConfigs = errors.New("invalid session configuration")
	// ErrInvalidSecurityConfigs indicates invalid security settings
	// (for example, an email token TTL not exceeding the OTP TTL).
	ErrInvalidSecurityConfigs = errors.New("invalid security configuration")
)
