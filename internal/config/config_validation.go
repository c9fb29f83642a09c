// SPDX-License-Identifier: Apache-2.0

package config

import "fmt"

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return fmt.Errorf("%w: database DSN is required", ErrInvalidStorageConfigs)
	}

	switch cfg.Storage.DB.Driver {
	case "pgx", "sqlite3":
	default:
		return fmt.Errorf("%w: unsupported driver %q", ErrInvalidStorageConfigs, cfg.Storage.DB.Driver)
	}

	if cfg.Session.SignKey == "" {
		return fmt.Errorf("%w: session sign key is required", ErrInvalidSessionConfigs)
	}

	// the verification link must outlive both OTP rounds
	if cfg.Security.EmailTokenTTL <= cfg.Security.OTPTTL {
		return fmt.Errorf("%w: email token TTL must exceed OTP TTL", ErrInvalidSecurityConfigs)
	}

	return nil
}
