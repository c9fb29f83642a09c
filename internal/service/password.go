// SPDX-License-Identifier: Apache-2.0

package service

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	signupPasswordMinLength = 8
	resetPasswordMinLength  = 6

	passwordSpecials = "@$!%*?&"
)

// HashPassword derives the stored bcrypt hash at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a candidate against the stored hash. bcrypt's
// comparison is salted and constant-time relative to the hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidSignupPassword enforces the signup composition policy: at least 8
// characters, one uppercase, one lowercase, one digit, one special from
// @$!%*?&, and nothing outside that combined set.
func ValidSignupPassword(password string) bool {
	if len(password) < signupPasswordMinLength {
		return false
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}

	return upper && lower && digit && special
}

// ValidResetPassword enforces the reset policy. It is deliberately weaker
// than the signup policy (length only); the mismatch is inherited behavior,
// kept rather than silently harmonized.
func ValidResetPassword(password string) bool {
	return len(password) >= resetPasswordMinLength
}
