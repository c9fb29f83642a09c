// SPDX-License-Identifier: Apache-2.0

package service

import (
	"regexp"

	"github.com/tillpoint/accounts/models"
)

// Classification patterns, in priority order: email grammar beats the short
// numeric staff code, which beats the username fallback. No cascading: one
// classification, one lookup.
var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	userCodePattern = regexp.MustCompile(`^\d{3,6}$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)
)

// ClassifyIdentifier decides which lookup a raw login identifier selects.
func ClassifyIdentifier(raw string) models.IdentifierKind {
	switch {
	case emailPattern.MatchString(raw):
		return models.KindEmail
	case userCodePattern.MatchString(raw):
		return models.KindUserCode
	default:
		return models.KindUsername
	}
}

// ValidUsername reports whether a signup username is acceptable.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// ValidEmail reports whether an address passes the email grammar. Length is
// capped to keep pathological input out of the store.
func ValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}
