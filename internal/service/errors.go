// SPDX-License-Identifier: Apache-2.0

package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")
	ErrCodeExhausted       = errors.New("could not allocate a unique user code")
)

// User-facing texts. Wording is part of the contract: the login rejection is
// identical for unknown accounts and wrong passwords, and the reset-request
// confirmation is byte-identical whether or not the email exists.
const (
	MsgInvalidCredentials = "Invalid username/email or password."
	MsgAccountLocked      = "Account temporarily locked after repeated failed sign-ins. Try again later or ask a manager to unlock it."
	MsgTooManyAttempts    = "Too many attempts. Please wait and try again."

	MsgUsernameTaken   = "That username is already taken."
	MsgEmailTaken      = "An account with that email address already exists."
	MsgUsernameInvalid = "Username must be 3 to 50 characters: letters, digits, and underscores only."
	MsgEmailInvalid    = "Enter a valid email address."
	MsgPasswordPolicy  = "Password must be at least 8 characters and include an uppercase letter, a lowercase letter, a digit, and one of @$!%*?&."
	MsgPasswordMatch   = "Passwords do not match."

	MsgOTPShape          = "The verification code is exactly 6 digits."
	MsgOTPInvalid        = "Invalid or expired verification code."
	MsgOTPSent           = "We sent a verification code to your email."
	MsgFinalOTPSent      = "A final confirmation code has been sent to your email."
	MsgOTPResent         = "A new verification code has been sent to your email."
	MsgSendFailed        = "Your account was created, but the verification email could not be sent. Use resend or contact support."
	MsgFinalSendFailed   = "Code accepted, but the confirmation email could not be sent. Use resend or contact support."
	MsgResendFailed      = "A new code could not be sent. Try again or contact support."
	MsgVerifyLinkInvalid = "This verification link is invalid or has expired."
	MsgEmailConfirmed    = "Email address confirmed."
	MsgWelcome           = "Welcome! Your account is ready."

	MsgResetConfirmation = "If an account with that email exists, a password reset link has been sent."
	MsgResetTokenInvalid = "This reset link is invalid or has expired. Request a new one."
	MsgResetPolicy       = "New password must be at least 6 characters."
	MsgPasswordChanged   = "Your password has been changed. Sign in with the new password."

	MsgTillOpen    = "Close the till before signing out."
	MsgPOSOperator = "An operator is signed in on this register. End the register session before signing out."
	MsgSignedOut   = "You have been signed out."
)
