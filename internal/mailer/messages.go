// SPDX-License-Identifier: Apache-2.0

package mailer

import "fmt"

// Message is one composed notification ready for a [Sender].
type Message struct {
	Subject string
	Body    string
}

// SignupMessage carries the initial verification code together with the
// email-confirmation link mailed at account creation.
func SignupMessage(username, otp, verifyLink string) Message {
	return Message{
		Subject: "Confirm your Tillpoint account",
		Body: fmt.Sprintf(
			"Hi %s,\n\n"+
				"Your verification code is: %s\n"+
				"The code expires in 10 minutes.\n\n"+
				"You can also confirm your email address directly:\n%s\n\n"+
				"If you did not create this account, ignore this message.\n",
			username, otp, verifyLink),
	}
}

// FinalOTPMessage carries the second code required to finish registration.
func FinalOTPMessage(username, otp string) Message {
	return Message{
		Subject: "Your Tillpoint confirmation code",
		Body: fmt.Sprintf(
			"Hi %s,\n\n"+
				"Your final confirmation code is: %s\n"+
				"Enter it to finish setting up your account. The code expires in 10 minutes.\n",
			username, otp),
	}
}

// WelcomeMessage confirms a completed registration.
func WelcomeMessage(username string) Message {
	return Message{
		Subject: "Welcome to Tillpoint",
		Body: fmt.Sprintf(
			"Hi %s,\n\n"+
				"Your account is ready. You can now sign in at the till or the back office.\n",
			username),
	}
}

// ResetMessage carries the password-reset link.
func ResetMessage(username, resetLink string) Message {
	return Message{
		Subject: "Reset your Tillpoint password",
		Body: fmt.Sprintf(
			"Hi %s,\n\n"+
				"A password reset was requested for your account. Follow the link to choose a new password:\n%s\n\n"+
				"The link expires in one hour. If you did not request this, ignore this message.\n",
			username, resetLink),
	}
}

// PasswordChangedMessage confirms a completed reset.
func PasswordChangedMessage(username string) Message {
	return Message{
		Subject: "Your Tillpoint password was changed",
		Body: fmt.Sprintf(
			"Hi %s,\n\n"+
				"The password on your account was just changed. If this was not you, contact your manager immediately.\n",
			username),
	}
}
