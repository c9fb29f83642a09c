// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/accounts/internal/service"
	"github.com/tillpoint/accounts/models"
)

func TestRegister_StashesPreAuthStateInSession(t *testing.T) {
	reg := &mockRegistrationService{
		registerFn: func(_ context.Context, input service.RegistrationInput, _ models.RequestMeta) (models.Outcome, error) {
			assert.Equal(t, "john_doe", input.Username)
			assert.Equal(t, "john@shop.com", input.Email)
			return models.NeedsInput{
				Stage:    models.SignupCreated,
				Notice:   service.MsgOTPSent,
				Severity: models.SeverityInfo,
				PreAuth:  &models.PreAuthState{TempUserID: 11, TempEmail: "john@shop.com"},
			}, nil
		},
	}
	env := newTestEnv(t, &service.Services{RegistrationService: reg})

	rec := env.postForm("/signup", url.Values{
		"username":         {"john_doe"},
		"email":            {"john@shop.com"},
		"password":         {"Str0ng!Pass"},
		"confirm_password": {"Str0ng!Pass"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signup/verify", rec.Header().Get("Location"))

	_, data := env.sessionFromResponse(t, rec)
	assert.Equal(t, int64(11), data.TempUserID)
	assert.Equal(t, "john@shop.com", data.TempEmail)
	assert.False(t, data.OTPVerified)
	require.Len(t, data.Flash, 1)
	assert.Equal(t, service.MsgOTPSent, data.Flash[0].Text)
}

func TestRegister_AuthenticatedReentryShortCircuits(t *testing.T) {
	called := false
	reg := &mockRegistrationService{
		registerFn: func(_ context.Context, _ service.RegistrationInput, _ models.RequestMeta) (models.Outcome, error) {
			called = true
			return models.NeedsInput{}, nil
		},
	}
	env := newTestEnv(t, &service.Services{RegistrationService: reg})

	cookie, _ := env.seedSession(t, &models.SessionData{UserID: 4, LoginSuccess: true})
	rec := env.postForm("/signup", url.Values{"username": {"x"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.False(t, called)
}

func TestVerifySignupOTP_PassesSessionPreAuthState(t *testing.T) {
	reg := &mockRegistrationService{
		verifyOTPFn: func(_ context.Context, pre models.PreAuthState, code string, _ models.RequestMeta) (models.Outcome, error) {
			assert.Equal(t, int64(11), pre.TempUserID)
			assert.Equal(t, "john@shop.com", pre.TempEmail)
			assert.Equal(t, "042137", code)
			return models.NeedsInput{
				Stage:    models.SignupOTPVerified,
				Notice:   service.MsgFinalOTPSent,
				Severity: models.SeverityInfo,
				PreAuth:  &models.PreAuthState{TempUserID: 11, TempEmail: "john@shop.com", OTPVerified: true},
			}, nil
		},
	}
	env := newTestEnv(t, &service.Services{RegistrationService: reg})

	cookie, sid := env.seedSession(t, &models.SessionData{TempUserID: 11, TempEmail: "john@shop.com"})
	rec := env.postForm("/signup/verify-otp", url.Values{"code": {"042137"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signup/complete", rec.Header().Get("Location"))

	data, err := env.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.True(t, data.OTPVerified)
}

func TestVerifySignupOTP_WithoutSessionRestartsPipeline(t *testing.T) {
	reg := &mockRegistrationService{
		verifyOTPFn: func(_ context.Context, pre models.PreAuthState, _ string, _ models.RequestMeta) (models.Outcome, error) {
			assert.Zero(t, pre.TempUserID)
			return models.NeedsInput{}, nil
		},
	}
	env := newTestEnv(t, &service.Services{RegistrationService: reg})

	rec := env.postForm("/signup/verify-otp", url.Values{"code": {"042137"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signup", rec.Header().Get("Location"))
}

func TestCompleteSignup_EstablishesAuthenticatedSession(t *testing.T) {
	reg := &mockRegistrationService{
		completeFn: func(_ context.Context, pre models.PreAuthState, code string, _ models.RequestMeta) (models.Outcome, error) {
			assert.True(t, pre.OTPVerified)
			assert.Equal(t, "731004", code)
			return models.Success{
				Redirect: "/pos/till",
				Notice:   service.MsgWelcome,
				Severity: models.SeveritySuccess,
				Session: &models.SessionData{
					UserID:       11,
					Username:     "john_doe",
					RoleName:     "cashier",
					LoginSuccess: true,
				},
			}, nil
		},
	}
	env := newTestEnv(t, &service.Services{RegistrationService: reg})

	cookie, oldSID := env.seedSession(t, &models.SessionData{TempUserID: 11, TempEmail: "john@shop.com", OTPVerified: true})
	rec := env.postForm("/signup/complete", url.Values{"code": {"731004"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pos/till", rec.Header().Get("Location"))

	newSID, data := env.sessionFromResponse(t, rec)
	assert.NotEqual(t, oldSID, newSID)
	assert.True(t, data.Authenticated())
	assert.Zero(t, data.TempUserID, "pre-auth keys must not leak into the real session")
}

func TestResendSignupOTP(t *testing.T) {
	reg := &mockRegistrationService{
		resendOTPFn: func(_ context.Context, pre models.PreAuthState) (models.Outcome, error) {
			assert.Equal(t, int64(11), pre.TempUserID)
			return models.NeedsInput{Stage: models.SignupCreated, Notice: service.MsgOTPResent, Severity: models.SeverityInfo}, nil
		},
	}
	env := newTestEnv(t, &service.Services{RegistrationService: reg})

	cookie, _ := env.seedSession(t, &models.SessionData{TempUserID: 11})
	rec := env.postForm("/signup/resend-otp", url.Values{}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signup/verify", rec.Header().Get("Location"))
}

func TestVerifyEmailLink(t *testing.T) {
	reg := &mockRegistrationService{
		verifyEmailLinkFn: func(_ context.Context, tokenValue string) (models.Outcome, error) {
			assert.Equal(t, "tok123", tokenValue)
			return models.Success{Redirect: "/login", Notice: service.MsgEmailConfirmed, Severity: models.SeveritySuccess}, nil
		},
	}
	env := newTestEnv(t, &service.Services{RegistrationService: reg})

	rec := env.get("/signup/verify-email?token=tok123")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, data := env.sessionFromResponse(t, rec)
	require.Len(t, data.Flash, 1)
	assert.Equal(t, service.MsgEmailConfirmed, data.Flash[0].Text)
}
