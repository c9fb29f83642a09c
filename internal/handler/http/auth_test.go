// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/accounts/internal/service"
	"github.com/tillpoint/accounts/internal/session"
	"github.com/tillpoint/accounts/models"
)

func TestLogin_SuccessRotatesSessionAndRedirects(t *testing.T) {
	authenticated := &models.SessionData{
		UserID:       42,
		Username:     "john_doe",
		RoleID:       2,
		RoleName:     "cashier",
		LoginSuccess: true,
	}
	auth := &mockAuthService{
		loginFn: func(_ context.Context, identifier, password string, meta models.RequestMeta) (models.Outcome, error) {
			assert.Equal(t, "john_doe", identifier)
			assert.Equal(t, "Str0ng!Pass", password)
			assert.NotEmpty(t, meta.IP)
			return models.Success{Redirect: "/pos/till", Session: authenticated}, nil
		},
	}
	env := newTestEnv(t, &service.Services{AuthService: auth})

	// The pre-auth session the attacker could have planted.
	cookie, oldSID := env.seedSession(t, &models.SessionData{TempUserID: 7})

	rec := env.postForm("/login", url.Values{
		"identifier": {"john_doe"},
		"password":   {"Str0ng!Pass"},
	}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pos/till", rec.Header().Get("Location"))

	newSID, data := env.sessionFromResponse(t, rec)
	assert.NotEqual(t, oldSID, newSID, "session id must rotate on login")
	assert.True(t, data.Authenticated())
	assert.Equal(t, int64(42), data.UserID)

	_, err := env.sessions.Get(context.Background(), oldSID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound, "pre-auth session must be destroyed")
}

func TestLogin_RejectedFlashesAndReturnsToForm(t *testing.T) {
	auth := &mockAuthService{
		loginFn: func(_ context.Context, _, _ string, _ models.RequestMeta) (models.Outcome, error) {
			return models.Rejected{Reason: service.MsgInvalidCredentials, Severity: models.SeverityDanger}, nil
		},
	}
	env := newTestEnv(t, &service.Services{AuthService: auth})

	rec := env.postForm("/login", url.Values{
		"identifier": {"john_doe"},
		"password":   {"wrong"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, data := env.sessionFromResponse(t, rec)
	require.Len(t, data.Flash, 1)
	assert.Equal(t, service.MsgInvalidCredentials, data.Flash[0].Text)
	assert.Equal(t, models.SeverityDanger, data.Flash[0].Severity)
}

func TestLogin_HalfRegisteredResumesPipeline(t *testing.T) {
	auth := &mockAuthService{
		loginFn: func(_ context.Context, _, _ string, _ models.RequestMeta) (models.Outcome, error) {
			return models.NeedsInput{
				Stage:   models.SignupCreated,
				PreAuth: &models.PreAuthState{TempUserID: 9, TempEmail: "j@shop.com"},
			}, nil
		},
	}
	env := newTestEnv(t, &service.Services{AuthService: auth})

	rec := env.postForm("/login", url.Values{
		"identifier": {"j@shop.com"},
		"password":   {"Str0ng!Pass"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signup/verify", rec.Header().Get("Location"))

	_, data := env.sessionFromResponse(t, rec)
	assert.Equal(t, int64(9), data.TempUserID)
	assert.Equal(t, "j@shop.com", data.TempEmail)
	assert.False(t, data.Authenticated())
}

func TestLogin_AuthenticatedReentryShortCircuits(t *testing.T) {
	called := false
	auth := &mockAuthService{
		loginFn: func(_ context.Context, _, _ string, _ models.RequestMeta) (models.Outcome, error) {
			called = true
			return models.Rejected{}, nil
		},
	}
	env := newTestEnv(t, &service.Services{AuthService: auth})

	cookie, _ := env.seedSession(t, &models.SessionData{UserID: 42, LoginSuccess: true})
	rec := env.postForm("/login", url.Values{"identifier": {"x"}, "password": {"y"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.False(t, called, "credential check must not run for an authenticated session")
}

func TestLogout_DestroysSessionAndRedirectsToLogin(t *testing.T) {
	auth := &mockAuthService{
		logoutFn: func(sess *models.SessionData) models.Outcome {
			require.NotNil(t, sess)
			return models.Success{Redirect: "/login", Notice: service.MsgSignedOut, Severity: models.SeverityInfo}
		},
	}
	env := newTestEnv(t, &service.Services{AuthService: auth})

	cookie, sid := env.seedSession(t, &models.SessionData{UserID: 42, LoginSuccess: true})
	rec := env.postForm("/logout", url.Values{}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, err := env.sessions.Get(context.Background(), sid)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestLogout_RefusedWhileTillOpen(t *testing.T) {
	auth := &mockAuthService{
		logoutFn: func(sess *models.SessionData) models.Outcome {
			return models.Rejected{Reason: service.MsgTillOpen, Severity: models.SeverityWarning}
		},
	}
	env := newTestEnv(t, &service.Services{AuthService: auth})

	cookie, sid := env.seedSession(t, &models.SessionData{UserID: 42, LoginSuccess: true, TillOpen: true})
	rec := env.postForm("/logout", url.Values{"return_to": {"/pos/till"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pos/till", rec.Header().Get("Location"))

	// Session survives the refused teardown, with the warning attached.
	data, err := env.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.True(t, data.Authenticated())
	require.Len(t, data.Flash, 1)
	assert.Equal(t, service.MsgTillOpen, data.Flash[0].Text)
}

func TestLogout_UnsafeReturnToFallsBack(t *testing.T) {
	auth := &mockAuthService{
		logoutFn: func(sess *models.SessionData) models.Outcome {
			return models.Rejected{Reason: service.MsgPOSOperator, Severity: models.SeverityWarning}
		},
	}
	env := newTestEnv(t, &service.Services{AuthService: auth})

	cookie, _ := env.seedSession(t, &models.SessionData{UserID: 42, LoginSuccess: true, POSOperator: true})
	rec := env.postForm("/logout", url.Values{"return_to": {"https://evil.example/"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestHealthz_ReportsDependencyStates(t *testing.T) {
	env := newTestEnv(t, &service.Services{})
	env.handler.checks = []HealthCheck{
		{Name: "postgres", Check: func(context.Context) error { return nil }},
	}

	rec := env.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)

	env.handler.checks = append(env.handler.checks, HealthCheck{
		Name:  "redis",
		Check: func(context.Context) error { return errDependencyDown },
	})

	rec = env.get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

var errDependencyDown = errors.New("connection refused")

func TestGetServerVersion(t *testing.T) {
	env := newTestEnv(t, &service.Services{})

	rec := env.get("/api/version")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"v1.2.3"`)
	assert.Contains(t, rec.Body.String(), `"commit":"abc1234"`)
}
