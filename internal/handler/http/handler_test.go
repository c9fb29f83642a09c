// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/service"
	"github.com/tillpoint/accounts/internal/session"
	"github.com/tillpoint/accounts/models"
)

// ─────────────────────────────────────────────
// Service mocks
// ─────────────────────────────────────────────

// mockAuthService implements service.AuthService for unit tests.
// Each method field can be overridden per test case.
type mockAuthService struct {
	loginFn  func(ctx context.Context, identifier, password string, meta models.RequestMeta) (models.Outcome, error)
	logoutFn func(sess *models.SessionData) models.Outcome
}

func (m *mockAuthService) Login(ctx context.Context, identifier, password string, meta models.RequestMeta) (models.Outcome, error) {
	return m.loginFn(ctx, identifier, password, meta)
}

func (m *mockAuthService) Logout(sess *models.SessionData) models.Outcome {
	return m.logoutFn(sess)
}

type mockRegistrationService struct {
	registerFn        func(ctx context.Context, input service.RegistrationInput, meta models.RequestMeta) (models.Outcome, error)
	verifyOTPFn       func(ctx context.Context, pre models.PreAuthState, code string, meta models.RequestMeta) (models.Outcome, error)
	completeFn        func(ctx context.Context, pre models.PreAuthState, code string, meta models.RequestMeta) (models.Outcome, error)
	resendOTPFn       func(ctx context.Context, pre models.PreAuthState) (models.Outcome, error)
	verifyEmailLinkFn func(ctx context.Context, tokenValue string) (models.Outcome, error)
}

func (m *mockRegistrationService) Register(ctx context.Context, input service.RegistrationInput, meta models.RequestMeta) (models.Outcome, error) {
	return m.registerFn(ctx, input, meta)
}

func (m *mockRegistrationService) VerifyOTP(ctx context.Context, pre models.PreAuthState, code string, meta models.RequestMeta) (models.Outcome, error) {
	return m.verifyOTPFn(ctx, pre, code, meta)
}

func (m *mockRegistrationService) Complete(ctx context.Context, pre models.PreAuthState, code string, meta models.RequestMeta) (models.Outcome, error) {
	return m.completeFn(ctx, pre, code, meta)
}

func (m *mockRegistrationService) ResendOTP(ctx context.Context, pre models.PreAuthState) (models.Outcome, error) {
	return m.resendOTPFn(ctx, pre)
}

func (m *mockRegistrationService) VerifyEmailLink(ctx context.Context, tokenValue string) (models.Outcome, error) {
	return m.verifyEmailLinkFn(ctx, tokenValue)
}

type mockPasswordResetService struct {
	requestFn func(ctx context.Context, email string, meta models.RequestMeta) (models.Outcome, error)
	redeemFn  func(ctx context.Context, tokenValue, newPassword, confirmPassword string) (models.Outcome, error)
}

func (m *mockPasswordResetService) Request(ctx context.Context, email string, meta models.RequestMeta) (models.Outcome, error) {
	return m.requestFn(ctx, email, meta)
}

func (m *mockPasswordResetService) Redeem(ctx context.Context, tokenValue, newPassword, confirmPassword string) (models.Outcome, error) {
	return m.redeemFn(ctx, tokenValue, newPassword, confirmPassword)
}

type mockTokenService struct {
	issueFn       func(ctx context.Context, userID int64, purpose models.TokenPurpose) (models.VerificationToken, error)
	checkFn       func(ctx context.Context, tokenValue string, purpose models.TokenPurpose) (int64, error)
	redeemFn      func(ctx context.Context, tokenValue string, purpose models.TokenPurpose) (int64, error)
	redeemResetFn func(ctx context.Context, tokenValue, passwordHash string) (int64, error)
	issueOTPFn    func(ctx context.Context, userID int64) (models.OneTimeCode, error)
	verifyOTPFn   func(ctx context.Context, userID int64, code string) error
}

func (m *mockTokenService) Issue(ctx context.Context, userID int64, purpose models.TokenPurpose) (models.VerificationToken, error) {
	return m.issueFn(ctx, userID, purpose)
}

func (m *mockTokenService) Check(ctx context.Context, tokenValue string, purpose models.TokenPurpose) (int64, error) {
	return m.checkFn(ctx, tokenValue, purpose)
}

func (m *mockTokenService) Redeem(ctx context.Context, tokenValue string, purpose models.TokenPurpose) (int64, error) {
	return m.redeemFn(ctx, tokenValue, purpose)
}

func (m *mockTokenService) RedeemForPasswordChange(ctx context.Context, tokenValue, passwordHash string) (int64, error) {
	return m.redeemResetFn(ctx, tokenValue, passwordHash)
}

func (m *mockTokenService) IssueOTP(ctx context.Context, userID int64) (models.OneTimeCode, error) {
	return m.issueOTPFn(ctx, userID)
}

func (m *mockTokenService) VerifyOTP(ctx context.Context, userID int64, code string) error {
	return m.verifyOTPFn(ctx, userID, code)
}

type mockAdminService struct {
	unlockUserFn   func(ctx context.Context, userID int64) error
	listAttemptsFn func(ctx context.Context, scope models.AttemptScope, ip string, since time.Time, limit uint64) ([]models.Attempt, error)
}

func (m *mockAdminService) UnlockUser(ctx context.Context, userID int64) error {
	return m.unlockUserFn(ctx, userID)
}

func (m *mockAdminService) ListAttempts(ctx context.Context, scope models.AttemptScope, ip string, since time.Time, limit uint64) ([]models.Attempt, error) {
	return m.listAttemptsFn(ctx, scope, ip, since, limit)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// testEnv bundles a Handler with the real session plumbing backing it: an
// in-memory store behind the production manager and cookie codec.
type testEnv struct {
	handler  *Handler
	router   http.Handler
	sessions session.Manager
	codec    *session.CookieCodec
}

func newTestEnv(t *testing.T, services *service.Services) *testEnv {
	t.Helper()

	codec := session.NewCookieCodec(config.Session{
		TTL:        time.Hour,
		CookieName: "tp_session",
		SignKey:    "test-sign-key",
		Issuer:     "tillpoint-accounts",
	})
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, logger.Nop())

	build := models.NewAppBuildInfo("v1.2.3", "2026-01-02", "abc1234")
	h := NewHandler(services, sessions, codec, build, nil, logger.Nop())

	return &testEnv{
		handler:  h,
		router:   h.Init(),
		sessions: sessions,
		codec:    codec,
	}
}

// seedSession stores data and returns a request cookie naming it.
func (e *testEnv) seedSession(t *testing.T, data *models.SessionData) (*http.Cookie, string) {
	t.Helper()

	sid, err := e.sessions.Create(context.Background(), data)
	require.NoError(t, err)

	value, err := e.codec.Encode(sid)
	require.NoError(t, err)

	return &http.Cookie{Name: "tp_session", Value: value}, sid
}

// sessionFromResponse follows the Set-Cookie header back to the stored record.
func (e *testEnv) sessionFromResponse(t *testing.T, rec *httptest.ResponseRecorder) (string, *models.SessionData) {
	t.Helper()

	var sid string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "tp_session" && cookie.Value != "" {
			decoded, err := e.codec.Decode(cookie.Value)
			require.NoError(t, err)
			sid = decoded
		}
	}
	require.NotEmpty(t, sid, "no session cookie was set")

	data, err := e.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	return sid, data
}

// postForm performs a form POST against the router.
func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
