// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/mock"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/models"
)

type resetMocks struct {
	users    *mock.MockUserRepository
	attempts *mock.MockAttemptRepository
	tokens   *mock.MockTokenService
	limiter  *mock.MockRateLimiter
	sender   *mock.MockSender
}

func newTestResetService(t *testing.T, ctrl *gomock.Controller, now time.Time) (*passwordResetService, resetMocks) {
	t.Helper()
	m := resetMocks{
		users:    mock.NewMockUserRepository(ctrl),
		attempts: mock.NewMockAttemptRepository(ctrl),
		tokens:   mock.NewMockTokenService(ctrl),
		limiter:  mock.NewMockRateLimiter(ctrl),
		sender:   mock.NewMockSender(ctrl),
	}
	svc := &passwordResetService{
		users:      m.users,
		attempts:   m.attempts,
		tokens:     m.tokens,
		limiter:    m.limiter,
		sender:     m.sender,
		baseURL:    "https://pos.example.com",
		bcryptCost: bcrypt.MinCost,
		now:        func() time.Time { return now },
		logger:     logger.Nop(),
	}
	return svc, m
}

func TestResetRequest_KnownAndUnknownEmailIdenticalConfirmation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Now()
	svc, m := newTestResetService(t, ctrl, now)

	// Unknown email branch.
	m.limiter.EXPECT().Allow(gomock.Any(), models.ScopePasswordReset, testMeta.IP).Return(true, nil)
	m.users.EXPECT().FindByEmail(gomock.Any(), "ghost@x.com").Return(models.User{}, store.ErrNoUserWasFound)
	m.attempts.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	unknown, err := svc.Request(context.Background(), "ghost@x.com", testMeta)
	require.NoError(t, err)

	// Known email branch: token issued, link mailed.
	m.limiter.EXPECT().Allow(gomock.Any(), models.ScopePasswordReset, testMeta.IP).Return(true, nil)
	m.users.EXPECT().FindByEmail(gomock.Any(), "j@x.com").
		Return(models.User{UserID: 7, Username: "john_doe", Email: "j@x.com"}, nil)
	m.attempts.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	m.tokens.EXPECT().Issue(gomock.Any(), int64(7), models.PurposePasswordReset).
		Return(models.VerificationToken{Token: "raw-reset-token"}, nil)
	m.sender.EXPECT().Send(gomock.Any(), "j@x.com", gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _, _, body string) error {
			assert.Contains(t, body, "https://pos.example.com/reset/redeem?token=raw-reset-token")
			return nil
		})

	known, err := svc.Request(context.Background(), "j@x.com", testMeta)
	require.NoError(t, err)

	// Byte-identical confirmation, both branches.
	assert.Equal(t, unknown, known)
	success, ok := known.(models.Success)
	require.True(t, ok)
	assert.Equal(t, MsgResetConfirmation, success.Notice)
}

func TestResetRequest_InvalidEmailSyntax(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _ := newTestResetService(t, ctrl, time.Now())

	out, err := svc.Request(context.Background(), "not-an-email", testMeta)
	require.NoError(t, err)
	assert.Equal(t, models.Rejected{Reason: MsgEmailInvalid, Severity: models.SeverityDanger}, out)
}

func TestResetRequest_RateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newTestResetService(t, ctrl, time.Now())
	m.limiter.EXPECT().Allow(gomock.Any(), models.ScopePasswordReset, testMeta.IP).Return(false, nil)

	out, err := svc.Request(context.Background(), "j@x.com", testMeta)
	require.NoError(t, err)
	assert.Equal(t, models.Rejected{Reason: MsgTooManyAttempts, Severity: models.SeverityWarning}, out)
}

func TestResetRedeem_InvalidTokenShortCircuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newTestResetService(t, ctrl, time.Now())

	// A hopeless password rides along; the token verdict comes first.
	m.tokens.EXPECT().Check(gomock.Any(), "stale", models.PurposePasswordReset).
		Return(int64(0), store.ErrTokenInvalid)

	out, err := svc.Redeem(context.Background(), "stale", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, models.Rejected{Reason: MsgResetTokenInvalid, Severity: models.SeverityDanger}, out)
}

func TestResetRedeem_WeakPasswordKeepsTokenLive(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newTestResetService(t, ctrl, time.Now())

	// Check only; no Redeem expectation means the token survives for a
	// corrected resubmission.
	m.tokens.EXPECT().Check(gomock.Any(), "raw-reset-token", models.PurposePasswordReset).
		Return(int64(7), nil)

	out, err := svc.Redeem(context.Background(), "raw-reset-token", "abc12", "abc12")
	require.NoError(t, err)
	assert.Equal(t, models.Rejected{Reason: MsgResetPolicy, Severity: models.SeverityDanger}, out)
}

func TestResetRedeem_ConfirmationMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newTestResetService(t, ctrl, time.Now())

	m.tokens.EXPECT().Check(gomock.Any(), "raw-reset-token", models.PurposePasswordReset).
		Return(int64(7), nil)

	out, err := svc.Redeem(context.Background(), "raw-reset-token", "abc123", "abc124")
	require.NoError(t, err)
	assert.Equal(t, models.Rejected{Reason: MsgPasswordMatch, Severity: models.SeverityDanger}, out)
}

func TestResetRedeem_HappyPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newTestResetService(t, ctrl, time.Now())

	m.tokens.EXPECT().Check(gomock.Any(), "raw-reset-token", models.PurposePasswordReset).
		Return(int64(7), nil)
	m.tokens.EXPECT().RedeemForPasswordChange(gomock.Any(), "raw-reset-token", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, hash string) (int64, error) {
			// Re-hashed, never the plaintext.
			assert.NotEqual(t, "abc123", hash)
			assert.True(t, CheckPassword(hash, "abc123"))
			return 7, nil
		})
	m.users.EXPECT().FindByID(gomock.Any(), int64(7)).
		Return(models.User{UserID: 7, Username: "john_doe", Email: "j@x.com"}, nil)
	m.sender.EXPECT().Send(gomock.Any(), "j@x.com", gomock.Any(), gomock.Any()).Return(nil)

	out, err := svc.Redeem(context.Background(), "raw-reset-token", "abc123", "abc123")
	require.NoError(t, err)

	success, ok := out.(models.Success)
	require.True(t, ok)
	assert.Equal(t, MsgPasswordChanged, success.Notice)
	assert.Equal(t, "/login", success.Redirect)
}

func TestResetRedeem_RaceLoserGetsInvalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newTestResetService(t, ctrl, time.Now())

	// The peek still saw a live token, but another request consumed it
	// between check and redeem. The atomic consume decides.
	m.tokens.EXPECT().Check(gomock.Any(), "raw-reset-token", models.PurposePasswordReset).
		Return(int64(7), nil)
	m.tokens.EXPECT().RedeemForPasswordChange(gomock.Any(), "raw-reset-token", gomock.Any()).
		Return(int64(0), store.ErrTokenInvalid)

	out, err := svc.Redeem(context.Background(), "raw-reset-token", "abc123", "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.Rejected{Reason: MsgResetTokenInvalid, Severity: models.SeverityDanger}, out)
}

func TestResetRedeem_DependencyFailureSurfacesAsError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newTestResetService(t, ctrl, time.Now())

	// Consume and install are one call; a storage failure there surfaces
	// as an error, never as a burned-token outcome.
	m.tokens.EXPECT().Check(gomock.Any(), "raw-reset-token", models.PurposePasswordReset).
		Return(int64(7), nil)
	m.tokens.EXPECT().RedeemForPasswordChange(gomock.Any(), "raw-reset-token", gomock.Any()).
		Return(int64(0), errors.New("connection reset"))

	_, err := svc.Redeem(context.Background(), "raw-reset-token", "abc123", "abc123")
	require.Error(t, err)
}
