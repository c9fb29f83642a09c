// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/models"
)

// tokenValueBytes sizes the random token payload. 32 bytes doubles the
// 128-bit unguessability floor and still yields a URL-safe 43-char value.
const tokenValueBytes = 32

// tokenService implements [TokenService] over the token repository.
//
// The raw token value exists only in the return value and the outbound
// mail; the store keeps a digest. Expiry is lazy: nothing sweeps expired
// rows, redemption just refuses them.
type tokenService struct {
	tokens store.TokenRepository

	otpTTL   time.Duration
	emailTTL time.Duration
	resetTTL time.Duration

	now    func() time.Time
	logger *logger.Logger
}

// NewTokenService constructs a [TokenService] with TTLs taken from cfg.
func NewTokenService(tokens store.TokenRepository, cfg config.Security, logger *logger.Logger) TokenService {
	return &tokenService{
		tokens:   tokens,
		otpTTL:   cfg.OTPTTL,
		emailTTL: cfg.EmailTokenTTL,
		resetTTL: cfg.ResetTokenTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Issue mints a fresh token for the (user, purpose) pair, superseding any
// prior live one. The returned Token field carries the raw value; it is
// never recoverable afterwards.
func (s *tokenService) Issue(ctx context.Context, userID int64, purpose models.TokenPurpose) (models.VerificationToken, error) {
	log := logger.FromContext(ctx)

	value, err := randomTokenValue()
	if err != nil {
		log.Err(err).Str("func", "*tokenService.Issue").Msg("error: token generation failed")
		return models.VerificationToken{}, fmt.Errorf("token generation: %w", err)
	}

	now := s.now()
	ttl := s.emailTTL
	if purpose == models.PurposePasswordReset {
		ttl = s.resetTTL
	}

	token, err := s.tokens.CreateToken(ctx, models.VerificationToken{
		UserID:    userID,
		Token:     value,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return models.VerificationToken{}, fmt.Errorf("token persist: %w", err)
	}
	token.Token = value

	return token, nil
}

// Check validates the presented value without consuming it. Used to gate
// the set-new-password form; single use is still enforced by Redeem alone.
func (s *tokenService) Check(ctx context.Context, tokenValue string, purpose models.TokenPurpose) (int64, error) {
	if tokenValue == "" {
		return 0, store.ErrTokenInvalid
	}
	return s.tokens.LookupToken(ctx, tokenValue, purpose, s.now())
}

// Redeem consumes the presented value for the purpose and returns the bound
// user id. Unknown, expired, consumed, and wrong-purpose values all come
// back as [store.ErrTokenInvalid]; callers must not distinguish them to the
// end user.
func (s *tokenService) Redeem(ctx context.Context, tokenValue string, purpose models.TokenPurpose) (int64, error) {
	if tokenValue == "" {
		return 0, store.ErrTokenInvalid
	}
	return s.tokens.ConsumeToken(ctx, tokenValue, purpose, s.now())
}

// RedeemForPasswordChange burns the reset token and installs passwordHash
// in the same transaction. A failure after the consume rolls the token
// back, so the link stays usable for a retry.
func (s *tokenService) RedeemForPasswordChange(ctx context.Context, tokenValue, passwordHash string) (int64, error) {
	if tokenValue == "" {
		return 0, store.ErrTokenInvalid
	}
	return s.tokens.ResetPassword(ctx, tokenValue, models.PurposePasswordReset, passwordHash, s.now())
}

// IssueOTP mints a fresh 6-digit code for the user, superseding any prior
// live one so only the newest code verifies.
func (s *tokenService) IssueOTP(ctx context.Context, userID int64) (models.OneTimeCode, error) {
	log := logger.FromContext(ctx)

	code, err := randomOTP()
	if err != nil {
		log.Err(err).Str("func", "*tokenService.IssueOTP").Msg("error: otp generation failed")
		return models.OneTimeCode{}, fmt.Errorf("otp generation: %w", err)
	}

	now := s.now()
	otp, err := s.tokens.CreateOTP(ctx, models.OneTimeCode{
		UserID:    userID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.otpTTL),
	})
	if err != nil {
		return models.OneTimeCode{}, fmt.Errorf("otp persist: %w", err)
	}

	return otp, nil
}

// VerifyOTP consumes the user's live code when it matches exactly.
func (s *tokenService) VerifyOTP(ctx context.Context, userID int64, code string) error {
	return s.tokens.ConsumeOTP(ctx, userID, code, s.now())
}

// randomTokenValue draws tokenValueBytes from the CSPRNG, URL-safe encoded.
func randomTokenValue() (string, error) {
	buf := make([]byte, tokenValueBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// randomOTP draws a uniform 6-digit code. Leading zeros are preserved: the
// code is a string, never an integer.
func randomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
