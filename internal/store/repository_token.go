package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/models"
)

// tokenRepository is the SQL-backed implementation of [TokenRepository].
//
// Raw token values never reach the database: rows hold a SHA-256 digest, so
// a leaked table cannot be replayed. Consumption is one conditional UPDATE
// whose result row exists only for the winning caller, which is what closes
// the concurrent-redemption race.
type tokenRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewTokenRepository constructs a [TokenRepository] backed by the provided
// database connection and logger.
func NewTokenRepository(db *DB, logger *logger.Logger) TokenRepository {
	logger.Debug().Msg("creating token repository")
	return &tokenRepository{
		db:     db,
		logger: logger,
	}
}

// CreateToken supersedes any unconsumed token for the same (user, purpose)
// pair, then inserts the new row. Both statements run in one transaction so
// at most one live token per pair can ever be observed.
func (r *tokenRepository) CreateToken(ctx context.Context, token models.VerificationToken) (models.VerificationToken, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateToken").Msg("error: begin transaction failed")
		return models.VerificationToken{}, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, supersedeTokens, token.UserID, string(token.Purpose)); err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateToken").Msg("error: superseding prior tokens failed")
		r.db.warnIfRetryable(ctx, err)
		return models.VerificationToken{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	row := tx.QueryRowContext(ctx, insertToken,
		token.UserID, hashTokenValue(token.Token), string(token.Purpose),
		token.CreatedAt, token.ExpiresAt)
	if err := row.Scan(&token.ID); err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateToken").Msg("error: token insert failed")
		r.db.warnIfRetryable(ctx, err)
		return models.VerificationToken{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateToken").Msg("error: commit failed")
		return models.VerificationToken{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return token, nil
}

// LookupToken reports the user bound to a live token without consuming it.
// Used to gate password input before the later atomic consume; the consume
// remains the only authority on single use.
func (r *tokenRepository) LookupToken(ctx context.Context, tokenValue string, purpose models.TokenPurpose, now time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	var userID int64
	row := r.db.QueryRowContext(ctx, lookupToken, hashTokenValue(tokenValue), string(purpose), now)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenInvalid
		}
		log.Err(err).Str("func", "*tokenRepository.LookupToken").Msg("error: token lookup failed")
		r.db.warnIfRetryable(ctx, err)
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}

	return userID, nil
}

// ConsumeToken marks the matching unconsumed, unexpired token consumed and
// returns the bound user id. Every mismatch — unknown value, wrong purpose,
// expired, already consumed — collapses into [ErrTokenInvalid].
func (r *tokenRepository) ConsumeToken(ctx context.Context, tokenValue string, purpose models.TokenPurpose, now time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	var userID int64
	row := r.db.QueryRowContext(ctx, consumeToken, hashTokenValue(tokenValue), string(purpose), now)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenInvalid
		}
		log.Err(err).Str("func", "*tokenRepository.ConsumeToken").Msg("error: token consume failed")
		r.db.warnIfRetryable(ctx, err)
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}

	return userID, nil
}

// ResetPassword consumes the matching reset token and installs the new
// password hash for the bound user inside one transaction. A failure on the
// hash update rolls the consume back, so the token is never burned with the
// password unchanged.
func (r *tokenRepository) ResetPassword(ctx context.Context, tokenValue string, purpose models.TokenPurpose, passwordHash string, now time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*tokenRepository.ResetPassword").Msg("error: begin transaction failed")
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var userID int64
	row := tx.QueryRowContext(ctx, consumeToken, hashTokenValue(tokenValue), string(purpose), now)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenInvalid
		}
		log.Err(err).Str("func", "*tokenRepository.ResetPassword").Msg("error: token consume failed")
		r.db.warnIfRetryable(ctx, err)
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}

	if _, err := tx.ExecContext(ctx, updatePasswordHash, passwordHash, userID); err != nil {
		log.Err(err).Str("func", "*tokenRepository.ResetPassword").Msg("error: password update failed")
		r.db.warnIfRetryable(ctx, err)
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		log.Err(err).Str("func", "*tokenRepository.ResetPassword").Msg("error: commit failed")
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}

	return userID, nil
}

// CreateOTP supersedes any unconsumed code for the user and inserts the new
// one, mirroring CreateToken. Codes are stored as issued: six digits carry no
// secret worth hashing at rest against their 10-minute lifetime, and exact
// string matching in SQL keeps leading zeros significant.
func (r *tokenRepository) CreateOTP(ctx context.Context, otp models.OneTimeCode) (models.OneTimeCode, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateOTP").Msg("error: begin transaction failed")
		return models.OneTimeCode{}, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, supersedeOTPs, otp.UserID); err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateOTP").Msg("error: superseding prior codes failed")
		r.db.warnIfRetryable(ctx, err)
		return models.OneTimeCode{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	row := tx.QueryRowContext(ctx, insertOTP, otp.UserID, otp.Code, otp.CreatedAt, otp.ExpiresAt)
	if err := row.Scan(&otp.ID); err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateOTP").Msg("error: otp insert failed")
		r.db.warnIfRetryable(ctx, err)
		return models.OneTimeCode{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateOTP").Msg("error: commit failed")
		return models.OneTimeCode{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return otp, nil
}

// ConsumeOTP marks the user's matching unconsumed, unexpired code consumed.
// Returns [ErrTokenInvalid] for every mismatch.
func (r *tokenRepository) ConsumeOTP(ctx context.Context, userID int64, code string, now time.Time) error {
	log := logger.FromContext(ctx)

	var id int64
	row := r.db.QueryRowContext(ctx, consumeOTP, userID, code, now)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenInvalid
		}
		log.Err(err).Str("func", "*tokenRepository.ConsumeOTP").Msg("error: otp consume failed")
		r.db.warnIfRetryable(ctx, err)
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// PurgeExpired deletes token and code rows whose expiry lies before cutoff.
// Redemption already treats them as dead: this only reclaims storage, so the
// cutoff can trail the clock by any retention the janitor prefers.
func (r *tokenRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	var purged int64
	for _, query := range []string{purgeTokens, purgeOTPs} {
		res, err := r.db.ExecContext(ctx, query, cutoff)
		if err != nil {
			log.Err(err).Str("func", "*tokenRepository.PurgeExpired").Msg("error: purge failed")
			r.db.warnIfRetryable(ctx, err)
			return purged, fmt.Errorf("unexpected DB error: %w", err)
		}
		if rows, err := res.RowsAffected(); err == nil {
			purged += rows
		}
	}

	return purged, nil
}

// hashTokenValue computes the SHA-256 digest stored in place of the raw
// token value.
func hashTokenValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
