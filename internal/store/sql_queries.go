package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tillpoint/accounts/models"
)

// Every statement in this file is fixed and fully parameterized. Conditional
// behavior (lock-on-threshold, consume-if-unconsumed) lives inside single
// statements so concurrent requests cannot interleave, and no query text is
// ever assembled from string fragments.
const (
	createUser = `INSERT INTO users (user_code, username, email, password_hash, role_id, signup_state, created_at)
    VALUES ($1, $2, $3, $4, (SELECT id FROM roles WHERE name = $5), $6, $7)
    RETURNING id;`

	selectUserColumns = `SELECT u.id, u.user_code, u.username, u.email, u.password_hash,
        u.role_id, r.name, r.redirect_path, u.email_verified, u.signup_state,
        u.failed_login_attempts, u.account_locked, u.locked_until,
        u.last_login, u.login_count, u.created_at
    FROM users u
    JOIN roles r ON r.id = u.role_id`

	findUserByUsername = selectUserColumns + `
    WHERE u.username = $1;`

	findUserByEmail = selectUserColumns + `
    WHERE u.email = $1;`

	findUserByCode = selectUserColumns + `
    WHERE u.user_code = $1;`

	findUserByID = selectUserColumns + `
    WHERE u.id = $1;`

	// One atomic statement: the counter, the lock decision, and the lock
	// expiry all derive from the same pre-image of the row.
	recordLoginFailure = `UPDATE users
    SET failed_login_attempts = failed_login_attempts + 1,
        account_locked = (failed_login_attempts + 1 >= $1),
        locked_until = CASE WHEN failed_login_attempts + 1 >= $1 THEN $2 ELSE locked_until END
    WHERE id = $3
    RETURNING failed_login_attempts, account_locked;`

	recordLoginSuccess = `UPDATE users
    SET failed_login_attempts = 0,
        account_locked = FALSE,
        locked_until = NULL,
        last_login = $1,
        login_count = login_count + 1
    WHERE id = $2;`

	unlockUser = `UPDATE users
    SET failed_login_attempts = 0,
        account_locked = FALSE,
        locked_until = NULL
    WHERE id = $1;`

	advanceSignupState = `UPDATE users
    SET signup_state = $1
    WHERE id = $2 AND signup_state = $3;`

	completeSignup = `UPDATE users
    SET email_verified = TRUE, signup_state = $1
    WHERE id = $2 AND signup_state = $3;`

	markEmailVerified = `UPDATE users
    SET email_verified = TRUE
    WHERE id = $1;`

	updatePasswordHash = `UPDATE users
    SET password_hash = $1
    WHERE id = $2;`

	supersedeTokens = `UPDATE verification_tokens
    SET consumed = TRUE
    WHERE user_id = $1 AND purpose = $2 AND NOT consumed;`

	insertToken = `INSERT INTO verification_tokens (user_id, token, purpose, created_at, expires_at)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id;`

	lookupToken = `SELECT user_id FROM verification_tokens
    WHERE token = $1 AND purpose = $2 AND NOT consumed AND expires_at > $3;`

	// The row is returned only when this statement performed the consume,
	// which closes the concurrent-redemption race.
	consumeToken = `UPDATE verification_tokens
    SET consumed = TRUE
    WHERE token = $1 AND purpose = $2 AND NOT consumed AND expires_at > $3
    RETURNING user_id;`

	supersedeOTPs = `UPDATE otp_codes
    SET consumed = TRUE
    WHERE user_id = $1 AND NOT consumed;`

	insertOTP = `INSERT INTO otp_codes (user_id, code, created_at, expires_at)
    VALUES ($1, $2, $3, $4)
    RETURNING id;`

	consumeOTP = `UPDATE otp_codes
    SET consumed = TRUE
    WHERE user_id = $1 AND code = $2 AND NOT consumed AND expires_at > $3
    RETURNING id;`

	purgeTokens = `DELETE FROM verification_tokens
    WHERE expires_at < $1;`

	purgeOTPs = `DELETE FROM otp_codes
    WHERE expires_at < $1;`

	insertAttempt = `INSERT INTO login_attempts (identifier, scope, identifier_kind, ip, user_agent, success, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7);`
)

// buildCountAttemptsQuery builds the sliding-window ledger count for one
// (scope, ip) pair.
func buildCountAttemptsQuery(scope models.AttemptScope, ip string, since time.Time) (string, []any, error) {
	return sq.Select("COUNT(*)").
		From("login_attempts").
		Where(sq.Eq{"scope": string(scope)}).
		Where(sq.Eq{"ip": ip}).
		Where(sq.GtOrEq{"created_at": since}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// buildListAttemptsQuery builds the admin ledger listing. Scope and ip are
// optional filters; a zero since means no lower time bound.
func buildListAttemptsQuery(scope models.AttemptScope, ip string, since time.Time, limit uint64) (string, []any, error) {
	q := sq.Select("id", "identifier", "scope", "identifier_kind", "ip", "user_agent", "success", "created_at").
		From("login_attempts").
		OrderBy("created_at DESC").
		Limit(limit).
		PlaceholderFormat(sq.Dollar)

	if scope != "" {
		q = q.Where(sq.Eq{"scope": string(scope)})
	}
	if ip != "" {
		q = q.Where(sq.Eq{"ip": ip})
	}
	if !since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": since})
	}

	return q.ToSql()
}
