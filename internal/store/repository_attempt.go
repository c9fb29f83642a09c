package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/models"
)

// attemptRepository is the SQL-backed implementation of [AttemptRepository].
// The ledger is append-only: this repository exposes no update or delete.
type attemptRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewAttemptRepository constructs an [AttemptRepository] backed by the
// provided database connection and logger.
func NewAttemptRepository(db *DB, logger *logger.Logger) AttemptRepository {
	logger.Debug().Msg("creating attempt repository")
	return &attemptRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends one attempt row.
func (r *attemptRepository) Insert(ctx context.Context, attempt models.Attempt) error {
	log := logger.FromContext(ctx)

	_, err := r.db.ExecContext(ctx, insertAttempt,
		attempt.Identifier, string(attempt.Scope), string(attempt.Kind),
		attempt.IP, attempt.UserAgent, attempt.Success, attempt.CreatedAt)
	if err != nil {
		log.Err(err).Str("func", "*attemptRepository.Insert").Msg("error: attempt insert failed")
		r.db.warnIfRetryable(ctx, err)
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// CountSince counts ledger rows for the scope and source IP within the
// trailing window starting at since.
func (r *attemptRepository) CountSince(ctx context.Context, scope models.AttemptScope, ip string, since time.Time) (int, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildCountAttemptsQuery(scope, ip, since)
	if err != nil {
		return 0, fmt.Errorf("error building sql query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Err(err).Str("func", "*attemptRepository.CountSince").Msg("error: window count failed")
		r.db.warnIfRetryable(ctx, err)
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}

	return count, nil
}

// ListRecent returns up to limit ledger rows matching the optional filters,
// newest first.
func (r *attemptRepository) ListRecent(ctx context.Context, scope models.AttemptScope, ip string, since time.Time, limit uint64) ([]models.Attempt, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListAttemptsQuery(scope, ip, since, limit)
	if err != nil {
		return nil, fmt.Errorf("error building sql query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*attemptRepository.ListRecent").Msg("error: ledger query failed")
		r.db.warnIfRetryable(ctx, err)
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer rows.Close()

	attempts := make([]models.Attempt, 0, limit)
	for rows.Next() {
		var a models.Attempt
		if err := rows.Scan(&a.ID, &a.Identifier, &a.Scope, &a.Kind, &a.IP,
			&a.UserAgent, &a.Success, &a.CreatedAt); err != nil {
			log.Err(err).Str("func", "*attemptRepository.ListRecent").Msg("error: scanning ledger row failed")
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan attempt rows: %w", err)
	}

	return attempts, nil
}
