package store

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// SQLiteErrorClassifier implements [ErrorClassificator] for the sqlite3
// driver used in development and test environments.
type SQLiteErrorClassifier struct{}

// NewSQLiteErrorClassifier constructs a [SQLiteErrorClassifier] ready for use.
func NewSQLiteErrorClassifier() *SQLiteErrorClassifier {
	return &SQLiteErrorClassifier{}
}

// Classify implements [ErrorClassificator]. SQLITE_BUSY and SQLITE_LOCKED
// report lock contention on the single database file and may succeed on a
// retry; everything else, constraint violations included, is final.
func (c *SQLiteErrorClassifier) Classify(err error) ErrorClassification {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return Retryable
		}
	}

	return NonRetryable
}

// sqliteUniqueTarget maps a sqlite unique violation to the sentinel for the
// column that collided. The driver reports no constraint name, but the error
// text names the column as "UNIQUE constraint failed: table.column".
// Returns nil when err is not a unique violation.
func sqliteUniqueTarget(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return nil
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return ErrUsernameAlreadyExists
	case strings.Contains(msg, "users.email"):
		return ErrEmailAlreadyExists
	case strings.Contains(msg, "users.user_code"):
		return ErrUserCodeAlreadyExists
	default:
		return ErrUsernameAlreadyExists
	}
}
