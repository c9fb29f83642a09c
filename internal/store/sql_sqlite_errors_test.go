package store

import (
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestSQLiteClassify(t *testing.T) {
	c := NewSQLiteErrorClassifier()

	cases := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"nil", nil, NonRetryable},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, Retryable},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, Retryable},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, NonRetryable},
		{"foreign", errors.New("db network error"), NonRetryable},
	}

	for _, tc := range cases {
		if got := c.Classify(tc.err); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
