package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWriteErr(t *testing.T) {
	t.Run("serialization failure maps to write conflict", func(t *testing.T) {
		err := writeErr(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
		assert.ErrorIs(t, err, ErrWriteConflict)
	})

	t.Run("deadlock maps to write conflict", func(t *testing.T) {
		err := writeErr(&pgconn.PgError{Code: "40P01", Message: "deadlock detected"})
		assert.ErrorIs(t, err, ErrWriteConflict)
	})

	t.Run("wrapped server errors are still detected", func(t *testing.T) {
		inner := fmt.Errorf("exec failed: %w", &pgconn.PgError{Code: "40001"})
		assert.ErrorIs(t, writeErr(inner), ErrWriteConflict)
	})

	t.Run("other errors pass through unchanged", func(t *testing.T) {
		plain := errors.New("connection refused")
		assert.Equal(t, plain, writeErr(plain))

		notFound := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
		assert.NotErrorIs(t, writeErr(notFound), ErrWriteConflict)
	})
}
