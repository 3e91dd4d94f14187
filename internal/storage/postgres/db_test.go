package postgres

import (
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/keteik/simple-inventory-management-system/internal/transaction"
)

func TestClassify(t *testing.T) {
	plain := errors.New("plain")

	tests := []struct {
		name    string
		err     error
		aborted bool
	}{
		{name: "Serialization", err: &pgconn.PgError{Code: "40001"}, aborted: true},
		{name: "Deadlock", err: fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), aborted: true},
		{name: "LockTimeout", err: &pgconn.PgError{Code: "55P03"}, aborted: true},
		{name: "StatementTimeout", err: &pgconn.PgError{Code: "57014"}, aborted: true},
		{name: "UniqueViolation", err: &pgconn.PgError{Code: "23505"}},
		{name: "Plain", err: plain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.aborted, transaction.IsAborted(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, classify(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("x: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isUniqueViolation(errors.New("x")))
}
