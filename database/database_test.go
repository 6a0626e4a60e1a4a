package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", fmt.Errorf("get order: %w", sql.ErrNoRows), apperr.ErrNotFound},
		{"serialization failure", &pq.Error{Code: "40001"}, apperr.ErrConflict},
		{"deadlock", &pq.Error{Code: "40P01"}, apperr.ErrConflict},
		{"unique violation", &pq.Error{Code: "23505"}, apperr.ErrDuplicate},
		{"check violation", &pq.Error{Code: "23514", Message: "orders_total_balanced"}, apperr.ErrValidation},
		{"numeric overflow", &pq.Error{Code: "22003", Message: "numeric field overflow"}, apperr.ErrValidation},
		{"connection failure", &pq.Error{Code: "08006"}, apperr.ErrTransient},
		{"admin shutdown", &pq.Error{Code: "57P01"}, apperr.ErrTransient},
		{"deadline", context.DeadlineExceeded, apperr.ErrTransient},
		{"bad conn", driver.ErrBadConn, apperr.ErrTransient},
		{"net timeout", timeoutErr{}, apperr.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify(tt.err), tt.want)
		})
	}
}

func TestClassifyPassesThrough(t *testing.T) {
	assert.NoError(t, Classify(nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, Classify(plain))

	syntax := &pq.Error{Code: "42601"}
	assert.Equal(t, error(syntax), Classify(syntax))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	assert.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_init.up.sql")
	assert.Contains(t, names, "000001_init.down.sql")
	assert.Contains(t, names, "000002_order_contact_info.up.sql")
	assert.Contains(t, names, "000002_order_contact_info.down.sql")
}
