package dbhelper

import (
	"context"
	"database/sql"

	"github.com/ray-remotestate/foodie/database"
)

const OrderCounter = "order_number"

// Sequence is a named counter row shared by every instance on the same database.
type Sequence struct {
	DB   *sql.DB
	Name string
}

func (s Sequence) Next(ctx context.Context) (int64, error) {
	var value int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, s.Name).Scan(&value)
	return value, database.Classify(err)
}
