package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// WithTransaction handles a database transaction and executes the given operation
func WithTransaction(db *sql.DB, ctx context.Context, operation func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p) // re-throw panic after Rollback
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "error while rolling back transaction", "error", rbErr)
			}
		} else {
			err = tx.Commit()
		}
	}()

	err = operation(tx)
	return err
}
