package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jimmygitz3/final-project/internal/model"
)

// JournalRepository keeps every M-Pesa callback delivery in Postgres, raw
// payload included, whether or not it matched a payment.
type JournalRepository struct {
	DB *sqlx.DB
}

func NewJournalRepository(db *sqlx.DB) *JournalRepository {
	return &JournalRepository{DB: db}
}

// EnsureSchema creates the mpesa_callbacks table if it is missing.
func (r *JournalRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS mpesa_callbacks (
			id                  BIGSERIAL PRIMARY KEY,
			checkout_request_id TEXT NOT NULL DEFAULT '',
			merchant_request_id TEXT NOT NULL DEFAULT '',
			result_code         INTEGER NOT NULL DEFAULT 0,
			result_desc         TEXT NOT NULL DEFAULT '',
			success             BOOLEAN NOT NULL DEFAULT FALSE,
			payment_id          TEXT NOT NULL DEFAULT '',
			outcome             TEXT NOT NULL DEFAULT '',
			processing_error    TEXT NOT NULL DEFAULT '',
			payload             TEXT NOT NULL DEFAULT '',
			received_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS mpesa_callbacks_checkout_idx ON mpesa_callbacks (checkout_request_id);
	`)
	if err != nil {
		return fmt.Errorf("JournalRepository.EnsureSchema: %w", err)
	}
	return nil
}

// Record appends one callback entry and fills in its id.
func (r *JournalRepository) Record(ctx context.Context, e *model.CallbackEntry) error {
	rows, err := r.DB.NamedQueryContext(ctx, `
		INSERT INTO mpesa_callbacks
			(checkout_request_id, merchant_request_id, result_code, result_desc, success,
			 payment_id, outcome, processing_error, payload, received_at)
		VALUES
			(:checkout_request_id, :merchant_request_id, :result_code, :result_desc, :success,
			 :payment_id, :outcome, :processing_error, :payload, :received_at)
		RETURNING id
	`, e)
	if err != nil {
		return fmt.Errorf("JournalRepository.Record: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&e.ID); err != nil {
			return fmt.Errorf("JournalRepository.Record: %w", err)
		}
	}
	return rows.Err()
}
