package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"recurring_ledger_scheduler/internal/domain/ledger"

	"github.com/google/uuid"
)

// PostgresLedger records confirmed occurrences in the application's own
// 'transactions' table. It satisfies the ledger.Ledger collaborator the
// execution engine depends on.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) CreateTransaction(ctx context.Context, spec ledger.TransactionSpec) (*ledger.TransactionRef, error) {
	metadata, err := json.Marshal(spec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("error encoding transaction metadata: %w", err)
	}

	ref := &ledger.TransactionRef{ID: uuid.New()}
	query := `INSERT INTO transactions (id, household_id, description, amount, currency,
	               source_account_id, transfer_account_id, category_id, merchant,
	               transaction_date, metadata)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	           RETURNING created_at`
	err = l.db.QueryRowContext(ctx, query,
		ref.ID, spec.HouseholdID, spec.Description, spec.Amount, spec.Currency,
		spec.SourceAccountID, spec.TransferAccountID, spec.CategoryID, spec.Merchant,
		spec.Date, metadata,
	).Scan(&ref.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating ledger transaction: %w", err)
	}
	return ref, nil
}
