package database

import (
	"context"
	"database/sql"
	"fmt"

	"recurring_ledger_scheduler/internal/domain/execution"

	"github.com/google/uuid"
)

// Custom errors specific to the execution record repository.
var ErrExecutionNotFound = fmt.Errorf("execution record not found")

const executionColumns = `id, rule_id, scheduled_date, executed_date, status,
	linked_transaction_id, error_message, retry_count, created_at, updated_at`

type PostgresExecutionRepository struct {
	db *sql.DB
}

func NewPostgresExecutionRepository(db *sql.DB) *PostgresExecutionRepository {
	return &PostgresExecutionRepository{db: db}
}

func (r *PostgresExecutionRepository) Create(ctx context.Context, rec *execution.Record) error {
	query := `INSERT INTO execution_records (id, rule_id, scheduled_date, executed_date, status,
	               linked_transaction_id, error_message, retry_count)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	           RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.RuleID, rec.ScheduledDate, rec.ExecutedDate, rec.Status,
		rec.LinkedTransactionID, rec.ErrorMessage, rec.RetryCount,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating execution record: %w", err)
	}
	return nil
}

func (r *PostgresExecutionRepository) Update(ctx context.Context, rec *execution.Record) error {
	query := `UPDATE execution_records
	           SET executed_date = $1, status = $2, linked_transaction_id = $3,
	               error_message = $4, retry_count = $5, updated_at = NOW()
	           WHERE id = $6
	           RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rec.ExecutedDate, rec.Status, rec.LinkedTransactionID,
		rec.ErrorMessage, rec.RetryCount, rec.ID,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrExecutionNotFound
		}
		return fmt.Errorf("error updating execution record: %w", err)
	}
	return nil
}

func (r *PostgresExecutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*execution.Record, error) {
	query := `SELECT ` + executionColumns + ` FROM execution_records WHERE id = $1`
	rec := execution.Record{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.RuleID, &rec.ScheduledDate, &rec.ExecutedDate, &rec.Status,
		&rec.LinkedTransactionID, &rec.ErrorMessage, &rec.RetryCount, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("error getting execution record by ID: %w", err)
	}
	return &rec, nil
}

func (r *PostgresExecutionRepository) ListFailed(ctx context.Context) ([]*execution.Record, error) {
	query := `SELECT ` + executionColumns + ` FROM execution_records
	           WHERE status = $1 ORDER BY scheduled_date ASC`
	rows, err := r.db.QueryContext(ctx, query, execution.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("error querying failed execution records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *PostgresExecutionRepository) ListByRule(ctx context.Context, ruleID uuid.UUID) ([]*execution.Record, error) {
	query := `SELECT ` + executionColumns + ` FROM execution_records
	           WHERE rule_id = $1 ORDER BY scheduled_date ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("error querying execution records by rule: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]*execution.Record, error) {
	records := make([]*execution.Record, 0)
	for rows.Next() {
		rec := execution.Record{}
		if err := rows.Scan(
			&rec.ID, &rec.RuleID, &rec.ScheduledDate, &rec.ExecutedDate, &rec.Status,
			&rec.LinkedTransactionID, &rec.ErrorMessage, &rec.RetryCount, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning execution record row: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution record rows: %w", err)
	}
	return records, nil
}
