package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"recurring_ledger_scheduler/internal/domain/rule"

	"github.com/google/uuid"
)

// Custom errors specific to the rule repository.
var ErrRuleNotFound = fmt.Errorf("recurring rule not found")
var ErrRuleVersionConflict = fmt.Errorf("recurring rule version conflict")

const ruleColumns = `id, household_id, name, description, amount, currency,
	source_account_id, transfer_account_id, category_id, merchant,
	frequency, interval_value, start_date, end_date, next_execution_date,
	max_executions, execution_count, status, metadata, version,
	created_by, created_at, updated_at`

type PostgresRuleRepository struct {
	db *sql.DB
}

func NewPostgresRuleRepository(db *sql.DB) *PostgresRuleRepository {
	return &PostgresRuleRepository{db: db}
}

func (r *PostgresRuleRepository) Create(ctx context.Context, ru *rule.Rule) error {
	metadata, err := marshalMetadata(ru.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO recurring_rules (id, household_id, name, description, amount, currency,
	               source_account_id, transfer_account_id, category_id, merchant,
	               frequency, interval_value, start_date, end_date, next_execution_date,
	               max_executions, execution_count, status, metadata, version, created_by)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	           RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		ru.ID, ru.HouseholdID, ru.Name, ru.Description, ru.Amount, ru.Currency,
		ru.SourceAccountID, ru.TransferAccountID, ru.CategoryID, ru.Merchant,
		ru.Frequency, ru.IntervalValue, ru.StartDate, ru.EndDate, ru.NextExecutionDate,
		ru.MaxExecutions, ru.ExecutionCount, ru.Status, metadata, ru.Version, ru.CreatedBy,
	).Scan(&ru.CreatedAt, &ru.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating recurring rule: %w", err)
	}
	return nil
}

func (r *PostgresRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*rule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurring_rules WHERE id = $1`
	ru, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("error getting recurring rule by ID: %w", err)
	}
	return ru, nil
}

// Update persists all mutable fields with a compare-and-swap on version.
// A stale version means another execution claimed or modified the rule.
func (r *PostgresRuleRepository) Update(ctx context.Context, ru *rule.Rule) error {
	metadata, err := marshalMetadata(ru.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE recurring_rules
	           SET name = $1, description = $2, amount = $3, currency = $4,
	               source_account_id = $5, transfer_account_id = $6, category_id = $7, merchant = $8,
	               end_date = $9, next_execution_date = $10, max_executions = $11,
	               execution_count = $12, status = $13, metadata = $14,
	               version = version + 1, updated_at = NOW()
	           WHERE id = $15 AND version = $16
	           RETURNING version, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		ru.Name, ru.Description, ru.Amount, ru.Currency,
		ru.SourceAccountID, ru.TransferAccountID, ru.CategoryID, ru.Merchant,
		ru.EndDate, ru.NextExecutionDate, ru.MaxExecutions,
		ru.ExecutionCount, ru.Status, metadata,
		ru.ID, ru.Version,
	).Scan(&ru.Version, &ru.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return r.conflictOrNotFound(ctx, ru.ID)
		}
		return fmt.Errorf("error updating recurring rule: %w", err)
	}
	return nil
}

// Claim bumps the rule's version if and only if the caller holds the current
// one and the rule is still ACTIVE. At most one concurrent claimer wins; the
// others get ErrRuleVersionConflict.
func (r *PostgresRuleRepository) Claim(ctx context.Context, id uuid.UUID, version int64) error {
	query := `UPDATE recurring_rules
	           SET version = version + 1, updated_at = NOW()
	           WHERE id = $1 AND version = $2 AND status = 'ACTIVE'`
	res, err := r.db.ExecContext(ctx, query, id, version)
	if err != nil {
		return fmt.Errorf("error claiming recurring rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking claim result: %w", err)
	}
	if affected == 0 {
		return r.conflictOrNotFound(ctx, id)
	}
	return nil
}

func (r *PostgresRuleRepository) conflictOrNotFound(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM recurring_rules WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("error checking rule existence: %w", err)
	}
	if !exists {
		return ErrRuleNotFound
	}
	return ErrRuleVersionConflict
}

func (r *PostgresRuleRepository) ListDueIDs(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	query := `SELECT id FROM recurring_rules
	           WHERE status = 'ACTIVE' AND next_execution_date <= $1
	           ORDER BY next_execution_date ASC`
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("error querying due rules: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning due rule id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due rule ids: %w", err)
	}
	return ids, nil
}

func (r *PostgresRuleRepository) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*rule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurring_rules
	           WHERE household_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("error querying rules by household: %w", err)
	}
	defer rows.Close()

	rules := make([]*rule.Rule, 0)
	for rows.Next() {
		ru, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning rule row: %w", err)
		}
		rules = append(rules, ru)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule rows: %w", err)
	}
	return rules, nil
}

func (r *PostgresRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting recurring rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*rule.Rule, error) {
	ru := rule.Rule{}
	var metadata []byte
	err := row.Scan(
		&ru.ID, &ru.HouseholdID, &ru.Name, &ru.Description, &ru.Amount, &ru.Currency,
		&ru.SourceAccountID, &ru.TransferAccountID, &ru.CategoryID, &ru.Merchant,
		&ru.Frequency, &ru.IntervalValue, &ru.StartDate, &ru.EndDate, &ru.NextExecutionDate,
		&ru.MaxExecutions, &ru.ExecutionCount, &ru.Status, &metadata, &ru.Version,
		&ru.CreatedBy, &ru.CreatedAt, &ru.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &ru.Metadata); err != nil {
			return nil, fmt.Errorf("error decoding rule metadata: %w", err)
		}
	}
	return &ru, nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("error encoding rule metadata: %w", err)
	}
	return b, nil
}
