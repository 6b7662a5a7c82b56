package execution

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for execution records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// ListFailed returns all records with status FAILED, oldest first.
	ListFailed(ctx context.Context) ([]*Record, error)

	// ListByRule returns a rule's full attempt history ordered by
	// scheduled date ascending.
	ListByRule(ctx context.Context, ruleID uuid.UUID) ([]*Record, error)
}
