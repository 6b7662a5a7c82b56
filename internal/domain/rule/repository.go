package rule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence operations the scheduler needs for rules.
type Repository interface {
	Create(ctx context.Context, r *Rule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Rule, error)

	// Update persists all mutable fields with a compare-and-swap on Version;
	// on success the rule's Version is bumped. A stale version yields
	// database.ErrRuleVersionConflict.
	Update(ctx context.Context, r *Rule) error

	// Claim marks the rule as taken by one execution attempt. It succeeds at
	// most once per version: a concurrent claimer loses with
	// database.ErrRuleVersionConflict. Claiming bumps the rule's Version.
	Claim(ctx context.Context, id uuid.UUID, version int64) error

	// ListDueIDs returns the ids of ACTIVE rules with nextExecutionDate <= asOf.
	ListDueIDs(ctx context.Context, asOf time.Time) ([]uuid.UUID, error)

	ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*Rule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
