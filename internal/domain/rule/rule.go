package rule

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Frequency describes how often a recurring rule fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
	// FrequencyCustom behaves exactly like DAILY with the given interval.
	// Carried over from the source system; callers relying on it exist.
	FrequencyCustom Frequency = "CUSTOM"
)

// Status is the lifecycle state of a recurring rule.
// Allowed transitions: ACTIVE <-> PAUSED, ACTIVE -> CANCELLED,
// ACTIVE -> COMPLETED. CANCELLED and COMPLETED are terminal.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Rule represents a recurring obligation ("charge X every month starting D").
// Corresponds to the 'recurring_rules' table.
type Rule struct {
	ID          uuid.UUID
	HouseholdID uuid.UUID
	Name        string
	Description string

	// Amount is in minor currency units (e.g. cents).
	Amount   int64
	Currency string

	SourceAccountID   uuid.UUID
	TransferAccountID uuid.NullUUID
	CategoryID        uuid.NullUUID
	Merchant          sql.NullString

	Frequency     Frequency
	IntervalValue int

	StartDate         time.Time
	EndDate           sql.NullTime
	NextExecutionDate time.Time

	MaxExecutions  sql.NullInt32
	ExecutionCount int

	Status   Status
	Metadata map[string]string

	// Version is bumped on every update; repositories compare-and-swap on it
	// so two batch runs can never act on the same rule snapshot.
	Version int64

	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransitionTo reports whether the rule may move to the target status.
func (r *Rule) CanTransitionTo(target Status) bool {
	switch r.Status {
	case StatusActive:
		return target == StatusPaused || target == StatusCancelled || target == StatusCompleted
	case StatusPaused:
		return target == StatusActive
	default: // CANCELLED and COMPLETED are terminal
		return false
	}
}

// MaxExecutionsReached reports whether the execution cap, if set, is exhausted.
func (r *Rule) MaxExecutionsReached() bool {
	return r.MaxExecutions.Valid && r.ExecutionCount >= int(r.MaxExecutions.Int32)
}

// EndedBy reports whether the rule's end date, if set, lies before asOf.
func (r *Rule) EndedBy(asOf time.Time) bool {
	return r.EndDate.Valid && asOf.After(r.EndDate.Time)
}

// DueBy reports whether the rule is due for execution as of the given time.
func (r *Rule) DueBy(asOf time.Time) bool {
	return !asOf.Before(r.NextExecutionDate)
}
