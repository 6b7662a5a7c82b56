package execution

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one execution attempt.
type Status string

const (
	StatusPending           Status = "PENDING"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
	StatusPermanentlyFailed Status = "PERMANENTLY_FAILED"
)

// Record tracks one materialization attempt of a recurring rule on a specific
// scheduled date. Records are append-only history owned by their rule; only
// the execution engine and the retry pass mutate them.
// Corresponds to the 'execution_records' table.
type Record struct {
	ID            uuid.UUID
	RuleID        uuid.UUID
	ScheduledDate time.Time
	ExecutedDate  sql.NullTime

	Status              Status
	LinkedTransactionID uuid.NullUUID
	ErrorMessage        sql.NullString
	RetryCount          int

	CreatedAt time.Time
	UpdatedAt time.Time
}
