package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionSpec describes the ledger transaction one execution attempt
// should materialize. Metadata carries the rule and execution record ids so
// the transaction can always be traced back to its origin.
type TransactionSpec struct {
	HouseholdID       uuid.UUID
	Description       string
	Amount            int64
	Currency          string
	SourceAccountID   uuid.UUID
	TransferAccountID uuid.NullUUID
	CategoryID        uuid.NullUUID
	Merchant          string
	Date              time.Time
	Metadata          map[string]string
}

// TransactionRef identifies a transaction the ledger created.
type TransactionRef struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// Ledger is the external transaction-recording collaborator. The scheduler
// only ever creates transactions; reading or amending them is out of scope.
type Ledger interface {
	CreateTransaction(ctx context.Context, spec TransactionSpec) (*TransactionRef, error)
}
