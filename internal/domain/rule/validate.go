package rule

import (
	"fmt"

	"recurring_ledger_scheduler/internal/domain/money"

	"github.com/google/uuid"
)

// Validate checks the invariants a rule must satisfy at creation or update
// time. Returned errors are plain descriptions; the service layer wraps them
// into its InvalidRule error kind.
func (r *Rule) Validate() error {
	if r.HouseholdID == uuid.Nil {
		return fmt.Errorf("household id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.SourceAccountID == uuid.Nil {
		return fmt.Errorf("source account id is required")
	}
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", r.Amount)
	}
	if !money.ValidCurrency(r.Currency) {
		return fmt.Errorf("invalid currency code: %q", r.Currency)
	}
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly, FrequencyCustom:
	default:
		return fmt.Errorf("unknown frequency: %q", r.Frequency)
	}
	if r.IntervalValue < 1 {
		return fmt.Errorf("interval value must be at least 1, got %d", r.IntervalValue)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if r.EndDate.Valid && !r.EndDate.Time.After(r.StartDate) {
		return fmt.Errorf("end date must be strictly after start date")
	}
	if r.MaxExecutions.Valid && r.MaxExecutions.Int32 < 1 {
		return fmt.Errorf("max executions must be at least 1, got %d", r.MaxExecutions.Int32)
	}
	if r.MaxExecutions.Valid && r.ExecutionCount > int(r.MaxExecutions.Int32) {
		return fmt.Errorf("execution count %d exceeds max executions %d", r.ExecutionCount, r.MaxExecutions.Int32)
	}
	return nil
}
