package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"recurring_ledger_scheduler/internal/domain/clock"
	"recurring_ledger_scheduler/internal/domain/execution"
	"recurring_ledger_scheduler/internal/domain/ledger"
	"recurring_ledger_scheduler/internal/domain/money"
	"recurring_ledger_scheduler/internal/domain/rule"
	idb "recurring_ledger_scheduler/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine is the execution surface the batch and retry passes drive.
type Engine interface {
	// Execute runs one execution attempt for the rule. requestedDate defaults
	// to the current time; force skips the due check.
	Execute(ctx context.Context, ruleID uuid.UUID, requestedDate *time.Time, force bool) (*ExecutionResult, error)

	// Retry runs an attempt against an existing record (prepared by the retry
	// pass) instead of appending a fresh one.
	Retry(ctx context.Context, rec *execution.Record) (*ExecutionResult, error)
}

// ExecutionResult is returned on a successful attempt.
type ExecutionResult struct {
	Record      *execution.Record
	Transaction *ledger.TransactionRef
	Rule        *rule.Rule
}

// ExecutionService orchestrates one execution attempt: due/termination gate,
// per-rule claim, ledger write, record bookkeeping, and rule advancement.
type ExecutionService struct {
	ruleRepo rule.Repository
	execRepo execution.Repository
	ledger   ledger.Ledger
	clock    clock.Clock
	log      *logrus.Entry
}

func NewExecutionService(
	rr rule.Repository,
	er execution.Repository,
	lg ledger.Ledger,
	clk clock.Clock,
	log *logrus.Entry,
) *ExecutionService {
	return &ExecutionService{
		ruleRepo: rr,
		execRepo: er,
		ledger:   lg,
		clock:    clk,
		log:      log,
	}
}

func (s *ExecutionService) Execute(ctx context.Context, ruleID uuid.UUID, requestedDate *time.Time, force bool) (*ExecutionResult, error) {
	r, err := s.loadRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	effectiveDate := s.clock.Now()
	if requestedDate != nil {
		effectiveDate = *requestedDate
	}

	if err := s.gate(ctx, r, effectiveDate, force); err != nil {
		return nil, err
	}

	if err := s.claim(ctx, r); err != nil {
		return nil, err
	}

	rec := &execution.Record{
		ID:            uuid.New(),
		RuleID:        r.ID,
		ScheduledDate: effectiveDate,
		Status:        execution.StatusPending,
	}
	if err := s.execRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create execution record for rule %s: %w", r.ID, err)
	}
	s.log.Infof("Execution record %s created for rule %s (scheduled %s)", rec.ID, r.ID, effectiveDate.Format("2006-01-02"))

	return s.attempt(ctx, r, rec)
}

func (s *ExecutionService) Retry(ctx context.Context, rec *execution.Record) (*ExecutionResult, error) {
	r, err := s.loadRule(ctx, rec.RuleID)
	if err != nil {
		return nil, err
	}

	// Retries always run forced against the original scheduled date.
	if err := s.gate(ctx, r, rec.ScheduledDate, true); err != nil {
		return nil, err
	}

	if err := s.claim(ctx, r); err != nil {
		return nil, err
	}

	s.log.Infof("Retrying execution record %s for rule %s (attempt %d)", rec.ID, r.ID, rec.RetryCount)
	return s.attempt(ctx, r, rec)
}

func (s *ExecutionService) loadRule(ctx context.Context, ruleID uuid.UUID) (*rule.Rule, error) {
	r, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, idb.ErrRuleNotFound) {
			return nil, newError(KindNotFound, "rule %s not found", ruleID)
		}
		return nil, fmt.Errorf("failed to load rule %s: %w", ruleID, err)
	}
	return r, nil
}

// gate enforces the precondition chain: rule active, due (unless forced),
// execution cap not exhausted, end date not passed. The last two complete the
// rule as a side effect before reporting the error; that dual behavior is
// what callers and the batch summary rely on.
func (s *ExecutionService) gate(ctx context.Context, r *rule.Rule, effectiveDate time.Time, force bool) error {
	if r.Status != rule.StatusActive {
		// A rule already completed by its termination condition keeps
		// reporting that condition, not a generic state error.
		if r.Status == rule.StatusCompleted && r.MaxExecutionsReached() {
			return newError(KindMaxExecutionsReached, "rule %s reached its maximum of %d executions", r.ID, r.MaxExecutions.Int32)
		}
		if r.Status == rule.StatusCompleted && r.EndedBy(effectiveDate) {
			return newError(KindRuleEnded, "rule %s ended on %s", r.ID, r.EndDate.Time.Format("2006-01-02"))
		}
		return newError(KindInvalidState, "rule %s is not active (status %s)", r.ID, r.Status)
	}

	if !force && !r.DueBy(effectiveDate) {
		return newError(KindNotDue, "rule %s is not due until %s", r.ID, r.NextExecutionDate.Format("2006-01-02"))
	}

	if r.MaxExecutionsReached() {
		if err := s.completeRule(ctx, r); err != nil {
			return err
		}
		return newError(KindMaxExecutionsReached, "rule %s reached its maximum of %d executions", r.ID, r.MaxExecutions.Int32)
	}

	if r.EndedBy(effectiveDate) {
		if err := s.completeRule(ctx, r); err != nil {
			return err
		}
		return newError(KindRuleEnded, "rule %s ended on %s", r.ID, r.EndDate.Time.Format("2006-01-02"))
	}

	return nil
}

func (s *ExecutionService) completeRule(ctx context.Context, r *rule.Rule) error {
	r.Status = rule.StatusCompleted
	if err := s.ruleRepo.Update(ctx, r); err != nil {
		if errors.Is(err, idb.ErrRuleVersionConflict) {
			return newError(KindConflict, "rule %s was modified concurrently", r.ID)
		}
		return fmt.Errorf("failed to mark rule %s completed: %w", r.ID, err)
	}
	s.log.Infof("Rule %s marked COMPLETED", r.ID)
	return nil
}

// claim takes the at-most-one-in-flight lock on the rule before any ledger
// write. Losing the compare-and-swap means another run holds the rule.
func (s *ExecutionService) claim(ctx context.Context, r *rule.Rule) error {
	if err := s.ruleRepo.Claim(ctx, r.ID, r.Version); err != nil {
		if errors.Is(err, idb.ErrRuleVersionConflict) {
			return newError(KindConflict, "rule %s is already claimed by another execution", r.ID)
		}
		return fmt.Errorf("failed to claim rule %s: %w", r.ID, err)
	}
	r.Version++
	return nil
}

// attempt materializes the ledger transaction and settles the record and rule
// state. On ledger failure the record is marked FAILED and the rule is left
// exactly as it was: executionCount and nextExecutionDate never advance on a
// failed attempt.
func (s *ExecutionService) attempt(ctx context.Context, r *rule.Rule, rec *execution.Record) (*ExecutionResult, error) {
	ref, err := s.ledger.CreateTransaction(ctx, s.transactionSpec(r, rec))
	if err != nil {
		s.log.Warnf("Ledger rejected transaction for rule %s (record %s): %v", r.ID, rec.ID, err)
		rec.Status = execution.StatusFailed
		rec.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		if rec.RetryCount == 0 {
			rec.RetryCount = 1 // first recorded attempt
		}
		if uerr := s.execRepo.Update(ctx, rec); uerr != nil {
			s.log.Errorf("Failed to persist FAILED status for record %s: %v", rec.ID, uerr)
		}
		return nil, wrapError(KindLedgerFailure, err, "ledger rejected %s transaction for rule %s",
			money.Format(r.Amount, r.Currency), r.ID)
	}

	rec.Status = execution.StatusCompleted
	rec.ExecutedDate = sql.NullTime{Time: s.clock.Now(), Valid: true}
	rec.LinkedTransactionID = uuid.NullUUID{UUID: ref.ID, Valid: true}
	if err := s.execRepo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to mark execution record %s completed: %w", rec.ID, err)
	}

	next, err := rule.NextDate(rec.ScheduledDate, r.Frequency, r.IntervalValue)
	if err != nil {
		return nil, wrapError(KindInvalidRule, err, "cannot compute next execution date for rule %s", r.ID)
	}

	r.ExecutionCount++
	r.NextExecutionDate = next
	if rule.ShouldComplete(r, r.ExecutionCount, next) {
		r.Status = rule.StatusCompleted
		s.log.Infof("Rule %s completed after %d executions", r.ID, r.ExecutionCount)
	}
	if err := s.ruleRepo.Update(ctx, r); err != nil {
		if errors.Is(err, idb.ErrRuleVersionConflict) {
			return nil, newError(KindConflict, "rule %s was modified concurrently after execution", r.ID)
		}
		return nil, fmt.Errorf("failed to advance rule %s after execution: %w", r.ID, err)
	}

	s.log.Infof("Rule %s executed: %s, transaction %s, next execution %s",
		r.ID, money.Format(r.Amount, r.Currency), ref.ID, next.Format("2006-01-02"))
	return &ExecutionResult{Record: rec, Transaction: ref, Rule: r}, nil
}

func (s *ExecutionService) transactionSpec(r *rule.Rule, rec *execution.Record) ledger.TransactionSpec {
	description := r.Name
	if r.Description != "" {
		description = fmt.Sprintf("%s: %s", r.Name, r.Description)
	}

	metadata := make(map[string]string, len(r.Metadata)+2)
	for k, v := range r.Metadata {
		metadata[k] = v
	}
	metadata["recurring_rule_id"] = r.ID.String()
	metadata["execution_record_id"] = rec.ID.String()

	return ledger.TransactionSpec{
		HouseholdID:       r.HouseholdID,
		Description:       description,
		Amount:            r.Amount,
		Currency:          r.Currency,
		SourceAccountID:   r.SourceAccountID,
		TransferAccountID: r.TransferAccountID,
		CategoryID:        r.CategoryID,
		Merchant:          r.Merchant.String,
		Date:              rec.ScheduledDate,
		Metadata:          metadata,
	}
}
