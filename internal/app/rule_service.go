package app

import (
	"context"
	"errors"
	"fmt"

	"recurring_ledger_scheduler/internal/domain/execution"
	"recurring_ledger_scheduler/internal/domain/rule"
	idb "recurring_ledger_scheduler/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RuleService covers the plain rule surface: create/read/update/delete plus
// the explicit pause/resume/cancel transitions. Thin pass-throughs to the
// repository with validation and state-machine checks.
type RuleService struct {
	ruleRepo rule.Repository
	execRepo execution.Repository
	log      *logrus.Entry
}

func NewRuleService(rr rule.Repository, er execution.Repository, log *logrus.Entry) *RuleService {
	return &RuleService{ruleRepo: rr, execRepo: er, log: log}
}

// Create validates and persists a new rule. The first execution is scheduled
// for the start date unless the caller set an explicit nextExecutionDate.
func (s *RuleService) Create(ctx context.Context, r *rule.Rule) (*rule.Rule, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = rule.StatusActive
	}
	if r.NextExecutionDate.IsZero() {
		r.NextExecutionDate = r.StartDate
	}

	if err := r.Validate(); err != nil {
		return nil, wrapError(KindInvalidRule, err, "rule validation failed")
	}

	if err := s.ruleRepo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	s.log.Infof("Rule %s (%s) created for household %s", r.ID, r.Name, r.HouseholdID)
	return r, nil
}

func (s *RuleService) Get(ctx context.Context, id uuid.UUID) (*rule.Rule, error) {
	r, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, idb.ErrRuleNotFound) {
			return nil, newError(KindNotFound, "rule %s not found", id)
		}
		return nil, fmt.Errorf("failed to get rule %s: %w", id, err)
	}
	return r, nil
}

func (s *RuleService) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*rule.Rule, error) {
	rules, err := s.ruleRepo.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules for household %s: %w", householdID, err)
	}
	return rules, nil
}

// Update applies the mutable fields of 'updated' onto the stored rule.
// Scheduling state (executionCount, nextExecutionDate, status, version) is
// owned by the execution engine and cannot be changed here.
func (s *RuleService) Update(ctx context.Context, updated *rule.Rule) (*rule.Rule, error) {
	current, err := s.Get(ctx, updated.ID)
	if err != nil {
		return nil, err
	}

	current.Name = updated.Name
	current.Description = updated.Description
	current.Amount = updated.Amount
	current.Currency = updated.Currency
	current.SourceAccountID = updated.SourceAccountID
	current.TransferAccountID = updated.TransferAccountID
	current.CategoryID = updated.CategoryID
	current.Merchant = updated.Merchant
	current.EndDate = updated.EndDate
	current.MaxExecutions = updated.MaxExecutions
	current.Metadata = updated.Metadata

	if err := current.Validate(); err != nil {
		return nil, wrapError(KindInvalidRule, err, "rule validation failed")
	}

	if err := s.ruleRepo.Update(ctx, current); err != nil {
		if errors.Is(err, idb.ErrRuleVersionConflict) {
			return nil, newError(KindConflict, "rule %s was modified concurrently", current.ID)
		}
		return nil, fmt.Errorf("failed to update rule %s: %w", current.ID, err)
	}
	s.log.Infof("Rule %s updated", current.ID)
	return current, nil
}

func (s *RuleService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.ruleRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, idb.ErrRuleNotFound) {
			return newError(KindNotFound, "rule %s not found", id)
		}
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	s.log.Infof("Rule %s deleted", id)
	return nil
}

func (s *RuleService) Pause(ctx context.Context, id uuid.UUID) (*rule.Rule, error) {
	return s.transition(ctx, id, rule.StatusPaused)
}

func (s *RuleService) Resume(ctx context.Context, id uuid.UUID) (*rule.Rule, error) {
	return s.transition(ctx, id, rule.StatusActive)
}

func (s *RuleService) Cancel(ctx context.Context, id uuid.UUID) (*rule.Rule, error) {
	return s.transition(ctx, id, rule.StatusCancelled)
}

func (s *RuleService) transition(ctx context.Context, id uuid.UUID, target rule.Status) (*rule.Rule, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !r.CanTransitionTo(target) {
		return nil, newError(KindInvalidState, "rule %s cannot move from %s to %s", id, r.Status, target)
	}

	r.Status = target
	if err := s.ruleRepo.Update(ctx, r); err != nil {
		if errors.Is(err, idb.ErrRuleVersionConflict) {
			return nil, newError(KindConflict, "rule %s was modified concurrently", id)
		}
		return nil, fmt.Errorf("failed to transition rule %s to %s: %w", id, target, err)
	}
	s.log.Infof("Rule %s transitioned to %s", id, target)
	return r, nil
}

// History returns a rule's execution attempts ordered by scheduled date.
func (s *RuleService) History(ctx context.Context, ruleID uuid.UUID) ([]*execution.Record, error) {
	if _, err := s.Get(ctx, ruleID); err != nil {
		return nil, err
	}
	records, err := s.execRepo.ListByRule(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution history for rule %s: %w", ruleID, err)
	}
	return records, nil
}
