package app

import (
	"context"
	"fmt"

	"recurring_ledger_scheduler/internal/domain/clock"
	"recurring_ledger_scheduler/internal/domain/rule"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BatchSummary reports one due-scan over all eligible rules.
type BatchSummary struct {
	Attempted int
	Succeeded int
	Failed    int
	// Skipped counts rules another run claimed first; not failures.
	Skipped  int
	Failures []BatchFailure
}

// BatchFailure records one rule's failure inside a batch.
type BatchFailure struct {
	RuleID uuid.UUID
	Reason string
}

// BatchService iterates all due rules once per invocation, isolating per-rule
// failures so one broken rule never stops the batch.
type BatchService struct {
	ruleRepo rule.Repository
	engine   Engine
	clock    clock.Clock
	log      *logrus.Entry
}

func NewBatchService(rr rule.Repository, engine Engine, clk clock.Clock, log *logrus.Entry) *BatchService {
	return &BatchService{
		ruleRepo: rr,
		engine:   engine,
		clock:    clk,
		log:      log,
	}
}

// ProcessDue executes every ACTIVE rule whose nextExecutionDate has arrived.
func (s *BatchService) ProcessDue(ctx context.Context) (*BatchSummary, error) {
	now := s.clock.Now()
	dueIDs, err := s.ruleRepo.ListDueIDs(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due rules: %w", err)
	}

	summary := &BatchSummary{Attempted: len(dueIDs)}
	s.log.Infof("Due-scan started: %d rules due as of %s", len(dueIDs), now.Format("2006-01-02 15:04:05"))

	for _, id := range dueIDs {
		_, err := s.engine.Execute(ctx, id, nil, false)
		switch {
		case err == nil:
			summary.Succeeded++
		case IsKind(err, KindConflict), IsKind(err, KindNotDue):
			// Another run claimed the rule, or it advanced past due
			// between the scan and the attempt.
			summary.Skipped++
			s.log.Infof("Rule %s skipped: %v", id, err)
		default:
			summary.Failed++
			summary.Failures = append(summary.Failures, BatchFailure{RuleID: id, Reason: err.Error()})
			s.log.Warnf("Rule %s failed in batch: %v", id, err)
		}
	}

	s.log.Infof("Due-scan finished: %d attempted, %d succeeded, %d failed, %d skipped",
		summary.Attempted, summary.Succeeded, summary.Failed, summary.Skipped)
	return summary, nil
}
