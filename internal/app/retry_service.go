package app

import (
	"context"
	"database/sql"
	"fmt"

	"recurring_ledger_scheduler/internal/domain/execution"

	"github.com/sirupsen/logrus"
)

// DefaultMaxRetries is the retry ceiling: a record whose retryCount already
// reached this value before another failed retry becomes PERMANENTLY_FAILED.
const DefaultMaxRetries = 2

// RetrySummary reports one retry pass over all FAILED records.
type RetrySummary struct {
	Scanned           int
	Succeeded         int
	Failed            int
	PermanentlyFailed int
	// Skipped counts records whose rule a concurrent run had claimed;
	// they go back to FAILED without consuming a retry.
	Skipped int
}

// RetryService scans FAILED execution records and re-drives them through the
// engine with bounded retries. Each record's outcome is independent.
type RetryService struct {
	execRepo   execution.Repository
	engine     Engine
	maxRetries int
	log        *logrus.Entry
}

func NewRetryService(er execution.Repository, engine Engine, maxRetries int, log *logrus.Entry) *RetryService {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}
	return &RetryService{
		execRepo:   er,
		engine:     engine,
		maxRetries: maxRetries,
		log:        log,
	}
}

// RetryFailed retries every FAILED record once. A record failing with its
// pre-retry retryCount already at the ceiling is marked PERMANENTLY_FAILED;
// otherwise it goes back to FAILED for a future pass.
func (s *RetryService) RetryFailed(ctx context.Context) (*RetrySummary, error) {
	records, err := s.execRepo.ListFailed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed execution records: %w", err)
	}

	summary := &RetrySummary{Scanned: len(records)}
	s.log.Infof("Retry pass started: %d failed execution records", len(records))

	for _, rec := range records {
		preRetryCount := rec.RetryCount

		rec.RetryCount++
		rec.Status = execution.StatusPending
		if err := s.execRepo.Update(ctx, rec); err != nil {
			s.log.Errorf("Failed to mark record %s pending for retry: %v", rec.ID, err)
			summary.Failed++
			continue
		}

		_, err := s.engine.Retry(ctx, rec)
		if err == nil {
			s.log.Infof("Retry succeeded for record %s (rule %s)", rec.ID, rec.RuleID)
			summary.Succeeded++
			continue
		}

		if IsKind(err, KindConflict) {
			// A concurrent run holds the rule; this is a race, not a
			// failed attempt. Put the record back without consuming
			// a retry.
			rec.RetryCount = preRetryCount
			rec.Status = execution.StatusFailed
			summary.Skipped++
			s.log.Infof("Retry skipped for record %s (rule %s): %v", rec.ID, rec.RuleID, err)
			if uerr := s.execRepo.Update(ctx, rec); uerr != nil {
				s.log.Errorf("Failed to restore record %s after skipped retry: %v", rec.ID, uerr)
			}
			continue
		}

		if preRetryCount >= s.maxRetries {
			rec.Status = execution.StatusPermanentlyFailed
			rec.ErrorMessage = sql.NullString{
				String: fmt.Sprintf("permanently failed after %d retries: %v", preRetryCount, err),
				Valid:  true,
			}
			summary.PermanentlyFailed++
			s.log.Warnf("Record %s (rule %s) permanently failed: %v", rec.ID, rec.RuleID, err)
		} else {
			rec.Status = execution.StatusFailed
			rec.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			summary.Failed++
			s.log.Warnf("Retry failed for record %s (rule %s), will retry again: %v", rec.ID, rec.RuleID, err)
		}

		if uerr := s.execRepo.Update(ctx, rec); uerr != nil {
			s.log.Errorf("Failed to persist retry outcome for record %s: %v", rec.ID, uerr)
		}
	}

	s.log.Infof("Retry pass finished: %d scanned, %d succeeded, %d failed, %d permanently failed, %d skipped",
		summary.Scanned, summary.Succeeded, summary.Failed, summary.PermanentlyFailed, summary.Skipped)
	return summary, nil
}
