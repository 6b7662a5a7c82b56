package scheduler

import (
	"context"
	"fmt"
	"time"

	"recurring_ledger_scheduler/internal/app"
	"recurring_ledger_scheduler/internal/domain/notify"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// BatchScheduler wires the periodic triggers: one cron job for the due-scan,
// one for the retry pass. The scheduler is the external invoker the core
// expects; the services themselves hold no timer state.
type BatchScheduler struct {
	cronEngine *cron.Cron
	batch      *app.BatchService
	retry      *app.RetryService
	notifier   notify.Notifier
	log        *logrus.Entry

	cronSpecProcessDue  string
	cronSpecRetryFailed string
}

func NewBatchScheduler(
	batch *app.BatchService,
	retry *app.RetryService,
	notifier notify.Notifier,
	log *logrus.Entry,
	cronSpecProcessDue string, // e.g. "0 * * * *" (top of every hour)
	cronSpecRetryFailed string, // e.g. "30 * * * *"
) *BatchScheduler {
	return &BatchScheduler{
		cronEngine:          cron.New(cron.WithLocation(time.Local)),
		batch:               batch,
		retry:               retry,
		notifier:            notifier,
		log:                 log,
		cronSpecProcessDue:  cronSpecProcessDue,
		cronSpecRetryFailed: cronSpecRetryFailed,
	}
}

func (s *BatchScheduler) Start() error {
	s.log.Info("Starting batch scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecProcessDue, func() {
		s.log.Info("Cron job triggered: process due rules")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		summary, err := s.batch.ProcessDue(ctx)
		if err != nil {
			s.log.Errorf("Due-scan failed: %v", err)
			s.notify(ctx, fmt.Sprintf("Due-scan failed: %v", err))
			return
		}
		if summary.Attempted > 0 {
			s.notify(ctx, fmt.Sprintf("Due-scan: %d attempted, %d succeeded, %d failed, %d skipped",
				summary.Attempted, summary.Succeeded, summary.Failed, summary.Skipped))
		}
	})
	if err != nil {
		return fmt.Errorf("could not add process-due cron job: %w", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecRetryFailed, func() {
		s.log.Info("Cron job triggered: retry failed executions")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		summary, err := s.retry.RetryFailed(ctx)
		if err != nil {
			s.log.Errorf("Retry pass failed: %v", err)
			s.notify(ctx, fmt.Sprintf("Retry pass failed: %v", err))
			return
		}
		if summary.PermanentlyFailed > 0 {
			s.notify(ctx, fmt.Sprintf("Retry pass: %d executions permanently failed and need attention", summary.PermanentlyFailed))
		}
	})
	if err != nil {
		return fmt.Errorf("could not add retry-failed cron job: %w", err)
	}

	s.cronEngine.Start()
	s.log.Info("Batch scheduler started with jobs.")
	return nil
}

func (s *BatchScheduler) notify(ctx context.Context, message string) {
	if err := s.notifier.Send(ctx, message); err != nil {
		s.log.Warnf("Failed to send ops notification: %v", err)
	}
}

func (s *BatchScheduler) Stop() {
	s.log.Info("Stopping batch scheduler...")
	ctx := s.cronEngine.Stop() // Waits for running jobs.
	<-ctx.Done()
	s.log.Info("Batch scheduler gracefully stopped.")
}
