package app

import (
	"context"
	"errors"
	"testing"

	"recurring_ledger_scheduler/internal/domain/execution"
	"recurring_ledger_scheduler/internal/domain/rule"
	idb "recurring_ledger_scheduler/internal/infra/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retryFixture struct {
	*engineFixture
	retry *RetryService
}

func newRetryFixture(t *testing.T) *retryFixture {
	t.Helper()
	f := newEngineFixture(day(2024, 1, 1))
	return &retryFixture{
		engineFixture: f,
		retry:         NewRetryService(f.execRepo, f.engine, DefaultMaxRetries, testLog()),
	}
}

// failedExecution runs one execution with a broken ledger so a genuine FAILED
// record exists, then heals the ledger.
func (f *retryFixture) failedExecution(t *testing.T, r *rule.Rule) *execution.Record {
	t.Helper()
	f.ledger.err = errors.New("ledger unavailable")
	_, err := f.engine.Execute(context.Background(), r.ID, nil, false)
	require.True(t, IsKind(err, KindLedgerFailure))
	f.ledger.err = nil

	records, err := f.execRepo.ListByRule(context.Background(), r.ID)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	rec := records[len(records)-1]
	require.Equal(t, execution.StatusFailed, rec.Status)
	return rec
}

func TestRetryFailed_Succeeds(t *testing.T) {
	f := newRetryFixture(t)
	r := f.addRule(t, nil)
	rec := f.failedExecution(t, r)

	summary, err := f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.PermanentlyFailed)

	stored, err := f.execRepo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
	assert.True(t, stored.LinkedTransactionID.Valid)
	// The retry ran against the original scheduled date.
	assert.Equal(t, rec.ScheduledDate, stored.ScheduledDate)

	storedRule := f.storedRule(t, r.ID)
	assert.Equal(t, 1, storedRule.ExecutionCount)
	assert.Equal(t, day(2024, 2, 1), storedRule.NextExecutionDate)
}

func TestRetryFailed_StaysFailedBelowCeiling(t *testing.T) {
	f := newRetryFixture(t)
	r := f.addRule(t, nil)
	rec := f.failedExecution(t, r)
	f.ledger.err = errors.New("still down")

	summary, err := f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.PermanentlyFailed)

	stored, err := f.execRepo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusFailed, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)

	// Rule state untouched by failed retries.
	storedRule := f.storedRule(t, r.ID)
	assert.Equal(t, 0, storedRule.ExecutionCount)
}

func TestRetryFailed_PermanentAfterSecondFailedRetry(t *testing.T) {
	f := newRetryFixture(t)
	r := f.addRule(t, nil)
	rec := f.failedExecution(t, r)
	f.ledger.err = errors.New("still down")

	// First retry: retryCount 1 -> 2, stays FAILED.
	summary, err := f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	// Second retry: pre-retry retryCount is 2, so the record goes terminal.
	summary, err = f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.PermanentlyFailed)

	stored, err := f.execRepo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusPermanentlyFailed, stored.Status)
	assert.Equal(t, 3, stored.RetryCount)
	assert.Contains(t, stored.ErrorMessage.String, "permanently failed")

	// Terminal records are not scanned again.
	summary, err = f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Scanned)
}

func TestRetryFailed_LostClaimDoesNotConsumeARetry(t *testing.T) {
	f := newRetryFixture(t)
	r := f.addRule(t, nil)
	rec := f.failedExecution(t, r)
	f.ledger.err = errors.New("still down")

	// Burn the first retry so the record sits at the ceiling.
	summary, err := f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)

	// Another run holds the rule's claim. Must not tip the record terminal.
	f.ruleRepo.claimErr = idb.ErrRuleVersionConflict
	summary, err = f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.PermanentlyFailed)

	stored, err := f.execRepo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusFailed, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)

	// Once the claim frees up, the last retry is still available.
	f.ruleRepo.claimErr = nil
	f.ledger.err = nil
	summary, err = f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	stored, err = f.execRepo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCompleted, stored.Status)
}

func TestRetryFailed_RecordsAreIndependent(t *testing.T) {
	f := newRetryFixture(t)
	healthy := f.addRule(t, nil)
	broken := f.addRule(t, func(r *rule.Rule) {
		r.HouseholdID = uuid.New()
		r.Name = "Gym"
	})

	f.failedExecution(t, healthy)
	f.failedExecution(t, broken)

	// Only the broken rule's household keeps failing.
	f.ledger.failFor[broken.HouseholdID] = errors.New("account frozen")

	summary, err := f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
}

func TestRetryFailed_GateFailureCountsAsFailed(t *testing.T) {
	f := newRetryFixture(t)
	r := f.addRule(t, nil)
	rec := f.failedExecution(t, r)

	// The rule was cancelled while its execution sat in the failed queue.
	stored := f.storedRule(t, r.ID)
	stored.Status = rule.StatusCancelled
	require.NoError(t, f.ruleRepo.Update(context.Background(), stored))

	summary, err := f.retry.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	got, err := f.execRepo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage.String, "not active")
}
