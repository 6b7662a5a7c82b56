package app

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"recurring_ledger_scheduler/internal/domain/execution"
	"recurring_ledger_scheduler/internal/domain/ledger"
	"recurring_ledger_scheduler/internal/domain/rule"
	idb "recurring_ledger_scheduler/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// memRuleRepo mimics the Postgres repository's copy and compare-and-swap
// semantics in memory.
type memRuleRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID]*rule.Rule

	claimErr error // injected Claim failure
}

func newMemRuleRepo() *memRuleRepo {
	return &memRuleRepo{rules: make(map[uuid.UUID]*rule.Rule)}
}

func copyRule(r *rule.Rule) *rule.Rule {
	cp := *r
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func (m *memRuleRepo) Create(_ context.Context, r *rule.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.rules[r.ID] = copyRule(r)
	return nil
}

func (m *memRuleRepo) GetByID(_ context.Context, id uuid.UUID) (*rule.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rules[id]
	if !ok {
		return nil, idb.ErrRuleNotFound
	}
	return copyRule(stored), nil
}

func (m *memRuleRepo) Update(_ context.Context, r *rule.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rules[r.ID]
	if !ok {
		return idb.ErrRuleNotFound
	}
	if stored.Version != r.Version {
		return idb.ErrRuleVersionConflict
	}
	r.Version++
	r.UpdatedAt = time.Now()
	m.rules[r.ID] = copyRule(r)
	return nil
}

func (m *memRuleRepo) Claim(_ context.Context, id uuid.UUID, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return m.claimErr
	}
	stored, ok := m.rules[id]
	if !ok {
		return idb.ErrRuleNotFound
	}
	if stored.Version != version || stored.Status != rule.StatusActive {
		return idb.ErrRuleVersionConflict
	}
	stored.Version++
	return nil
}

func (m *memRuleRepo) ListDueIDs(_ context.Context, asOf time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := make([]*rule.Rule, 0)
	for _, r := range m.rules {
		if r.Status == rule.StatusActive && !r.NextExecutionDate.After(asOf) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextExecutionDate.Before(due[j].NextExecutionDate) })
	ids := make([]uuid.UUID, len(due))
	for i, r := range due {
		ids[i] = r.ID
	}
	return ids, nil
}

func (m *memRuleRepo) ListByHousehold(_ context.Context, householdID uuid.UUID) ([]*rule.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rules := make([]*rule.Rule, 0)
	for _, r := range m.rules {
		if r.HouseholdID == householdID {
			rules = append(rules, copyRule(r))
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })
	return rules, nil
}

func (m *memRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return idb.ErrRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

type memExecRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*execution.Record
}

func newMemExecRepo() *memExecRepo {
	return &memExecRepo{records: make(map[uuid.UUID]*execution.Record)}
}

func copyRecord(rec *execution.Record) *execution.Record {
	cp := *rec
	return &cp
}

func (m *memExecRepo) Create(_ context.Context, rec *execution.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	m.records[rec.ID] = copyRecord(rec)
	return nil
}

func (m *memExecRepo) Update(_ context.Context, rec *execution.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return idb.ErrExecutionNotFound
	}
	rec.UpdatedAt = time.Now()
	m.records[rec.ID] = copyRecord(rec)
	return nil
}

func (m *memExecRepo) GetByID(_ context.Context, id uuid.UUID) (*execution.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, idb.ErrExecutionNotFound
	}
	return copyRecord(rec), nil
}

func (m *memExecRepo) ListFailed(_ context.Context) ([]*execution.Record, error) {
	return m.listByStatus(execution.StatusFailed), nil
}

func (m *memExecRepo) listByStatus(status execution.Status) []*execution.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]*execution.Record, 0)
	for _, rec := range m.records {
		if rec.Status == status {
			records = append(records, copyRecord(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ScheduledDate.Before(records[j].ScheduledDate) })
	return records
}

func (m *memExecRepo) ListByRule(_ context.Context, ruleID uuid.UUID) ([]*execution.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]*execution.Record, 0)
	for _, rec := range m.records {
		if rec.RuleID == ruleID {
			records = append(records, copyRecord(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ScheduledDate.Before(records[j].ScheduledDate) })
	return records, nil
}

// fakeLedger records created transactions and fails per-household on demand.
type fakeLedger struct {
	mu      sync.Mutex
	created []ledger.TransactionSpec
	err     error               // fail every call
	failFor map[uuid.UUID]error // fail calls for specific households
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{failFor: make(map[uuid.UUID]error)}
}

func (l *fakeLedger) CreateTransaction(_ context.Context, spec ledger.TransactionSpec) (*ledger.TransactionRef, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if err, ok := l.failFor[spec.HouseholdID]; ok {
		return nil, err
	}
	l.created = append(l.created, spec)
	return &ledger.TransactionRef{ID: uuid.New(), CreatedAt: time.Now()}, nil
}

func (l *fakeLedger) createdCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.created)
}
