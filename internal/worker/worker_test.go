package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/hostwarden/hostwarden/internal/conf"
	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/hostwarden/hostwarden/internal/logger"
	"github.com/hostwarden/hostwarden/internal/notify"
	"github.com/hostwarden/hostwarden/internal/playbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

// mockTenantRepo serves a fixed roster.
type mockTenantRepo struct {
	tenants []entities.Tenant
	listErr error
	loads   int
}

func (m *mockTenantRepo) ListActive(context.Context) ([]entities.Tenant, error) {
	m.loads++
	return m.tenants, m.listErr
}

func (m *mockTenantRepo) Get(_ context.Context, id uint) (*entities.Tenant, error) {
	for i := range m.tenants {
		if m.tenants[i].ID == id {
			return &m.tenants[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockTenantRepo) Create(context.Context, *entities.Tenant) error { return nil }

func (m *mockTenantRepo) SetAutomationLevel(context.Context, uint, int) error { return nil }

// mockIssueRepo tracks MarkAutoFixed calls.
type mockIssueRepo struct {
	autoFixed []uint
}

func (m *mockIssueRepo) Create(context.Context, *entities.DetectedIssue) error { return nil }

func (m *mockIssueRepo) FindOpen(context.Context, uint, string) (*entities.DetectedIssue, error) {
	return nil, errors.New("unused")
}

func (m *mockIssueRepo) ListOpen(context.Context, uint) ([]entities.DetectedIssue, error) {
	return nil, nil
}

func (m *mockIssueRepo) ListRecent(context.Context, uint, int) ([]entities.DetectedIssue, error) {
	return nil, nil
}

func (m *mockIssueRepo) Resolve(context.Context, uint, time.Time) error { return nil }

func (m *mockIssueRepo) MarkAutoFixed(_ context.Context, id uint) error {
	m.autoFixed = append(m.autoFixed, id)
	return nil
}

// stubDetector scripts per-tenant detection outcomes.
type stubDetector struct {
	issuesByTenant map[uint][]entities.DetectedIssue
	errByTenant    map[uint]error
	seen           []uint
	onDetect       func(tenantID uint)
}

func (s *stubDetector) DetectIssues(_ context.Context, tenantID uint) ([]entities.DetectedIssue, error) {
	s.seen = append(s.seen, tenantID)
	if s.onDetect != nil {
		s.onDetect(tenantID)
	}
	if err := s.errByTenant[tenantID]; err != nil {
		return nil, err
	}
	return s.issuesByTenant[tenantID], nil
}

// stubRunner scripts playbook outcomes.
type stubRunner struct {
	result *playbook.Result
	err    error
	calls  int
}

func (s *stubRunner) Execute(_ context.Context, _ *entities.Tenant, _ *entities.DetectedIssue) (*playbook.Result, error) {
	s.calls++
	return s.result, s.err
}

// mockNotifRepo collects stored notifications.
type mockNotifRepo struct {
	rows []entities.TenantNotification
}

func (m *mockNotifRepo) Create(_ context.Context, row *entities.TenantNotification) error {
	m.rows = append(m.rows, *row)
	return nil
}

func (m *mockNotifRepo) ListByTenant(context.Context, uint, bool, int) ([]entities.TenantNotification, error) {
	return m.rows, nil
}

func (m *mockNotifRepo) CountUnread(context.Context, uint) (int64, error) { return 0, nil }

func (m *mockNotifRepo) MarkRead(context.Context, uint, time.Time) error { return nil }

func (m *mockNotifRepo) DeleteReadBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *mockNotifRepo) eventTypes() []string {
	types := make([]string, 0, len(m.rows))
	for _, row := range m.rows {
		types = append(types, row.EventType)
	}
	return types
}

func workerSettings() conf.WorkerSettings {
	return conf.WorkerSettings{
		Enabled:          true,
		CheckInterval:    conf.Duration(time.Second),
		SnapshotInterval: conf.Duration(time.Minute),
		TenantCacheTTL:   conf.Duration(time.Minute),
	}
}

func tenantIssue(tenantID uint, issueType string) entities.DetectedIssue {
	return entities.DetectedIssue{ID: tenantID * 100, TenantID: tenantID, IssueType: issueType, Severity: "warning", DetectedAt: time.Now()}
}

func TestWorker_TenantFailureIsolation(t *testing.T) {
	tenants := &mockTenantRepo{tenants: []entities.Tenant{
		{ID: 1, Domain: "a.example", Status: "active", AutomationLevel: 2},
		{ID: 2, Domain: "b.example", Status: "active", AutomationLevel: 2},
	}}
	detector := &stubDetector{
		errByTenant:    map[uint]error{1: errors.New("database gone")},
		issuesByTenant: map[uint][]entities.DetectedIssue{2: {tenantIssue(2, "high_memory")}},
	}
	runner := &stubRunner{result: &playbook.Result{Playbook: "memory_relief", Success: true}}
	notifRepo := &mockNotifRepo{}
	issues := &mockIssueRepo{}

	w := New(tenants, issues, detector, runner, notify.NewService(notifRepo, nil, testLogger()), workerSettings(), nil, testLogger())
	w.RunOnce(t.Context())

	// The first tenant's failure does not stop the second.
	assert.Equal(t, []uint{1, 2}, detector.seen)
	assert.Equal(t, 1, runner.calls)
	assert.Contains(t, notifRepo.eventTypes(), entities.EventIssueDetected)
}

func TestWorker_NotifyOnlyTenantNeverExecutes(t *testing.T) {
	tenants := &mockTenantRepo{tenants: []entities.Tenant{
		{ID: 1, Domain: "a.example", Status: "active", AutomationLevel: 1},
	}}
	detector := &stubDetector{issuesByTenant: map[uint][]entities.DetectedIssue{1: {tenantIssue(1, "disk_filling")}}}
	runner := &stubRunner{}
	notifRepo := &mockNotifRepo{}

	w := New(tenants, &mockIssueRepo{}, detector, runner, notify.NewService(notifRepo, nil, testLogger()), workerSettings(), nil, testLogger())
	w.RunOnce(t.Context())

	assert.Zero(t, runner.calls, "level 1 must never reach the playbook executor")
	assert.Equal(t, []string{entities.EventIssueDetected}, notifRepo.eventTypes())
}

func TestWorker_SuccessfulFixMarksIssue(t *testing.T) {
	tenants := &mockTenantRepo{tenants: []entities.Tenant{
		{ID: 3, Domain: "c.example", Status: "active", AutomationLevel: 2},
	}}
	detector := &stubDetector{issuesByTenant: map[uint][]entities.DetectedIssue{3: {tenantIssue(3, "high_memory")}}}
	runner := &stubRunner{result: &playbook.Result{
		Playbook: "memory_relief",
		Success:  true,
		Actions:  []playbook.ActionResult{{Name: "flush_object_cache", Success: true}},
	}}
	notifRepo := &mockNotifRepo{}
	issues := &mockIssueRepo{}

	w := New(tenants, issues, detector, runner, notify.NewService(notifRepo, nil, testLogger()), workerSettings(), nil, testLogger())
	w.RunOnce(t.Context())

	assert.Equal(t, []uint{300}, issues.autoFixed)
	assert.Equal(t, []string{entities.EventIssueDetected, entities.EventAutoFixApplied}, notifRepo.eventTypes())
}

func TestWorker_FailedFixNotifies(t *testing.T) {
	tenants := &mockTenantRepo{tenants: []entities.Tenant{
		{ID: 4, Domain: "d.example", Status: "active", AutomationLevel: 3},
	}}
	detector := &stubDetector{issuesByTenant: map[uint][]entities.DetectedIssue{4: {tenantIssue(4, "slow_queries")}}}
	runner := &stubRunner{result: &playbook.Result{Playbook: "query_remediation", Success: false}}
	notifRepo := &mockNotifRepo{}
	issues := &mockIssueRepo{}

	w := New(tenants, issues, detector, runner, notify.NewService(notifRepo, nil, testLogger()), workerSettings(), nil, testLogger())
	w.RunOnce(t.Context())

	assert.Empty(t, issues.autoFixed)
	assert.Equal(t, []string{entities.EventIssueDetected, entities.EventAutoFixFailed}, notifRepo.eventTypes())
}

func TestWorker_NoPlaybookIsNotAFailure(t *testing.T) {
	tenants := &mockTenantRepo{tenants: []entities.Tenant{
		{ID: 5, Domain: "e.example", Status: "active", AutomationLevel: 2},
	}}
	detector := &stubDetector{issuesByTenant: map[uint][]entities.DetectedIssue{5: {tenantIssue(5, "custom_type")}}}
	runner := &stubRunner{err: playbook.ErrNoPlaybook}
	notifRepo := &mockNotifRepo{}

	w := New(tenants, &mockIssueRepo{}, detector, runner, notify.NewService(notifRepo, nil, testLogger()), workerSettings(), nil, testLogger())
	w.RunOnce(t.Context())

	// Detection is still announced, but no fix-failed alarm is raised.
	assert.Equal(t, []string{entities.EventIssueDetected}, notifRepo.eventTypes())
}

func TestWorker_ShutdownSkipsRemainingTenants(t *testing.T) {
	tenants := &mockTenantRepo{tenants: []entities.Tenant{
		{ID: 1, Domain: "a.example", Status: "active", AutomationLevel: 1},
		{ID: 2, Domain: "b.example", Status: "active", AutomationLevel: 1},
		{ID: 3, Domain: "c.example", Status: "active", AutomationLevel: 1},
	}}
	ctx, cancel := context.WithCancel(t.Context())
	detector := &stubDetector{onDetect: func(tenantID uint) {
		if tenantID == 1 {
			cancel()
		}
	}}

	w := New(tenants, &mockIssueRepo{}, detector, &stubRunner{}, notify.NewService(&mockNotifRepo{}, nil, testLogger()), workerSettings(), nil, testLogger())
	err := w.Run(ctx)
	require.NoError(t, err)

	// The in-flight tenant finished; the rest were skipped.
	assert.Equal(t, []uint{1}, detector.seen)
}

func TestWorker_RosterIsCached(t *testing.T) {
	tenants := &mockTenantRepo{tenants: []entities.Tenant{
		{ID: 1, Domain: "a.example", Status: "active", AutomationLevel: 1},
	}}
	detector := &stubDetector{}

	w := New(tenants, &mockIssueRepo{}, detector, &stubRunner{}, notify.NewService(&mockNotifRepo{}, nil, testLogger()), workerSettings(), nil, testLogger())
	w.RunOnce(t.Context())
	w.RunOnce(t.Context())

	assert.Equal(t, 1, tenants.loads, "second cycle should hit the roster cache")
	assert.Len(t, detector.seen, 2)
}
