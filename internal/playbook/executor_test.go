package playbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/hostwarden/hostwarden/internal/container"
	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/hostwarden/hostwarden/internal/datastore/repository"
	"github.com/hostwarden/hostwarden/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

// fakeExec scripts container command outcomes by substring match on the
// joined argv (or query text).
type fakeExec struct {
	calls []string
	// errFor returns an error when the call contains the key.
	errFor map[string]error
	// exitFor returns a non-zero exit when the call contains the key.
	exitFor map[string]int
	// outFor sets stdout when the call contains the key.
	outFor map[string]string
}

func (f *fakeExec) Run(_ context.Context, workloadID string, cmd container.Command) (*container.ExecResult, error) {
	return f.record(workloadID + " " + strings.Join(cmd.Argv, " "))
}

func (f *fakeExec) RunQuery(_ context.Context, workloadID string, query string, _ time.Duration) (*container.ExecResult, error) {
	return f.record(workloadID + " " + query)
}

func (f *fakeExec) record(call string) (*container.ExecResult, error) {
	f.calls = append(f.calls, call)
	for key, err := range f.errFor {
		if strings.Contains(call, key) {
			return nil, err
		}
	}
	res := &container.ExecResult{}
	for key, code := range f.exitFor {
		if strings.Contains(call, key) {
			res.ExitCode = code
			res.Stderr = "scripted failure"
		}
	}
	for key, out := range f.outFor {
		if strings.Contains(call, key) {
			res.Stdout = out
		}
	}
	return res, nil
}

func (f *fakeExec) called(substr string) bool {
	for _, c := range f.calls {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// mockActionLog collects appended audit rows.
type mockActionLog struct {
	rows    []entities.AutomationAction
	failErr error
}

func (m *mockActionLog) Append(_ context.Context, row *entities.AutomationAction) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.rows = append(m.rows, *row)
	return nil
}

func (m *mockActionLog) ListByTenant(context.Context, uint, int) ([]entities.AutomationAction, error) {
	return m.rows, nil
}

func (m *mockActionLog) ListByIssue(context.Context, uint) ([]entities.AutomationAction, error) {
	return m.rows, nil
}

func (m *mockActionLog) Stats(context.Context, time.Time) (repository.ActionStats, error) {
	return repository.ActionStats{}, nil
}

// mockSnapshots serves a single metric map as the latest snapshot.
type mockSnapshots struct {
	metrics string
}

func (m *mockSnapshots) Latest(context.Context, uint, time.Time) (*entities.PerformanceSnapshot, error) {
	if m.metrics == "" {
		return nil, repository.ErrSnapshotNotFound
	}
	return &entities.PerformanceSnapshot{TenantID: 1, Timestamp: time.Now(), Metrics: m.metrics}, nil
}

func (m *mockSnapshots) Window(context.Context, uint, time.Time, time.Time) ([]entities.PerformanceSnapshot, error) {
	return nil, nil
}

func (m *mockSnapshots) Create(context.Context, *entities.PerformanceSnapshot) error { return nil }

func (m *mockSnapshots) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func testTenant(level int, platform string) *entities.Tenant {
	return &entities.Tenant{ID: 7, Domain: "shop.example", Platform: platform, Status: "active", AutomationLevel: level}
}

func memoryIssue() *entities.DetectedIssue {
	return &entities.DetectedIssue{ID: 21, TenantID: 7, IssueType: "high_memory", Severity: "warning", DetectedAt: time.Now()}
}

func newTestExecutor(exec *fakeExec, log *mockActionLog, snaps *mockSnapshots) *Executor {
	return NewExecutor(exec, log, snaps, DefaultCatalog(), testLogger())
}

func TestExecutor_SuccessDecoupledFromLaterFailures(t *testing.T) {
	exec := &fakeExec{
		exitFor: map[string]int{"kill -USR2": 1},
	}
	audit := &mockActionLog{}
	// Memory still high so the restart step is attempted (and fails).
	e := newTestExecutor(exec, audit, &mockSnapshots{metrics: `{"memory_percent": 91}`})

	result, err := e.Execute(t.Context(), testTenant(2, PlatformWordPress), memoryIssue())
	require.NoError(t, err)
	assert.True(t, result.Success, "primary cache flush succeeded, later failure must not flip the verdict")

	byName := resultsByName(result)
	assert.True(t, byName["flush_object_cache"].Success)
	assert.False(t, byName["restart_php_fpm"].Success)
	assert.NotEmpty(t, byName["restart_php_fpm"].Error)
}

func TestExecutor_AutomationLevelGating(t *testing.T) {
	issue := &entities.DetectedIssue{ID: 5, TenantID: 7, IssueType: "disk_critical", Severity: "critical", DetectedAt: time.Now()}

	t.Run("level 1 executes nothing", func(t *testing.T) {
		exec := &fakeExec{}
		audit := &mockActionLog{}
		e := newTestExecutor(exec, audit, &mockSnapshots{metrics: `{"disk_percent": 96}`})

		result, err := e.Execute(t.Context(), testTenant(1, PlatformWordPress), issue)
		require.NoError(t, err)
		assert.Empty(t, exec.calls)
		assert.Empty(t, audit.rows)
		for _, ar := range result.Actions {
			assert.True(t, ar.Skipped)
		}
	})

	t.Run("level 2 skips aggressive actions", func(t *testing.T) {
		exec := &fakeExec{}
		e := newTestExecutor(exec, &mockActionLog{}, &mockSnapshots{metrics: `{"disk_percent": 96}`})

		result, err := e.Execute(t.Context(), testTenant(2, PlatformWordPress), issue)
		require.NoError(t, err)
		byName := resultsByName(result)
		assert.False(t, byName["clear_old_logs"].Skipped)
		assert.True(t, byName["clear_old_backups"].Skipped)
		assert.False(t, exec.called("/var/backups"))
	})

	t.Run("level 3 runs aggressive actions", func(t *testing.T) {
		exec := &fakeExec{}
		e := newTestExecutor(exec, &mockActionLog{}, &mockSnapshots{metrics: `{"disk_percent": 96}`})

		result, err := e.Execute(t.Context(), testTenant(3, PlatformWordPress), issue)
		require.NoError(t, err)
		byName := resultsByName(result)
		assert.False(t, byName["clear_old_backups"].Skipped)
		assert.True(t, exec.called("/var/backups"))
	})
}

func TestExecutor_ConditionalKillNeedsCapturedQueries(t *testing.T) {
	issue := &entities.DetectedIssue{ID: 6, TenantID: 7, IssueType: "slow_queries", Severity: "warning", DetectedAt: time.Now()}

	t.Run("no long queries", func(t *testing.T) {
		exec := &fakeExec{outFor: map[string]string{"processlist": "id\ttime\tinfo\n"}}
		e := newTestExecutor(exec, &mockActionLog{}, &mockSnapshots{})

		result, err := e.Execute(t.Context(), testTenant(3, PlatformWordPress), issue)
		require.NoError(t, err)
		byName := resultsByName(result)
		assert.True(t, byName["kill_long_queries"].Skipped)
		assert.Equal(t, "no queries over 30s", byName["kill_long_queries"].SkipReason)
		assert.True(t, result.Success)
	})

	t.Run("captured queries get killed", func(t *testing.T) {
		exec := &fakeExec{outFor: map[string]string{
			"processlist": "id\ttime\tinfo\n101\t45\tSELECT ...\n102\t61\tUPDATE ...\n",
		}}
		e := newTestExecutor(exec, &mockActionLog{}, &mockSnapshots{})

		result, err := e.Execute(t.Context(), testTenant(3, PlatformWordPress), issue)
		require.NoError(t, err)
		byName := resultsByName(result)
		assert.True(t, byName["kill_long_queries"].Success)
		assert.Contains(t, byName["kill_long_queries"].Output, "killed 2 of 2")
		assert.True(t, exec.called("KILL 101"))
		assert.True(t, exec.called("KILL 102"))
	})
}

func TestExecutor_PlatformFiltering(t *testing.T) {
	exec := &fakeExec{}
	e := newTestExecutor(exec, &mockActionLog{}, &mockSnapshots{metrics: `{"memory_percent": 50}`})

	result, err := e.Execute(t.Context(), testTenant(2, PlatformMagento), memoryIssue())
	require.NoError(t, err)
	byName := resultsByName(result)
	assert.True(t, byName["clear_transients"].Skipped)
	assert.False(t, byName["clear_sessions"].Skipped)
	// Magento cache flush, not wp-cli.
	assert.True(t, exec.called("bin/magento cache:flush"))
	assert.False(t, exec.called("wp cache flush"))
	// Memory recovered, restart not needed.
	assert.True(t, byName["restart_php_fpm"].Skipped)
}

func TestExecutor_WorkloadDownContinuesSequence(t *testing.T) {
	exec := &fakeExec{errFor: map[string]error{"wp cache flush": container.ErrWorkloadNotRunning}}
	audit := &mockActionLog{}
	e := newTestExecutor(exec, audit, &mockSnapshots{metrics: `{"memory_percent": 50}`})

	result, err := e.Execute(t.Context(), testTenant(2, PlatformWordPress), memoryIssue())
	require.NoError(t, err)
	byName := resultsByName(result)
	assert.False(t, byName["flush_object_cache"].Success)
	// The sequence keeps going after the failure.
	assert.False(t, byName["clear_transients"].Skipped)
	// memory_relief keys success to the flush action.
	assert.False(t, result.Success)
}

func TestExecutor_AuditRows(t *testing.T) {
	exec := &fakeExec{}
	audit := &mockActionLog{}
	e := newTestExecutor(exec, audit, &mockSnapshots{metrics: `{"memory_percent": 50}`})
	issue := memoryIssue()

	result, err := e.Execute(t.Context(), testTenant(2, PlatformWordPress), issue)
	require.NoError(t, err)

	// One row per executed action, none for skipped ones.
	executed := 0
	for _, ar := range result.Actions {
		if !ar.Skipped {
			executed++
		}
	}
	require.Len(t, audit.rows, executed)
	for _, row := range audit.rows {
		assert.Equal(t, uint(7), row.TenantID)
		require.NotNil(t, row.IssueID)
		assert.Equal(t, issue.ID, *row.IssueID)
		assert.Equal(t, result.RunID, row.RunID)
		assert.Equal(t, PlaybookMemoryRelief, row.PlaybookName)
	}
}

func TestExecutor_AuditFailureIsSwallowed(t *testing.T) {
	exec := &fakeExec{}
	audit := &mockActionLog{failErr: errors.New("disk full")}
	e := newTestExecutor(exec, audit, &mockSnapshots{metrics: `{"memory_percent": 50}`})

	result, err := e.Execute(t.Context(), testTenant(2, PlatformWordPress), memoryIssue())
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestExecutor_NoPlaybook(t *testing.T) {
	e := newTestExecutor(&fakeExec{}, &mockActionLog{}, &mockSnapshots{})
	issue := &entities.DetectedIssue{IssueType: "unknown_type"}
	_, err := e.Execute(t.Context(), testTenant(2, PlatformWordPress), issue)
	assert.ErrorIs(t, err, ErrNoPlaybook)
}

func resultsByName(result *Result) map[string]ActionResult {
	out := make(map[string]ActionResult, len(result.Actions))
	for _, ar := range result.Actions {
		out[ar.Name] = ar
	}
	return out
}

func TestSafetyAllowed(t *testing.T) {
	cases := []struct {
		level  int
		safety string
		want   bool
	}{
		{1, SafetySafe, false},
		{1, SafetyModerate, false},
		{1, SafetyAggressive, false},
		{2, SafetySafe, true},
		{2, SafetyModerate, true},
		{2, SafetyAggressive, false},
		{3, SafetySafe, true},
		{3, SafetyModerate, true},
		{3, SafetyAggressive, true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("level%d_%s", tc.level, tc.safety), func(t *testing.T) {
			assert.Equal(t, tc.want, SafetyAllowed(tc.level, tc.safety))
		})
	}
}
