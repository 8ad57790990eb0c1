package repository

import (
	"testing"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendTestAction(t *testing.T, repo ActionLogRepository, tenantID uint, issueID *uint, name string, success bool, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Append(t.Context(), &entities.AutomationAction{
		TenantID:     tenantID,
		IssueID:      issueID,
		RunID:        "run-1",
		PlaybookName: "memory_relief",
		ActionName:   name,
		ExecutedAt:   at,
		Success:      success,
		Result:       `{"output": ""}`,
	}))
}

func TestActionLogRepository_AppendAndList(t *testing.T) {
	repo := NewActionLogRepository(setupTestDB(t))
	ctx := t.Context()
	now := time.Now().Truncate(time.Second)
	issueID := uint(11)

	appendTestAction(t, repo, 1, &issueID, "flush_object_cache", true, now.Add(-2*time.Minute))
	appendTestAction(t, repo, 1, &issueID, "restart_php_fpm", false, now.Add(-time.Minute))
	appendTestAction(t, repo, 2, nil, "clear_old_logs", true, now)

	byTenant, err := repo.ListByTenant(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, byTenant, 2)
	// Newest first.
	assert.Equal(t, "restart_php_fpm", byTenant[0].ActionName)

	byIssue, err := repo.ListByIssue(ctx, issueID)
	require.NoError(t, err)
	require.Len(t, byIssue, 2)
	// Execution order.
	assert.Equal(t, "flush_object_cache", byIssue[0].ActionName)
}

func TestActionLogRepository_Stats(t *testing.T) {
	repo := NewActionLogRepository(setupTestDB(t))
	ctx := t.Context()
	now := time.Now()

	appendTestAction(t, repo, 1, nil, "a", true, now.Add(-time.Hour))
	appendTestAction(t, repo, 1, nil, "b", true, now.Add(-time.Hour))
	appendTestAction(t, repo, 1, nil, "c", false, now.Add(-time.Hour))
	// Outside the window.
	appendTestAction(t, repo, 1, nil, "old", false, now.Add(-10*24*time.Hour))

	stats, err := repo.Stats(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 2, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Failed)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 0.001)
}

func TestActionLogRepository_StatsEmpty(t *testing.T) {
	repo := NewActionLogRepository(setupTestDB(t))
	stats, err := repo.Stats(t.Context(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.SuccessRate)
}
