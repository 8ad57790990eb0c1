package repository

import (
	"testing"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestIssue(t *testing.T, repo IssueRepository, tenantID uint, issueType string) *entities.DetectedIssue {
	t.Helper()
	issue := &entities.DetectedIssue{
		TenantID:   tenantID,
		IssueType:  issueType,
		Severity:   entities.SeverityWarning,
		DetectedAt: time.Now(),
		Details:    `{"current": 92.5}`,
	}
	require.NoError(t, repo.Create(t.Context(), issue))
	return issue
}

func TestIssueRepository_CreateAndFindOpen(t *testing.T) {
	repo := NewIssueRepository(setupTestDB(t))
	ctx := t.Context()

	created := createTestIssue(t, repo, 7, "high_memory")
	assert.NotZero(t, created.ID)

	found, err := repo.FindOpen(ctx, 7, "high_memory")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, found.Open())

	// Different type or tenant find nothing.
	_, err = repo.FindOpen(ctx, 7, "disk_filling")
	assert.ErrorIs(t, err, ErrIssueNotFound)
	_, err = repo.FindOpen(ctx, 8, "high_memory")
	assert.ErrorIs(t, err, ErrIssueNotFound)
}

func TestIssueRepository_Resolve(t *testing.T) {
	repo := NewIssueRepository(setupTestDB(t))
	ctx := t.Context()

	issue := createTestIssue(t, repo, 3, "slow_queries")
	resolvedAt := time.Now()
	require.NoError(t, repo.Resolve(ctx, issue.ID, resolvedAt))

	// Resolved issues are no longer open but stay queryable.
	_, err := repo.FindOpen(ctx, 3, "slow_queries")
	assert.ErrorIs(t, err, ErrIssueNotFound)

	recent, err := repo.ListRecent(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.NotNil(t, recent[0].ResolvedAt)

	// Double resolution is rejected.
	err = repo.Resolve(ctx, issue.ID, time.Now())
	assert.ErrorIs(t, err, ErrIssueNotFound)
}

func TestIssueRepository_ListOpen(t *testing.T) {
	repo := NewIssueRepository(setupTestDB(t))
	ctx := t.Context()

	first := createTestIssue(t, repo, 5, "high_memory")
	second := createTestIssue(t, repo, 5, "disk_filling")
	resolved := createTestIssue(t, repo, 5, "high_cpu")
	require.NoError(t, repo.Resolve(ctx, resolved.ID, time.Now()))

	open, err := repo.ListOpen(ctx, 5)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, first.ID, open[0].ID)
	assert.Equal(t, second.ID, open[1].ID)
}

func TestIssueRepository_MarkAutoFixed(t *testing.T) {
	repo := NewIssueRepository(setupTestDB(t))
	ctx := t.Context()

	issue := createTestIssue(t, repo, 9, "disk_filling")
	require.NoError(t, repo.MarkAutoFixed(ctx, issue.ID))

	recent, err := repo.ListRecent(ctx, 9, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].AutoFixed)

	assert.ErrorIs(t, repo.MarkAutoFixed(ctx, 99999), ErrIssueNotFound)
}
