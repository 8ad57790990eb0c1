package repository

import "errors"

// Sentinel errors returned by repositories. Callers distinguish them with
// errors.Is.
var (
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrIssueNotFound        = errors.New("detected issue not found")
	ErrSnapshotNotFound     = errors.New("performance snapshot not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
