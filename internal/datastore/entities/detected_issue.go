package entities

import "time"

// Issue severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// DetectedIssue is a performance problem found by the detector. Issues are
// never deleted; resolution sets ResolvedAt. At most one open issue may
// exist per (TenantID, IssueType) pair.
type DetectedIssue struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TenantID   uint       `gorm:"not null;index:idx_issues_tenant_type,priority:1" json:"tenant_id"`
	IssueType  string     `gorm:"size:100;not null;index:idx_issues_tenant_type,priority:2" json:"issue_type"`
	Severity   string     `gorm:"size:20;not null" json:"severity"`
	DetectedAt time.Time  `gorm:"not null" json:"detected_at"`
	// Details holds JSON diagnostic context captured at detection time:
	// observed value, threshold, window statistics, sample count.
	Details    string     `gorm:"type:text;default:'{}'" json:"details"`
	ResolvedAt *time.Time `gorm:"index" json:"resolved_at"`
	AutoFixed  bool       `gorm:"not null;default:false" json:"auto_fixed"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (DetectedIssue) TableName() string {
	return "detected_issues"
}

// Open reports whether the issue has not been resolved yet.
func (i *DetectedIssue) Open() bool {
	return i.ResolvedAt == nil
}
