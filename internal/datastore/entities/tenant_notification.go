package entities

import "time"

// Notification event types.
const (
	EventIssueDetected  = "issue_detected"
	EventIssueResolved  = "issue_resolved"
	EventAutoFixApplied = "auto_fix_applied"
	EventAutoFixFailed  = "auto_fix_failed"
)

// TenantNotification is a message surfaced to a tenant about detection or
// remediation activity on their site.
type TenantNotification struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TenantID       uint       `gorm:"not null;index:idx_notifications_tenant_read,priority:1" json:"tenant_id"`
	EventType      string     `gorm:"size:50;not null" json:"event_type"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Message        string     `gorm:"size:2000;not null" json:"message"`
	Severity       string     `gorm:"size:20;not null;default:'info'" json:"severity"`
	RelatedIssueID *uint      `gorm:"index" json:"related_issue_id"`
	IsRead         bool       `gorm:"not null;default:false;index:idx_notifications_tenant_read,priority:2" json:"is_read"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName returns the table name for GORM.
func (TenantNotification) TableName() string {
	return "tenant_notifications"
}
