package entities

import "time"

// AutomationAction is one append-only audit row for an action attempted by
// an automated playbook run. RunID correlates all rows of one run.
type AutomationAction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     uint      `gorm:"not null;index" json:"tenant_id"`
	IssueID      *uint     `gorm:"index" json:"issue_id"`
	RunID        string    `gorm:"size:36;not null;index" json:"run_id"`
	PlaybookName string    `gorm:"size:100;not null" json:"playbook_name"`
	ActionName   string    `gorm:"size:100;not null" json:"action_name"`
	ExecutedAt   time.Time `gorm:"not null;index" json:"executed_at"`
	Success      bool      `gorm:"not null" json:"success"`
	// Result holds JSON output or error context from the action.
	Result    string    `gorm:"type:text;default:'{}'" json:"result"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (AutomationAction) TableName() string {
	return "automation_actions"
}
