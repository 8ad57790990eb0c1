package entities

import "time"

// AdminIntervention records an operator-triggered playbook run. These are
// kept apart from automated remediation so incident reviews can tell human
// actions from machine actions.
type AdminIntervention struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     uint      `gorm:"not null;index" json:"tenant_id"`
	OperatorID   uint      `gorm:"not null;index" json:"operator_id"`
	PlaybookName string    `gorm:"size:100;not null" json:"playbook_name"`
	Reason       string    `gorm:"size:500;default:''" json:"reason"`
	ExecutedAt   time.Time `gorm:"not null" json:"executed_at"`
	Success      bool      `gorm:"not null" json:"success"`
	// Result holds the JSON-encoded per-action outcomes of the run.
	Result    string    `gorm:"type:text;default:'{}'" json:"result"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (AdminIntervention) TableName() string {
	return "admin_interventions"
}
