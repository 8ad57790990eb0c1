package entities

import "time"

// Tenant automation levels. Level 1 only notifies, level 2 adds safe and
// moderate remediation actions, level 3 enables everything including
// aggressive actions.
const (
	AutomationNotifyOnly = 1
	AutomationStandard   = 2
	AutomationFull       = 3
)

// Tenant is a hosted site whose workloads the remediation system watches.
type Tenant struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Domain          string    `gorm:"size:255;not null;uniqueIndex" json:"domain"`
	Platform        string    `gorm:"size:50;not null;default:'wordpress'" json:"platform"`
	Status          string    `gorm:"size:20;not null;default:'active';index" json:"status"`
	AutomationLevel int       `gorm:"not null;default:2" json:"automation_level"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Tenant) TableName() string {
	return "tenants"
}
