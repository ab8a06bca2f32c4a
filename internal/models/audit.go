package models

import "time"

// Audit is one completed document audit.
type Audit struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"-"`
	Username  string    `gorm:"index;not null" json:"username"`
	Filename  string    `gorm:"not null" json:"filename"`
	ObjectKey string    `json:"-"` // location of the original document in object storage
	Summary   string    `gorm:"type:text" json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditCompletedEvent is the record published to the audit-events topic.
type AuditCompletedEvent struct {
	AuditID   string    `json:"audit_id"`
	Username  string    `json:"username"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}
