// internal/models/email_log.go
package models

import (
	"time"
)

// EmailLog is append-only: one row per send attempt or processed reply.
type EmailLog struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	RFPID        uint           `json:"rfp_id" gorm:"not null;index"`
	VendorID     *uint          `json:"vendor_id" gorm:"index"`
	Direction    EmailDirection `json:"direction" gorm:"size:20;not null"`
	Subject      string         `json:"subject" gorm:"size:500"`
	Body         string         `json:"body" gorm:"type:text"`
	MessageID    string         `json:"message_id" gorm:"size:255;index"`
	Status       EmailStatus    `json:"status" gorm:"size:20;not null"`
	ErrorMessage string         `json:"error_message" gorm:"type:text"`
	RawObjectKey string         `json:"raw_object_key,omitempty" gorm:"size:500"`
	CreatedAt    time.Time      `json:"created_at" gorm:"index"`

	// Relationships
	Vendor *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
}
