// internal/models/vendor.go
package models

import (
	"fmt"
	"time"
)

type Vendor struct {
	BaseModel
	Name           string `json:"name" gorm:"size:255;not null"`
	Email          string `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Phone          string `json:"phone" gorm:"size:50"`
	CompanyName    string `json:"company_name" gorm:"size:255"`
	Address        string `json:"address" gorm:"type:text"`
	Specialization string `json:"specialization" gorm:"size:255"`
	Notes          string `json:"notes" gorm:"type:text"`
}

// RFPVendor records a vendor being targeted by an RFP.
type RFPVendor struct {
	BaseModel
	RFPID          uint              `json:"rfp_id" gorm:"not null;uniqueIndex:idx_rfp_vendors_pair"`
	VendorID       uint              `json:"vendor_id" gorm:"not null;uniqueIndex:idx_rfp_vendors_pair;index"`
	Status         AssociationStatus `json:"status" gorm:"size:20;not null;default:pending"`
	SentAt         *time.Time        `json:"sent_at"`
	EmailMessageID string            `json:"email_message_id" gorm:"size:255"`

	// Relationships
	RFP    *RFP    `json:"rfp,omitempty" gorm:"foreignKey:RFPID;constraint:OnDelete:CASCADE"`
	Vendor *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID;constraint:OnDelete:CASCADE"`
}

func (RFPVendor) TableName() string {
	return "rfp_vendors"
}

// VendorWithStatus is a vendor row joined with its association to one RFP.
type VendorWithStatus struct {
	Vendor
	RFPStatus      *AssociationStatus `json:"rfp_status"`
	SentAt         *time.Time         `json:"sent_at"`
	EmailMessageID *string            `json:"email_message_id,omitempty"`
}

func RFPReference(id uint) string {
	return fmt.Sprintf("RFP-%d", id)
}
