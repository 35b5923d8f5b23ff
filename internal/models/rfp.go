// internal/models/rfp.go
package models

import (
	"gorm.io/datatypes"
)

type RFPItem struct {
	Name           string  `json:"name" validate:"required"`
	Quantity       float64 `json:"quantity" validate:"gte=0"`
	Specifications string  `json:"specifications"`
}

type RFP struct {
	BaseModel
	Title                  string                       `json:"title" gorm:"size:255;not null"`
	Description            string                       `json:"description" gorm:"type:text;not null"`
	Budget                 *float64                     `json:"budget" gorm:"type:decimal(14,2)"`
	Currency               string                       `json:"currency" gorm:"size:10;not null;default:USD"`
	DeliveryDeadline       *Date                        `json:"delivery_deadline"`
	PaymentTerms           string                       `json:"payment_terms" gorm:"type:text"`
	WarrantyRequirements   string                       `json:"warranty_requirements" gorm:"type:text"`
	Items                  datatypes.JSONSlice[RFPItem] `json:"items"`
	AdditionalRequirements string                       `json:"additional_requirements" gorm:"type:text"`
	Status                 RFPStatus                    `json:"status" gorm:"size:20;not null;default:draft;index"`
}

func (RFP) TableName() string {
	return "rfps"
}

// Reference is the token vendors are asked to keep in their replies.
func (r *RFP) Reference() string {
	return RFPReference(r.ID)
}
