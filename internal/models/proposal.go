// internal/models/proposal.go
package models

import (
	"gorm.io/datatypes"
)

type ProposalItem struct {
	Name           string   `json:"name"`
	Quantity       *float64 `json:"quantity"`
	UnitPrice      *float64 `json:"unit_price"`
	Specifications string   `json:"specifications"`
}

type Proposal struct {
	BaseModel
	RFPID             uint                              `json:"rfp_id" gorm:"not null;uniqueIndex:idx_proposals_pair"`
	VendorID          uint                              `json:"vendor_id" gorm:"not null;uniqueIndex:idx_proposals_pair;index"`
	TotalPrice        *float64                          `json:"total_price" gorm:"type:decimal(14,2)"`
	Currency          string                            `json:"currency" gorm:"size:10"`
	DeliveryTimeDays  *int                              `json:"delivery_time_days"`
	PaymentTerms      string                            `json:"payment_terms" gorm:"type:text"`
	WarrantyOffered   string                            `json:"warranty_offered" gorm:"type:text"`
	AdditionalTerms   string                            `json:"additional_terms" gorm:"type:text"`
	CompletenessScore int                               `json:"completeness_score" gorm:"not null;default:0"`
	RawEmailBody      string                            `json:"raw_email_body" gorm:"type:text"`
	ParsedItems       datatypes.JSONSlice[ProposalItem] `json:"parsed_items"`
	AIScore           *float64                          `json:"ai_score" gorm:"type:decimal(5,2)"`
	AISummary         *string                           `json:"ai_summary" gorm:"type:text"`

	// Relationships
	RFP    *RFP    `json:"rfp,omitempty" gorm:"foreignKey:RFPID;constraint:OnDelete:CASCADE"`
	Vendor *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID;constraint:OnDelete:CASCADE"`
}

type ProposalStats struct {
	TotalProposals       int64    `json:"total_proposals"`
	AvgCompletenessScore *float64 `json:"avg_completeness_score"`
	AvgAIScore           *float64 `json:"avg_ai_score"`
}
