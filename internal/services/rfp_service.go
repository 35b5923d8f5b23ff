// internal/services/rfp_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/javajoker/rfp-backend/internal/database"
	"github.com/javajoker/rfp-backend/internal/models"
	"github.com/javajoker/rfp-backend/internal/utils"
)

type RFPService struct {
	db *gorm.DB
}

type CreateRFPRequest struct {
	Title                  string           `json:"title" validate:"required,max=255"`
	Description            string           `json:"description" validate:"required"`
	Budget                 *float64         `json:"budget" validate:"omitempty,gte=0"`
	Currency               string           `json:"currency" validate:"omitempty,currency_code"`
	DeliveryDeadline       *models.Date     `json:"delivery_deadline"`
	PaymentTerms           string           `json:"payment_terms"`
	WarrantyRequirements   string           `json:"warranty_requirements"`
	Items                  []models.RFPItem `json:"items" validate:"required,min=1,dive"`
	AdditionalRequirements string           `json:"additional_requirements"`
}

type UpdateRFPRequest struct {
	Title                  *string           `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description            *string           `json:"description,omitempty" validate:"omitempty,min=1"`
	Budget                 *float64          `json:"budget,omitempty" validate:"omitempty,gte=0"`
	Currency               *string           `json:"currency,omitempty" validate:"omitempty,currency_code"`
	DeliveryDeadline       *models.Date      `json:"delivery_deadline,omitempty"`
	PaymentTerms           *string           `json:"payment_terms,omitempty"`
	WarrantyRequirements   *string           `json:"warranty_requirements,omitempty"`
	Items                  []models.RFPItem  `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	AdditionalRequirements *string           `json:"additional_requirements,omitempty"`
	Status                 *models.RFPStatus `json:"status,omitempty" validate:"omitempty,rfp_status"`
}

// RFPWithVendors is an RFP with the vendors it has been assigned to.
type RFPWithVendors struct {
	models.RFP
	Vendors []models.VendorWithStatus `json:"vendors"`
}

func NewRFPService(db *gorm.DB) *RFPService {
	return &RFPService{db: db}
}

func (s *RFPService) CreateRFP(ctx context.Context, req *CreateRFPRequest) (*models.RFP, error) {
	req.Currency = normalizeCurrency(req.Currency)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	rfp := &models.RFP{
		Title:                  strings.TrimSpace(req.Title),
		Description:            req.Description,
		Budget:                 req.Budget,
		Currency:               currency,
		DeliveryDeadline:       nonZeroDate(req.DeliveryDeadline),
		PaymentTerms:           req.PaymentTerms,
		WarrantyRequirements:   req.WarrantyRequirements,
		Items:                  datatypes.NewJSONSlice(req.Items),
		AdditionalRequirements: req.AdditionalRequirements,
		Status:                 models.RFPStatusDraft,
	}

	if err := s.db.WithContext(ctx).Create(rfp).Error; err != nil {
		return nil, fmt.Errorf("failed to create RFP: %w", err)
	}

	logrus.WithField("rfp_id", rfp.ID).Info("RFP created")
	return rfp, nil
}

func (s *RFPService) GetRFP(ctx context.Context, id uint) (*models.RFP, error) {
	var rfp models.RFP
	if err := s.db.WithContext(ctx).First(&rfp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRFPNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &rfp, nil
}

// ListRFPs returns RFPs newest first, filtered by status and a
// case-insensitive search over title and description.
func (s *RFPService) ListRFPs(ctx context.Context, params utils.PaginationParams) ([]models.RFP, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.RFP{})

	if params.Status != "" {
		status := models.RFPStatus(params.Status)
		if !status.Valid() {
			return nil, 0, ErrInvalidStatus
		}
		query = query.Where("status = ?", status)
	}

	if search := strings.TrimSpace(params.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count RFPs: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "title", "status"})
	query = utils.ApplyPagination(query, params)

	var rfps []models.RFP
	if err := query.Order("id DESC").Find(&rfps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list RFPs: %w", err)
	}

	return rfps, total, nil
}

func (s *RFPService) UpdateRFP(ctx context.Context, id uint, req *UpdateRFPRequest) (*models.RFP, error) {
	if req.Currency != nil {
		currency := normalizeCurrency(*req.Currency)
		req.Currency = &currency
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	rfp, err := s.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Budget != nil {
		updates["budget"] = *req.Budget
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.DeliveryDeadline != nil {
		updates["delivery_deadline"] = *req.DeliveryDeadline
	}
	if req.PaymentTerms != nil {
		updates["payment_terms"] = *req.PaymentTerms
	}
	if req.WarrantyRequirements != nil {
		updates["warranty_requirements"] = *req.WarrantyRequirements
	}
	if len(req.Items) > 0 {
		updates["items"] = datatypes.NewJSONSlice(req.Items)
	}
	if req.AdditionalRequirements != nil {
		updates["additional_requirements"] = *req.AdditionalRequirements
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(updates) == 0 {
		return rfp, nil
	}

	if err := s.db.WithContext(ctx).Model(rfp).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update RFP: %w", err)
	}

	return s.GetRFP(ctx, id)
}

// DeleteRFP removes the RFP together with its associations, proposals and
// email logs.
func (s *RFPService) DeleteRFP(ctx context.Context, id uint) error {
	if _, err := s.GetRFP(ctx, id); err != nil {
		return err
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Where("rfp_id = ?", id).Delete(&models.EmailLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete email logs: %w", err)
		}
		if err := tx.Where("rfp_id = ?", id).Delete(&models.Proposal{}).Error; err != nil {
			return fmt.Errorf("failed to delete proposals: %w", err)
		}
		if err := tx.Where("rfp_id = ?", id).Delete(&models.RFPVendor{}).Error; err != nil {
			return fmt.Errorf("failed to delete vendor assignments: %w", err)
		}
		if err := tx.Delete(&models.RFP{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete RFP: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithField("rfp_id", id).Info("RFP deleted")
	return nil
}

// GetRFPVendors returns the RFP with only the vendors assigned to it.
func (s *RFPService) GetRFPVendors(ctx context.Context, id uint) (*RFPWithVendors, error) {
	rfp, err := s.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}

	vendors := []models.VendorWithStatus{}
	err = s.db.WithContext(ctx).
		Table("vendors").
		Select("vendors.*, rfp_vendors.status AS rfp_status, rfp_vendors.sent_at, rfp_vendors.email_message_id").
		Joins("JOIN rfp_vendors ON rfp_vendors.vendor_id = vendors.id").
		Where("rfp_vendors.rfp_id = ?", id).
		Order("vendors.name").
		Scan(&vendors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load RFP vendors: %w", err)
	}

	return &RFPWithVendors{RFP: *rfp, Vendors: vendors}, nil
}

// GetEmailLogs returns the RFP's email trail, newest first.
func (s *RFPService) GetEmailLogs(ctx context.Context, id uint) ([]models.EmailLog, error) {
	if _, err := s.GetRFP(ctx, id); err != nil {
		return nil, err
	}

	logs := []models.EmailLog{}
	err := s.db.WithContext(ctx).
		Preload("Vendor").
		Where("rfp_id = ?", id).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load email logs: %w", err)
	}
	return logs, nil
}

func (s *RFPService) GetEmailLog(ctx context.Context, id uint) (*models.EmailLog, error) {
	var log models.EmailLog
	if err := s.db.WithContext(ctx).First(&log, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmailLogNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &log, nil
}

// MarkSentIfDraft moves a draft RFP to sent. RFPs in any other status are
// left untouched so the status never moves backward.
func (s *RFPService) MarkSentIfDraft(ctx context.Context, id uint) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.RFP{}).
		Where("id = ? AND status = ?", id, models.RFPStatusDraft).
		Update("status", models.RFPStatusSent)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update RFP status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func nonZeroDate(d *models.Date) *models.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
