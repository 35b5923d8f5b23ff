// internal/services/vendor_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/rfp-backend/internal/database"
	"github.com/javajoker/rfp-backend/internal/models"
	"github.com/javajoker/rfp-backend/internal/utils"
)

type VendorService struct {
	db *gorm.DB
}

type CreateVendorRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"max=50"`
	CompanyName    string `json:"company_name" validate:"max=255"`
	Address        string `json:"address"`
	Specialization string `json:"specialization" validate:"max=255"`
	Notes          string `json:"notes"`
}

type UpdateVendorRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	CompanyName    *string `json:"company_name,omitempty" validate:"omitempty,max=255"`
	Address        *string `json:"address,omitempty"`
	Specialization *string `json:"specialization,omitempty" validate:"omitempty,max=255"`
	Notes          *string `json:"notes,omitempty"`
}

// AssociationUpdate carries the fields set when an association advances.
type AssociationUpdate struct {
	Status         models.AssociationStatus
	SentAt         *time.Time
	EmailMessageID string
}

func NewVendorService(db *gorm.DB) *VendorService {
	return &VendorService{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *VendorService) CreateVendor(ctx context.Context, req *CreateVendorRequest) (*models.Vendor, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	vendor := &models.Vendor{
		Name:           strings.TrimSpace(req.Name),
		Email:          normalizeEmail(req.Email),
		Phone:          req.Phone,
		CompanyName:    req.CompanyName,
		Address:        req.Address,
		Specialization: req.Specialization,
		Notes:          req.Notes,
	}

	if err := s.db.WithContext(ctx).Create(vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrVendorEmailExists
		}
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"vendor_id": vendor.ID,
		"email":     vendor.Email,
	}).Info("Vendor created")
	return vendor, nil
}

func (s *VendorService) GetVendor(ctx context.Context, id uint) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := s.db.WithContext(ctx).First(&vendor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &vendor, nil
}

// GetVendorByEmail matches the lowercased address exactly.
func (s *VendorService) GetVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &vendor, nil
}

// GetVendorsByIDs loads the vendors in the order requested. Any missing id
// fails the whole lookup.
func (s *VendorService) GetVendorsByIDs(ctx context.Context, ids []uint) ([]models.Vendor, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.Vendor{}, nil
	}

	var found []models.Vendor
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load vendors: %w", err)
	}

	byID := make(map[uint]models.Vendor, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}

	vendors := make([]models.Vendor, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrVendorNotFound, id)
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

func (s *VendorService) ListVendors(ctx context.Context, params utils.PaginationParams) ([]models.Vendor, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Vendor{})

	if search := strings.TrimSpace(params.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ? OR LOWER(specialization) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count vendors: %w", err)
	}

	if params.Sort == "" {
		params.Sort = "name"
		if params.Order == "" {
			params.Order = "asc"
		}
	}
	query = utils.ApplySort(query, params, []string{"name", "created_at", "company_name", "email"})
	query = utils.ApplyPagination(query, params)

	var vendors []models.Vendor
	if err := query.Order("id").Find(&vendors).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list vendors: %w", err)
	}
	return vendors, total, nil
}

func (s *VendorService) UpdateVendor(ctx context.Context, id uint, req *UpdateVendorRequest) (*models.Vendor, error) {
	if req.Email != nil {
		trimmed := strings.TrimSpace(*req.Email)
		req.Email = &trimmed
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	vendor, err := s.GetVendor(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["email"] = normalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Specialization != nil {
		updates["specialization"] = *req.Specialization
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if len(updates) == 0 {
		return vendor, nil
	}

	if err := s.db.WithContext(ctx).Model(vendor).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrVendorEmailExists
		}
		return nil, fmt.Errorf("failed to update vendor: %w", err)
	}

	return s.GetVendor(ctx, id)
}

// DeleteVendor removes the vendor with its associations and proposals. Email
// logs are kept with the vendor reference cleared.
func (s *VendorService) DeleteVendor(ctx context.Context, id uint) error {
	if _, err := s.GetVendor(ctx, id); err != nil {
		return err
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Model(&models.EmailLog{}).Where("vendor_id = ?", id).Update("vendor_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach email logs: %w", err)
		}
		if err := tx.Where("vendor_id = ?", id).Delete(&models.Proposal{}).Error; err != nil {
			return fmt.Errorf("failed to delete proposals: %w", err)
		}
		if err := tx.Where("vendor_id = ?", id).Delete(&models.RFPVendor{}).Error; err != nil {
			return fmt.Errorf("failed to delete vendor assignments: %w", err)
		}
		if err := tx.Delete(&models.Vendor{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete vendor: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithField("vendor_id", id).Info("Vendor deleted")
	return nil
}

// GetVendorsForRFP lists every vendor with its association to the RFP, if
// any. Unassigned vendors have a nil rfp_status.
func (s *VendorService) GetVendorsForRFP(ctx context.Context, rfpID uint) ([]models.VendorWithStatus, error) {
	if err := s.ensureRFP(ctx, rfpID); err != nil {
		return nil, err
	}

	vendors := []models.VendorWithStatus{}
	err := s.db.WithContext(ctx).
		Table("vendors").
		Select("vendors.*, rfp_vendors.status AS rfp_status, rfp_vendors.sent_at, rfp_vendors.email_message_id").
		Joins("LEFT JOIN rfp_vendors ON rfp_vendors.vendor_id = vendors.id AND rfp_vendors.rfp_id = ?", rfpID).
		Order("vendors.name").
		Scan(&vendors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load vendors for RFP: %w", err)
	}
	return vendors, nil
}

// AssignVendorsToRFP creates pending associations in one transaction.
// Existing pairs are left as they are.
func (s *VendorService) AssignVendorsToRFP(ctx context.Context, rfpID uint, vendorIDs []uint) error {
	if err := s.ensureRFP(ctx, rfpID); err != nil {
		return err
	}
	if _, err := s.GetVendorsByIDs(ctx, vendorIDs); err != nil {
		return err
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		for _, vendorID := range uniqueIDs(vendorIDs) {
			association := &models.RFPVendor{
				RFPID:    rfpID,
				VendorID: vendorID,
				Status:   models.AssociationStatusPending,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "rfp_id"}, {Name: "vendor_id"}},
				DoNothing: true,
			}).Create(association).Error
			if err != nil {
				return fmt.Errorf("failed to assign vendor %d: %w", vendorID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"rfp_id":  rfpID,
		"vendors": len(vendorIDs),
	}).Info("Vendors assigned to RFP")
	return nil
}

// GetAssociation returns nil without error when the pair is not assigned.
func (s *VendorService) GetAssociation(ctx context.Context, rfpID, vendorID uint) (*models.RFPVendor, error) {
	var association models.RFPVendor
	err := s.db.WithContext(ctx).
		Where("rfp_id = ? AND vendor_id = ?", rfpID, vendorID).
		First(&association).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &association, nil
}

func (s *VendorService) UpdateAssociationStatus(ctx context.Context, rfpID, vendorID uint, update AssociationUpdate) error {
	updates := map[string]interface{}{
		"status": update.Status,
	}
	if update.SentAt != nil {
		updates["sent_at"] = *update.SentAt
	}
	if update.EmailMessageID != "" {
		updates["email_message_id"] = update.EmailMessageID
	}

	err := s.db.WithContext(ctx).
		Model(&models.RFPVendor{}).
		Where("rfp_id = ? AND vendor_id = ?", rfpID, vendorID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update vendor assignment: %w", err)
	}
	return nil
}

func (s *VendorService) ensureRFP(ctx context.Context, rfpID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.RFP{}).Where("id = ?", rfpID).Count(&count).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if count == 0 {
		return ErrRFPNotFound
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
