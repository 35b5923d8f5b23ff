// internal/services/proposal_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/rfp-backend/internal/models"
)

type ProposalService struct {
	db         *gorm.DB
	rfpService *RFPService
	aiService  *AIService
}

// ComparisonResult is returned by the comparison endpoint.
type ComparisonResult struct {
	RFPID         uint        `json:"rfp_id"`
	ProposalCount int         `json:"proposal_count"`
	Comparison    *Comparison `json:"comparison"`
}

func NewProposalService(db *gorm.DB, rfpService *RFPService, aiService *AIService) *ProposalService {
	return &ProposalService{
		db:         db,
		rfpService: rfpService,
		aiService:  aiService,
	}
}

// GetProposalsForRFP returns the RFP's proposals, most complete first.
func (s *ProposalService) GetProposalsForRFP(ctx context.Context, rfpID uint) ([]models.Proposal, error) {
	if _, err := s.rfpService.GetRFP(ctx, rfpID); err != nil {
		return nil, err
	}

	proposals := []models.Proposal{}
	err := s.db.WithContext(ctx).
		Preload("Vendor").
		Where("rfp_id = ?", rfpID).
		Order("completeness_score DESC, id").
		Find(&proposals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load proposals: %w", err)
	}
	return proposals, nil
}

func (s *ProposalService) GetProposal(ctx context.Context, id uint) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := s.db.WithContext(ctx).Preload("Vendor").Preload("RFP").First(&proposal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &proposal, nil
}

func (s *ProposalService) ProposalExists(ctx context.Context, rfpID, vendorID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("rfp_id = ? AND vendor_id = ?", rfpID, vendorID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}
	return count > 0, nil
}

// CreateProposal inserts the proposal. A second proposal for the same RFP and
// vendor returns ErrProposalExists.
func (s *ProposalService) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	if proposal.ParsedItems == nil {
		proposal.ParsedItems = []models.ProposalItem{}
	}

	if err := s.db.WithContext(ctx).Create(proposal).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrProposalExists
		}
		return fmt.Errorf("failed to create proposal: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"proposal_id": proposal.ID,
		"rfp_id":      proposal.RFPID,
		"vendor_id":   proposal.VendorID,
	}).Info("Proposal created")
	return nil
}

func (s *ProposalService) UpdateProposalAIScore(ctx context.Context, id uint, score float64, summary string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_score":   score,
			"ai_summary": summary,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update proposal score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProposalNotFound
	}
	return nil
}

func (s *ProposalService) GetProposalStats(ctx context.Context, rfpID uint) (*models.ProposalStats, error) {
	if _, err := s.rfpService.GetRFP(ctx, rfpID); err != nil {
		return nil, err
	}

	var stats models.ProposalStats
	err := s.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Select("COUNT(*) AS total_proposals, AVG(completeness_score) AS avg_completeness_score, AVG(ai_score) AS avg_ai_score").
		Where("rfp_id = ?", rfpID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load proposal stats: %w", err)
	}
	return &stats, nil
}

// CompareProposals asks the model to score the RFP's proposals and stores
// each vendor's overall score and summary on its proposal.
func (s *ProposalService) CompareProposals(ctx context.Context, rfpID uint) (*ComparisonResult, error) {
	rfp, err := s.rfpService.GetRFP(ctx, rfpID)
	if err != nil {
		return nil, err
	}

	proposals, err := s.GetProposalsForRFP(ctx, rfpID)
	if err != nil {
		return nil, err
	}
	if len(proposals) < 2 {
		return nil, ErrInsufficientProposals
	}

	logrus.WithFields(logrus.Fields{
		"rfp_id":    rfpID,
		"proposals": len(proposals),
	}).Info("Generating proposal comparison")

	comparison, err := s.aiService.GenerateProposalComparison(ctx, rfp, proposals)
	if err != nil {
		return nil, err
	}

	byVendor := make(map[uint]uint, len(proposals))
	for _, p := range proposals {
		byVendor[p.VendorID] = p.ID
	}

	for _, score := range comparison.VendorScores {
		proposalID, ok := byVendor[score.VendorID]
		if !ok {
			continue
		}
		if err := s.UpdateProposalAIScore(ctx, proposalID, score.OverallScore, scoreSummary(score)); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"rfp_id":      rfpID,
				"proposal_id": proposalID,
			}).Warn("Failed to store proposal score")
		}
	}

	return &ComparisonResult{
		RFPID:         rfpID,
		ProposalCount: len(proposals),
		Comparison:    comparison,
	}, nil
}

func scoreSummary(score VendorScore) string {
	var parts []string
	if len(score.Strengths) > 0 {
		parts = append(parts, "Strengths: "+strings.Join(score.Strengths, "; "))
	}
	if len(score.Weaknesses) > 0 {
		parts = append(parts, "Weaknesses: "+strings.Join(score.Weaknesses, "; "))
	}
	return strings.Join(parts, "\n")
}
