// internal/handlers/proposal.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/rfp-backend/internal/i18n"
	"github.com/javajoker/rfp-backend/internal/services"
	"github.com/javajoker/rfp-backend/internal/utils"
)

type ProposalHandler struct {
	proposalService *services.ProposalService
	rfpService      *services.RFPService
}

func NewProposalHandler(proposalService *services.ProposalService, rfpService *services.RFPService) *ProposalHandler {
	return &ProposalHandler{
		proposalService: proposalService,
		rfpService:      rfpService,
	}
}

// GET /api/rfps/:id/proposals
func (h *ProposalHandler) GetProposalsForRFP(c *gin.Context) {
	rfpID, ok := parseID(c, "id", "RFP")
	if !ok {
		return
	}

	// Unknown RFPs are a 404 rather than an empty list
	if _, err := h.rfpService.GetRFP(c.Request.Context(), rfpID); err != nil {
		respondError(c, err)
		return
	}

	proposals, err := h.proposalService.GetProposalsForRFP(c.Request.Context(), rfpID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, proposals)
}

// GET /api/rfps/:id/proposals/stats
func (h *ProposalHandler) GetProposalStats(c *gin.Context) {
	rfpID, ok := parseID(c, "id", "RFP")
	if !ok {
		return
	}

	stats, err := h.proposalService.GetProposalStats(c.Request.Context(), rfpID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// GET /api/rfps/:id/comparison
func (h *ProposalHandler) CompareProposals(c *gin.Context) {
	rfpID, ok := parseID(c, "id", "RFP")
	if !ok {
		return
	}

	result, err := h.proposalService.CompareProposals(c.Request.Context(), rfpID)
	if err != nil {
		respondErrorWithAIMessage(c, err, i18n.KeyProposalComparisonFailed)
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /api/proposals/:id
func (h *ProposalHandler) GetProposal(c *gin.Context) {
	id, ok := parseID(c, "id", "proposal")
	if !ok {
		return
	}

	proposal, err := h.proposalService.GetProposal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, proposal)
}
