// internal/handlers/rfp.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/rfp-backend/internal/i18n"
	"github.com/javajoker/rfp-backend/internal/services"
	"github.com/javajoker/rfp-backend/internal/utils"
)

type RFPHandler struct {
	rfpService *services.RFPService
	aiService  *services.AIService
}

func NewRFPHandler(rfpService *services.RFPService, aiService *services.AIService) *RFPHandler {
	return &RFPHandler{
		rfpService: rfpService,
		aiService:  aiService,
	}
}

type createFromTextRequest struct {
	NaturalLanguageInput string `json:"naturalLanguageInput"`
}

// POST /api/rfps/create-from-text
// The parsed draft is returned for review and is not saved.
func (h *RFPHandler) CreateRFPFromText(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req createFromTextRequest
	if !bindJSON(c, &req) {
		return
	}

	input := strings.TrimSpace(req.NaturalLanguageInput)
	if input == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyRFPInputMissing), nil)
		return
	}

	parsed, err := h.aiService.ParseRFPFromText(c.Request.Context(), input)
	if err != nil {
		respondErrorWithAIMessage(c, err, i18n.KeyRFPParseFailed)
		return
	}

	utils.SuccessMessageResponse(c, i18n.T(lang, i18n.KeyRFPParsed), parsed)
}

// POST /api/rfps
func (h *RFPHandler) CreateRFP(c *gin.Context) {
	var req services.CreateRFPRequest
	if !bindJSON(c, &req) {
		return
	}

	rfp, err := h.rfpService.CreateRFP(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, rfp)
}

// GET /api/rfps
func (h *RFPHandler) GetRFPs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	rfps, total, err := h.rfpService.ListRFPs(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(rfps, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /api/rfps/:id
func (h *RFPHandler) GetRFP(c *gin.Context) {
	id, ok := parseID(c, "id", "RFP")
	if !ok {
		return
	}

	rfp, err := h.rfpService.GetRFP(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, rfp)
}

// PUT /api/rfps/:id
func (h *RFPHandler) UpdateRFP(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id", "RFP")
	if !ok {
		return
	}

	var req services.UpdateRFPRequest
	if !bindJSON(c, &req) {
		return
	}

	rfp, err := h.rfpService.UpdateRFP(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.T(lang, i18n.KeyRFPUpdated), rfp)
}

// DELETE /api/rfps/:id
func (h *RFPHandler) DeleteRFP(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id", "RFP")
	if !ok {
		return
	}

	if err := h.rfpService.DeleteRFP(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.T(lang, i18n.KeyRFPDeleted), nil)
}

// GET /api/rfps/:id/vendors
func (h *RFPHandler) GetRFPVendors(c *gin.Context) {
	id, ok := parseID(c, "id", "RFP")
	if !ok {
		return
	}

	rfp, err := h.rfpService.GetRFPVendors(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, rfp)
}
