// internal/handlers/vendor.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/rfp-backend/internal/i18n"
	"github.com/javajoker/rfp-backend/internal/services"
	"github.com/javajoker/rfp-backend/internal/utils"
)

type VendorHandler struct {
	vendorService *services.VendorService
}

func NewVendorHandler(vendorService *services.VendorService) *VendorHandler {
	return &VendorHandler{
		vendorService: vendorService,
	}
}

// POST /api/vendors
func (h *VendorHandler) CreateVendor(c *gin.Context) {
	var req services.CreateVendorRequest
	if !bindJSON(c, &req) {
		return
	}

	vendor, err := h.vendorService.CreateVendor(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, vendor)
}

// GET /api/vendors
func (h *VendorHandler) GetVendors(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	vendors, total, err := h.vendorService.ListVendors(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(vendors, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /api/vendors/:id
func (h *VendorHandler) GetVendor(c *gin.Context) {
	id, ok := parseID(c, "id", "vendor")
	if !ok {
		return
	}

	vendor, err := h.vendorService.GetVendor(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, vendor)
}

// PUT /api/vendors/:id
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id", "vendor")
	if !ok {
		return
	}

	var req services.UpdateVendorRequest
	if !bindJSON(c, &req) {
		return
	}

	vendor, err := h.vendorService.UpdateVendor(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.T(lang, i18n.KeyVendorUpdated), vendor)
}

// DELETE /api/vendors/:id
func (h *VendorHandler) DeleteVendor(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id", "vendor")
	if !ok {
		return
	}

	if err := h.vendorService.DeleteVendor(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.T(lang, i18n.KeyVendorDeleted), nil)
}

// GET /api/vendors/rfp/:rfpId
func (h *VendorHandler) GetVendorsForRFP(c *gin.Context) {
	rfpID, ok := parseID(c, "rfpId", "RFP")
	if !ok {
		return
	}

	vendors, err := h.vendorService.GetVendorsForRFP(c.Request.Context(), rfpID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, vendors)
}

// POST /api/vendors/rfp/:rfpId/assign
func (h *VendorHandler) AssignVendorsToRFP(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	rfpID, ok := parseID(c, "rfpId", "RFP")
	if !ok {
		return
	}

	vendorIDs, ok := bindVendorIDs(c)
	if !ok {
		return
	}

	if err := h.vendorService.AssignVendorsToRFP(c.Request.Context(), rfpID, vendorIDs); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.T(lang, i18n.KeyVendorsAssigned), gin.H{
		"rfp_id":     rfpID,
		"vendor_ids": vendorIDs,
	})
}
