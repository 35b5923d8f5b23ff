// internal/handlers/email.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/rfp-backend/internal/i18n"
	"github.com/javajoker/rfp-backend/internal/services"
	"github.com/javajoker/rfp-backend/internal/utils"
)

const rawEmailLinkTTL = 15 * time.Minute

type EmailHandler struct {
	emailService    *services.EmailService
	receiverService *services.EmailReceiverService
	rfpService      *services.RFPService
	storageService  *services.StorageService
}

// NewEmailHandler builds the email routes. receiverService is nil when
// inbox polling is not configured.
func NewEmailHandler(
	emailService *services.EmailService,
	receiverService *services.EmailReceiverService,
	rfpService *services.RFPService,
	storageService *services.StorageService,
) *EmailHandler {
	return &EmailHandler{
		emailService:    emailService,
		receiverService: receiverService,
		rfpService:      rfpService,
		storageService:  storageService,
	}
}

// POST /api/rfps/:id/send
func (h *EmailHandler) SendRFPToVendors(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	rfpID, ok := parseID(c, "id", "RFP")
	if !ok {
		return
	}

	vendorIDs, ok := bindVendorIDs(c)
	if !ok {
		return
	}

	results, err := h.emailService.SendRFPToVendors(c.Request.Context(), rfpID, vendorIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRFPSent, len(results.Success)),
		"results": results,
	})
}

// GET /api/rfps/:id/emails
func (h *EmailHandler) GetEmailsForRFP(c *gin.Context) {
	rfpID, ok := parseID(c, "id", "RFP")
	if !ok {
		return
	}

	if _, err := h.rfpService.GetRFP(c.Request.Context(), rfpID); err != nil {
		respondError(c, err)
		return
	}

	logs, err := h.rfpService.GetEmailLogs(c.Request.Context(), rfpID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, logs)
}

// POST /api/emails/check
// Runs one cycle over the lookback window, including messages already seen.
func (h *EmailHandler) CheckEmails(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if h.receiverService == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "POLLING_DISABLED", i18n.T(lang, i18n.KeyEmailPollingDisabled), nil)
		return
	}

	results, err := h.receiverService.CheckForNewEmails(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}

	processed := 0
	for _, r := range results {
		if r.Outcome == services.OutcomeProcessed {
			processed++
		}
	}

	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyEmailCheckCompleted),
		"processed": processed,
		"results":   results,
	})
}

// GET /api/emails/status
func (h *EmailHandler) GetPollerStatus(c *gin.Context) {
	utils.SuccessResponse(c, pollerStatus(h.receiverService))
}

// GET /api/emails/:id/raw
func (h *EmailHandler) GetRawEmail(c *gin.Context) {
	id, ok := parseID(c, "id", "email")
	if !ok {
		return
	}

	entry, err := h.rfpService.GetEmailLog(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	archived, err := h.storageService.PresignRawEmail(entry.RawObjectKey, rawEmailLinkTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, archived)
}

func pollerStatus(receiver *services.EmailReceiverService) interface{} {
	if receiver == nil {
		return gin.H{"state": "disabled", "running": false}
	}
	return receiver.Status()
}
