// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rfp-backend/internal/i18n"
	"github.com/javajoker/rfp-backend/internal/services"
	"github.com/javajoker/rfp-backend/internal/utils"
)

// respondError maps a service error onto the response envelope.
func respondError(c *gin.Context, err error) {
	respondErrorWithAIMessage(c, err, i18n.KeyAIFailed)
}

// respondErrorWithAIMessage is respondError with a route specific message for
// language model failures.
func respondErrorWithAIMessage(c *gin.Context, err error, aiMessageKey string) {
	lang := utils.GetLangFromContext(c)
	_ = c.Error(err)

	if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	switch {
	case errors.Is(err, services.ErrRFPNotFound):
		utils.NotFoundResponse(c, "rfp")
	case errors.Is(err, services.ErrVendorNotFound):
		utils.NotFoundResponse(c, "vendor")
	case errors.Is(err, services.ErrProposalNotFound):
		utils.NotFoundResponse(c, "proposal")
	case errors.Is(err, services.ErrEmailLogNotFound):
		utils.NotFoundResponse(c, "email")
	case errors.Is(err, services.ErrArchiveUnavailable):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", i18n.T(lang, i18n.KeyEmailArchiveMissing), nil)
	case errors.Is(err, services.ErrVendorEmailExists):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyVendorEmailExists))
	case errors.Is(err, services.ErrProposalExists):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrInsufficientProposals):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProposalInsufficient), nil)
	case errors.Is(err, services.ErrInvalidStatus):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "status"), nil)
	case errors.Is(err, services.ErrPollInProgress):
		utils.ErrorResponse(c, http.StatusConflict, "CONFLICT", i18n.T(lang, i18n.KeyEmailCheckInProgress), nil)
	case errors.Is(err, services.ErrAIParse), errors.Is(err, services.ErrAIGenerate):
		utils.ErrorResponse(c, http.StatusBadGateway, "AI_ERROR", i18n.T(lang, aiMessageKey), err.Error())
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled request error")
		utils.InternalErrorResponse(c, "", errorDetails(err))
	}
}

// errorDetails hides internal error text in release mode.
func errorDetails(err error) interface{} {
	if gin.Mode() == gin.ReleaseMode {
		return nil
	}
	return err.Error()
}

func parseID(c *gin.Context, param, resource string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyInvalidID, resource), nil)
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the body into req and answers 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

// vendorIDsRequest is the body of the send and assign endpoints.
type vendorIDsRequest struct {
	VendorIDs []uint `json:"vendorIds" validate:"required,min=1,dive,gt=0"`
}

func bindVendorIDs(c *gin.Context) ([]uint, bool) {
	var req vendorIDsRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	if err := utils.ValidateStruct(&req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyVendorIDsRequired), utils.GetValidationErrors(err))
		return nil, false
	}
	return req.VendorIDs, true
}
