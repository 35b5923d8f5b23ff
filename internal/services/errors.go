// internal/services/errors.go
package services

import "errors"

var (
	ErrRFPNotFound           = errors.New("RFP not found")
	ErrVendorNotFound        = errors.New("vendor not found")
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrEmailLogNotFound      = errors.New("email log not found")
	ErrProposalExists        = errors.New("proposal already exists for this vendor and RFP")
	ErrVendorEmailExists     = errors.New("vendor with this email already exists")
	ErrInsufficientProposals = errors.New("at least 2 proposals are required for comparison")
	ErrPollInProgress        = errors.New("email check already in progress")
	ErrInvalidStatus         = errors.New("invalid RFP status")
	ErrArchiveUnavailable    = errors.New("raw email archive is not available")

	// AI adapter failures
	ErrAIGenerate = errors.New("failed to generate AI response")
	ErrAIParse    = errors.New("failed to parse AI response")
)
