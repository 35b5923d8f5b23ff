// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationRequired = "validation.required"
	KeyInvalidID          = "validation.invalid_id"
	KeyInternalError      = "error.internal"
	KeyRouteNotFound      = "error.route_not_found"
	KeyRateLimited        = "error.rate_limited"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"

	// RFPs
	KeyRFPCreated      = "rfp.created"
	KeyRFPUpdated      = "rfp.updated"
	KeyRFPDeleted      = "rfp.deleted"
	KeyRFPNotFound     = "rfp.not_found"
	KeyRFPParsed       = "rfp.parsed"
	KeyRFPSent         = "rfp.sent"
	KeyRFPParseFailed  = "rfp.parse_failed"
	KeyRFPInputMissing = "rfp.input_missing"

	// Vendors
	KeyVendorCreated     = "vendor.created"
	KeyVendorUpdated     = "vendor.updated"
	KeyVendorDeleted     = "vendor.deleted"
	KeyVendorNotFound    = "vendor.not_found"
	KeyVendorEmailExists = "vendor.email_exists"
	KeyVendorsAssigned   = "vendor.assigned"
	KeyVendorIDsRequired = "vendor.ids_required"

	// Proposals
	KeyProposalNotFound         = "proposal.not_found"
	KeyProposalInsufficient     = "proposal.insufficient"
	KeyProposalComparisonFailed = "proposal.comparison_failed"

	// Email
	KeyEmailNotFound        = "email.not_found"
	KeyEmailCheckCompleted  = "email.check_completed"
	KeyEmailCheckInProgress = "email.check_in_progress"
	KeyEmailArchiveMissing  = "email.archive_missing"
	KeyEmailPollingDisabled = "email.polling_disabled"

	// AI
	KeyAIFailed = "ai.failed"

	// Health
	KeyHealthOK = "health.ok"
)
