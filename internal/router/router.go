// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/rfp-backend/internal/config"
	"github.com/javajoker/rfp-backend/internal/handlers"
	"github.com/javajoker/rfp-backend/internal/middleware"
	"github.com/javajoker/rfp-backend/internal/utils"
)

func Initialize(svc *Services, cfg *config.Config) *gin.Engine {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.Version, svc.Receiver)
	rfpHandler := handlers.NewRFPHandler(svc.RFP, svc.AI)
	vendorHandler := handlers.NewVendorHandler(svc.Vendor)
	proposalHandler := handlers.NewProposalHandler(svc.Proposal, svc.RFP)
	emailHandler := handlers.NewEmailHandler(svc.Email, svc.Receiver, svc.RFP, svc.Storage)

	// Set JWT secret
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	generalLimiter, aiLimiter := middleware.NewRateLimiters(cfg.RateLimit)
	aiRateLimit := aiLimiter.Middleware()

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	if cfg.Auth.Enabled {
		api.Use(middleware.AuthRequired())
	}
	api.Use(generalLimiter.Middleware())
	{
		// RFP routes
		rfps := api.Group("/rfps")
		{
			rfps.POST("/create-from-text", aiRateLimit, rfpHandler.CreateRFPFromText)
			rfps.POST("", rfpHandler.CreateRFP)
			rfps.GET("", rfpHandler.GetRFPs)
			rfps.GET("/:id", rfpHandler.GetRFP)
			rfps.PUT("/:id", rfpHandler.UpdateRFP)
			rfps.DELETE("/:id", rfpHandler.DeleteRFP)
			rfps.GET("/:id/vendors", rfpHandler.GetRFPVendors)
			rfps.POST("/:id/send", emailHandler.SendRFPToVendors)
			rfps.GET("/:id/emails", emailHandler.GetEmailsForRFP)
			rfps.GET("/:id/proposals", proposalHandler.GetProposalsForRFP)
			rfps.GET("/:id/proposals/stats", proposalHandler.GetProposalStats)
			rfps.GET("/:id/comparison", aiRateLimit, proposalHandler.CompareProposals)
		}

		// Vendor routes
		vendors := api.Group("/vendors")
		{
			vendors.POST("", vendorHandler.CreateVendor)
			vendors.GET("", vendorHandler.GetVendors)
			vendors.GET("/rfp/:rfpId", vendorHandler.GetVendorsForRFP)
			vendors.POST("/rfp/:rfpId/assign", vendorHandler.AssignVendorsToRFP)
			vendors.GET("/:id", vendorHandler.GetVendor)
			vendors.PUT("/:id", vendorHandler.UpdateVendor)
			vendors.DELETE("/:id", vendorHandler.DeleteVendor)
		}

		// Proposal routes
		proposals := api.Group("/proposals")
		{
			proposals.GET("/:id", proposalHandler.GetProposal)
		}

		// Email routes
		emails := api.Group("/emails")
		{
			emails.POST("/check", aiRateLimit, emailHandler.CheckEmails)
			emails.GET("/status", emailHandler.GetPollerStatus)
			emails.GET("/:id/raw", emailHandler.GetRawEmail)
		}
	}

	r.NoRoute(handlers.NoRoute)

	return r
}
