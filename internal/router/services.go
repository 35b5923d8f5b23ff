// internal/router/services.go
package router

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/rfp-backend/internal/config"
	"github.com/javajoker/rfp-backend/internal/database"
	"github.com/javajoker/rfp-backend/internal/llm"
	"github.com/javajoker/rfp-backend/internal/mail"
	"github.com/javajoker/rfp-backend/internal/services"
)

// Services is the wired service graph shared by the HTTP server and the CLI.
type Services struct {
	RFP      *services.RFPService
	Vendor   *services.VendorService
	Proposal *services.ProposalService
	AI       *services.AIService
	Email    *services.EmailService
	Storage  *services.StorageService
	// Receiver is nil when no inbox credentials are configured.
	Receiver *services.EmailReceiverService

	generator llm.Generator
}

func NewServices(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Services, error) {
	generator, err := llm.NewGenerator(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI generator: %w", err)
	}

	storageService, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		llm.Close(generator)
		return nil, err
	}

	aiService := services.NewAIService(generator, cfg.AI.Timeout)
	rfpService := services.NewRFPService(db)
	vendorService := services.NewVendorService(db)
	proposalService := services.NewProposalService(db, rfpService, aiService)
	emailService := services.NewEmailService(db, mail.NewMailer(cfg), rfpService, vendorService, cfg.Email.FromEmail)

	svc := &Services{
		RFP:       rfpService,
		Vendor:    vendorService,
		Proposal:  proposalService,
		AI:        aiService,
		Email:     emailService,
		Storage:   storageService,
		generator: generator,
	}

	if !cfg.PollingEnabled() {
		logrus.Warn("Email credentials not configured, email polling disabled")
		return svc, nil
	}

	opts := services.ReceiverOptions{
		Interval:     cfg.Inbox.PollInterval,
		LookbackDays: cfg.Inbox.LookbackDays,
		FetchLimit:   cfg.Inbox.FetchLimit,
	}
	if !cfg.Database.IsSQLite() {
		opts.Locker = database.NewAdvisoryLocker(db, database.EmailPollLockKey)
	}

	svc.Receiver = services.NewEmailReceiverService(
		db,
		mail.NewIMAPMailbox(cfg.Inbox),
		storageService,
		vendorService,
		rfpService,
		proposalService,
		aiService,
		opts,
	)

	logrus.WithFields(logrus.Fields{
		"ai_provider": generator.Name(),
		"archive":     storageService.Enabled(),
	}).Info("Services initialized")

	return svc, nil
}

// Close stops the poller and releases the AI client.
func (s *Services) Close() {
	if s.Receiver != nil {
		s.Receiver.Stop()
	}
	if err := llm.Close(s.generator); err != nil {
		logrus.WithError(err).Warn("Failed to close AI client")
	}
}
