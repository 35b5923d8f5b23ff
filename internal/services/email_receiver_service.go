// internal/services/email_receiver_service.go
package services

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/javajoker/rfp-backend/internal/mail"
	"github.com/javajoker/rfp-backend/internal/models"
)

type PollerState string

const (
	PollerStateStopped PollerState = "stopped"
	PollerStateIdle    PollerState = "idle"
	PollerStatePolling PollerState = "polling"
)

type ProcessOutcome string

const (
	OutcomeProcessed ProcessOutcome = "processed"
	OutcomeSkipped   ProcessOutcome = "skipped"
	OutcomeDuplicate ProcessOutcome = "duplicate"
	OutcomeFailed    ProcessOutcome = "failed"
)

// Locker excludes other processes from polling the same inbox.
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

type ProcessResult struct {
	UID        uint32         `json:"uid,omitempty"`
	MessageID  string         `json:"message_id,omitempty"`
	Subject    string         `json:"subject"`
	From       string         `json:"from"`
	RFPID      uint           `json:"rfp_id,omitempty"`
	VendorID   uint           `json:"vendor_id,omitempty"`
	ProposalID uint           `json:"proposal_id,omitempty"`
	Outcome    ProcessOutcome `json:"outcome"`
	Reason     string         `json:"reason,omitempty"`
}

type PollerStatus struct {
	State         PollerState `json:"state"`
	Running       bool        `json:"running"`
	Interval      string      `json:"interval"`
	LastCycleAt   *time.Time  `json:"last_cycle_at"`
	LastProcessed int         `json:"last_processed"`
	LastError     string      `json:"last_error,omitempty"`
	// Set when a cycle was skipped because another process held the lock.
	LastSkippedAt  *time.Time `json:"last_skipped_at,omitempty"`
	LastSkipReason string     `json:"last_skip_reason,omitempty"`
}

type ReceiverOptions struct {
	Interval     time.Duration
	LookbackDays int
	FetchLimit   int
	Locker       Locker
}

// EmailReceiverService polls the inbox for vendor replies and turns matched
// replies into proposals. At most one cycle runs at a time; a trigger that
// arrives during a cycle is dropped.
type EmailReceiverService struct {
	db              *gorm.DB
	mailbox         mail.Mailbox
	storage         *StorageService
	vendorService   *VendorService
	rfpService      *RFPService
	proposalService *ProposalService
	aiService       *AIService
	opts            ReceiverOptions
	now             func() time.Time

	cycle sync.Mutex

	mu            sync.Mutex
	running       bool
	polling       bool
	cancel        context.CancelFunc
	done          chan struct{}
	lastCycleAt   time.Time
	lastProcessed int
	lastError     string
	lastSkippedAt time.Time
	lastSkip      string
}

var rfpReferencePattern = regexp.MustCompile(`(?i)RFP-(\d+)`)

func NewEmailReceiverService(
	db *gorm.DB,
	mailbox mail.Mailbox,
	storage *StorageService,
	vendorService *VendorService,
	rfpService *RFPService,
	proposalService *ProposalService,
	aiService *AIService,
	opts ReceiverOptions,
) *EmailReceiverService {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 3
	}
	return &EmailReceiverService{
		db:              db,
		mailbox:         mailbox,
		storage:         storage,
		vendorService:   vendorService,
		rfpService:      rfpService,
		proposalService: proposalService,
		aiService:       aiService,
		opts:            opts,
		now:             time.Now,
	}
}

// Start arms the poll ticker and runs the first cycle right away. Calling
// Start on a running poller does nothing.
func (s *EmailReceiverService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	logrus.WithField("interval", s.opts.Interval.String()).Info("Email polling started")
}

// Stop disarms the ticker and waits for an in-flight cycle to return.
func (s *EmailReceiverService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	logrus.Info("Email polling stopped")
}

func (s *EmailReceiverService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *EmailReceiverService) tick(ctx context.Context) {
	results, err := s.CheckForNewEmails(ctx, false)
	switch {
	case errors.Is(err, ErrPollInProgress):
		logrus.Debug("Email check already in progress, skipping this tick")
	case err != nil && ctx.Err() == nil:
		logrus.WithError(err).Error("Email check failed")
	case len(results) > 0:
		logrus.WithField("messages", len(results)).Info("Email check completed")
	}
}

func (s *EmailReceiverService) Status() PollerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := PollerStatus{
		State:         PollerStateStopped,
		Running:       s.running,
		Interval:      s.opts.Interval.String(),
		LastProcessed: s.lastProcessed,
		LastError:     s.lastError,
	}
	if s.running {
		status.State = PollerStateIdle
	}
	if s.polling {
		status.State = PollerStatePolling
	}
	if !s.lastCycleAt.IsZero() {
		at := s.lastCycleAt
		status.LastCycleAt = &at
	}
	if !s.lastSkippedAt.IsZero() {
		at := s.lastSkippedAt
		status.LastSkippedAt = &at
		status.LastSkipReason = s.lastSkip
	}
	return status
}

// CheckForNewEmails runs one poll cycle. Unseen messages are fetched, or with
// checkAll every message from the lookback window. It returns
// ErrPollInProgress when another cycle is running here or in another
// process.
func (s *EmailReceiverService) CheckForNewEmails(ctx context.Context, checkAll bool) ([]ProcessResult, error) {
	if !s.cycle.TryLock() {
		return nil, ErrPollInProgress
	}
	defer s.cycle.Unlock()

	s.setPolling(true)
	defer s.setPolling(false)

	if s.opts.Locker != nil {
		release, ok, err := s.opts.Locker.TryLock(ctx)
		if err != nil {
			s.finishCycle(nil, err)
			return nil, err
		}
		if !ok {
			s.recordSkip("poll lock held by another process")
			return nil, ErrPollInProgress
		}
		defer release()
	}

	results, err := s.pollMailbox(ctx, checkAll)
	s.finishCycle(results, err)
	return results, err
}

func (s *EmailReceiverService) pollMailbox(ctx context.Context, checkAll bool) ([]ProcessResult, error) {
	opts := mail.FetchOptions{Limit: s.opts.FetchLimit}
	if checkAll {
		opts.Since = s.now().AddDate(0, 0, -s.opts.LookbackDays)
	} else {
		opts.UnseenOnly = true
	}

	raws, err := s.mailbox.Fetch(ctx, opts)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"messages":  len(raws),
		"check_all": checkAll,
	}).Info("Fetched candidate emails")

	results := make([]ProcessResult, 0, len(raws))
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		msg, err := mail.ParseMessage(raw.Raw)
		if err != nil {
			logrus.WithError(err).WithField("uid", raw.UID).Warn("Failed to parse email")
			results = append(results, ProcessResult{
				UID:     raw.UID,
				Outcome: OutcomeFailed,
				Reason:  "unparseable message",
			})
			continue
		}
		msg.UID = raw.UID

		results = append(results, s.ProcessEmail(ctx, msg))
	}

	return results, nil
}

// ExtractRFPID finds the first RFP-<digits> reference in the subject, then
// In-Reply-To, then References. It returns 0 when there is none.
func ExtractRFPID(msg *mail.InboundMessage) uint {
	for _, source := range []string{msg.Subject, msg.InReplyTo, msg.References} {
		for _, match := range rfpReferencePattern.FindAllStringSubmatch(source, -1) {
			id, err := strconv.ParseUint(match[1], 10, 32)
			if err != nil || id == 0 {
				continue
			}
			return uint(id)
		}
	}
	return 0
}

// ProcessEmail correlates one reply with an RFP and an assigned vendor and
// stores the parsed proposal. Replies that cannot be correlated are skipped
// without side effects.
func (s *EmailReceiverService) ProcessEmail(ctx context.Context, msg *mail.InboundMessage) ProcessResult {
	result := ProcessResult{
		UID:       msg.UID,
		MessageID: msg.MessageID,
		Subject:   msg.Subject,
		From:      msg.From,
	}
	logger := logrus.WithFields(logrus.Fields{
		"uid":        msg.UID,
		"message_id": msg.MessageID,
		"from":       msg.From,
	})

	rfpID := ExtractRFPID(msg)
	if rfpID == 0 {
		logger.Debug("No RFP reference in email, skipping")
		return skip(result, "no RFP reference")
	}
	result.RFPID = rfpID
	logger = logger.WithField("rfp_id", rfpID)

	vendor, err := s.vendorService.GetVendorByEmail(ctx, msg.From)
	if err != nil {
		if errors.Is(err, ErrVendorNotFound) {
			logger.Info("Email from unknown sender, skipping")
			return skip(result, "unknown sender")
		}
		return fail(logger, result, err)
	}
	result.VendorID = vendor.ID
	logger = logger.WithField("vendor_id", vendor.ID)

	association, err := s.vendorService.GetAssociation(ctx, rfpID, vendor.ID)
	if err != nil {
		return fail(logger, result, err)
	}
	if association == nil {
		logger.Info("Vendor is not assigned to this RFP, skipping")
		return skip(result, "vendor not assigned to RFP")
	}

	seen, err := s.alreadyProcessed(ctx, msg.MessageID)
	if err != nil {
		return fail(logger, result, err)
	}
	if seen {
		result.Outcome = OutcomeDuplicate
		result.Reason = "message already processed"
		return result
	}

	rfp, err := s.rfpService.GetRFP(ctx, rfpID)
	if err != nil {
		if errors.Is(err, ErrRFPNotFound) {
			return skip(result, "RFP not found")
		}
		return fail(logger, result, err)
	}

	exists, err := s.proposalService.ProposalExists(ctx, rfpID, vendor.ID)
	if err != nil {
		return fail(logger, result, err)
	}
	if exists {
		logger.Info("Proposal already exists for vendor, skipping")
		result.Outcome = OutcomeDuplicate
		result.Reason = "proposal already exists"
		return result
	}

	body := msg.PlainBody()
	vendorID := vendor.ID
	entry := &models.EmailLog{
		RFPID:     rfpID,
		VendorID:  &vendorID,
		Direction: models.EmailDirectionIncoming,
		Subject:   msg.Subject,
		Body:      body,
		MessageID: msg.MessageID,
	}

	parsed, err := s.aiService.ParseProposalFromEmail(ctx, body, rfp)
	if err != nil {
		entry.Status = models.EmailStatusFailed
		entry.ErrorMessage = err.Error()
		recordEmailLog(ctx, s.db, entry)
		return fail(logger, result, err)
	}

	if s.storage != nil {
		key, err := s.storage.ArchiveRawEmail(ctx, rfpID, vendor.ID, msg.Raw)
		if err != nil {
			logger.WithError(err).Warn("Failed to archive raw email")
		} else {
			entry.RawObjectKey = key
		}
	}

	proposal := &models.Proposal{
		RFPID:             rfpID,
		VendorID:          vendor.ID,
		TotalPrice:        parsed.TotalPrice,
		Currency:          parsed.Currency,
		DeliveryTimeDays:  parsed.DeliveryTimeDays,
		PaymentTerms:      stringValue(parsed.PaymentTerms),
		WarrantyOffered:   stringValue(parsed.WarrantyOffered),
		AdditionalTerms:   stringValue(parsed.AdditionalTerms),
		CompletenessScore: parsed.CompletenessScore,
		RawEmailBody:      body,
		ParsedItems:       datatypes.NewJSONSlice(parsed.ItemsQuoted),
	}

	if err := s.proposalService.CreateProposal(ctx, proposal); err != nil {
		if errors.Is(err, ErrProposalExists) {
			result.Outcome = OutcomeDuplicate
			result.Reason = "proposal already exists"
			return result
		}
		entry.Status = models.EmailStatusFailed
		entry.ErrorMessage = err.Error()
		recordEmailLog(ctx, s.db, entry)
		return fail(logger, result, err)
	}
	result.ProposalID = proposal.ID

	err = s.vendorService.UpdateAssociationStatus(ctx, rfpID, vendor.ID, AssociationUpdate{
		Status: models.AssociationStatusResponded,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to mark vendor assignment as responded")
	}

	entry.Status = models.EmailStatusProcessed
	recordEmailLog(ctx, s.db, entry)

	logger.WithField("proposal_id", proposal.ID).Info("Vendor reply processed")
	result.Outcome = OutcomeProcessed
	return result
}

// alreadyProcessed reports whether a reply with this Message-ID produced a
// processed log entry in an earlier cycle.
func (s *EmailReceiverService) alreadyProcessed(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.EmailLog{}).
		Where("message_id = ? AND direction = ? AND status = ?", messageID, models.EmailDirectionIncoming, models.EmailStatusProcessed).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *EmailReceiverService) setPolling(polling bool) {
	s.mu.Lock()
	s.polling = polling
	s.mu.Unlock()
}

func (s *EmailReceiverService) finishCycle(results []ProcessResult, err error) {
	processed := 0
	for _, r := range results {
		if r.Outcome == OutcomeProcessed {
			processed++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCycleAt = s.now()
	s.lastProcessed = processed
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
}

func (s *EmailReceiverService) recordSkip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSkippedAt = s.now()
	s.lastSkip = reason
}

func skip(result ProcessResult, reason string) ProcessResult {
	result.Outcome = OutcomeSkipped
	result.Reason = reason
	return result
}

func fail(logger *logrus.Entry, result ProcessResult, err error) ProcessResult {
	logger.WithError(err).Error("Failed to process email")
	result.Outcome = OutcomeFailed
	result.Reason = err.Error()
	return result
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
