// internal/services/helpers_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/rfp-backend/internal/database"
	"github.com/javajoker/rfp-backend/internal/mail"
	"github.com/javajoker/rfp-backend/internal/models"
)

var fixedNow = time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// fakeGenerator answers prompts with respond and records every prompt.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.respond(prompt)
}

func (g *fakeGenerator) Name() string {
	return "fake"
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func staticGenerator(response string) *fakeGenerator {
	return &fakeGenerator{respond: func(string) (string, error) { return response, nil }}
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []*mail.OutgoingMessage
	failTo map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, msg *mail.OutgoingMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[msg.To] {
		return "", errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return "<" + msg.MessageID + ">", nil
}

type fakeMailbox struct {
	mu       sync.Mutex
	messages []mail.RawMessage
	requests []mail.FetchOptions
	block    chan struct{}
}

func (m *fakeMailbox) Fetch(ctx context.Context, opts mail.FetchOptions) ([]mail.RawMessage, error) {
	m.mu.Lock()
	m.requests = append(m.requests, opts)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages, nil
}

type testEnv struct {
	db        *gorm.DB
	generator *fakeGenerator
	mailer    *fakeMailer
	mailbox   *fakeMailbox
	ai        *AIService
	rfps      *RFPService
	vendors   *VendorService
	proposals *ProposalService
	emails    *EmailService
	receiver  *EmailReceiverService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:        newTestDB(t),
		generator: staticGenerator(proposalJSON),
		mailer:    &fakeMailer{failTo: map[string]bool{}},
		mailbox:   &fakeMailbox{},
	}

	env.ai = NewAIService(env.generator, time.Second)
	env.ai.now = func() time.Time { return fixedNow }
	env.rfps = NewRFPService(env.db)
	env.vendors = NewVendorService(env.db)
	env.proposals = NewProposalService(env.db, env.rfps, env.ai)
	env.emails = NewEmailService(env.db, env.mailer, env.rfps, env.vendors, "procurement@buyer.example")
	env.receiver = NewEmailReceiverService(
		env.db, env.mailbox, &StorageService{}, env.vendors, env.rfps, env.proposals, env.ai,
		ReceiverOptions{Interval: time.Hour, LookbackDays: 3, FetchLimit: 50},
	)
	env.receiver.now = func() time.Time { return fixedNow }

	return env
}

func (env *testEnv) createRFP(t *testing.T, title string) *models.RFP {
	t.Helper()
	budget := 50000.0
	rfp, err := env.rfps.CreateRFP(context.Background(), &CreateRFPRequest{
		Title:       title,
		Description: "Procurement of " + strings.ToLower(title),
		Budget:      &budget,
		Items:       []models.RFPItem{{Name: "Laptop", Quantity: 20, Specifications: "16GB RAM"}},
	})
	require.NoError(t, err)
	return rfp
}

func (env *testEnv) createVendor(t *testing.T, name, email string) *models.Vendor {
	t.Helper()
	vendor, err := env.vendors.CreateVendor(context.Background(), &CreateVendorRequest{
		Name:        name,
		Email:       email,
		CompanyName: name + " Ltd",
	})
	require.NoError(t, err)
	return vendor
}

func replyMessage(uid uint32, from, subject, messageID, body string) *mail.InboundMessage {
	return &mail.InboundMessage{
		UID:       uid,
		MessageID: messageID,
		Subject:   subject,
		From:      strings.ToLower(from),
		Text:      body,
		Raw:       []byte(rawReply(from, subject, messageID, body)),
	}
}

func rawReply(from, subject, messageID, body string) string {
	return "From: " + from + "\r\n" +
		"To: procurement@buyer.example\r\n" +
		"Subject: " + subject + "\r\n" +
		"Message-ID: " + messageID + "\r\n" +
		"Date: Fri, 16 Oct 2026 08:00:00 +0000\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n"
}

const proposalJSON = "```json\n" + `{
  "total_price": 24000,
  "currency": "usd",
  "delivery_time_days": 14,
  "payment_terms": "Net 30",
  "warranty_offered": "2 years",
  "items_quoted": [{"name": "Laptop", "quantity": 20, "unit_price": 1200, "specifications": "16GB RAM"}],
  "additional_terms": null,
  "completeness_score": 90
}` + "\n```"
