// internal/mail/smtp_test.go
package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/rfp-backend/internal/config"
)

func TestNewMailerSelectsByHost(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantLog bool
	}{
		{"unauthenticated relay", config.Config{Environment: "development", Email: config.EmailConfig{SMTPHost: "localhost", SMTPPort: "25"}}, false},
		{"authenticated relay", config.Config{Environment: "production", Email: config.EmailConfig{SMTPHost: "smtp.gmail.com", SMTPUsername: "buyer@example.com"}}, false},
		{"no host", config.Config{Environment: "development", Email: config.EmailConfig{SMTPUsername: "buyer@example.com"}}, true},
		{"no host in production", config.Config{Environment: "production"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := NewMailer(&tt.cfg)
			if tt.wantLog {
				assert.IsType(t, &LogMailer{}, mailer)
				return
			}
			smtpMailer, ok := mailer.(*SMTPMailer)
			require.True(t, ok)
			assert.Equal(t, tt.cfg.Email.SMTPHost, smtpMailer.host)
		})
	}
}

func TestLogMailerReportsDeliveryDisabled(t *testing.T) {
	mailer := &LogMailer{fromEmail: "procurement@buyer.example"}

	messageID, err := mailer.Send(context.Background(), &OutgoingMessage{
		To:      "sales@acme.example",
		Subject: "Request for Proposal: Laptops (RFP-1)",
		HTML:    "<p>Hello</p>",
		Headers: map[string]string{"X-RFP-ID": "1"},
	})
	assert.ErrorIs(t, err, ErrDeliveryDisabled)
	assert.Empty(t, messageID)
}
