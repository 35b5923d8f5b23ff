// internal/mail/smtp.go
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rfp-backend/internal/config"
)

const smtpDialTimeout = 15 * time.Second

// SMTPMailer sends HTML mail through an authenticated SMTP relay.
type SMTPMailer struct {
	host      string
	port      string
	username  string
	password  string
	fromEmail string
	fromName  string
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

// ErrDeliveryDisabled is returned by LogMailer so callers record the message
// as failed rather than sent.
var ErrDeliveryDisabled = errors.New("email delivery is disabled: SMTP_HOST is not set")

// NewMailer returns an SMTP mailer when a relay host is configured. Relays
// without credentials are used unauthenticated. With no host it returns a
// LogMailer.
func NewMailer(cfg *config.Config) Mailer {
	if cfg.Email.SMTPHost == "" {
		logrus.Warn("SMTP_HOST not configured; outgoing email will be logged and marked failed")
		return &LogMailer{fromEmail: cfg.Email.FromEmail}
	}
	return NewSMTPMailer(cfg.Email)
}

func (m *SMTPMailer) Send(ctx context.Context, msg *OutgoingMessage) (string, error) {
	messageID := msg.MessageID
	if messageID == "" {
		messageID = NewMessageID(0, 0, DomainOf(m.fromEmail))
	}

	var buf bytes.Buffer
	if err := BuildMessage(&buf, m.fromName, m.fromEmail, messageID, msg); err != nil {
		return "", err
	}

	if err := m.deliver(ctx, msg.To, buf.Bytes()); err != nil {
		return "", err
	}
	return "<" + messageID + ">", nil
}

func (m *SMTPMailer) deliver(ctx context.Context, to string, body []byte) error {
	addr := net.JoinHostPort(m.host, m.port)
	dialer := &net.Dialer{Timeout: smtpDialTimeout}

	var conn net.Conn
	var err error
	if m.port == "465" {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: m.host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.fromEmail); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO rejected: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return client.Quit()
}

// BuildMessage writes a multipart/alternative message with a plain text
// part and an HTML part.
func BuildMessage(w io.Writer, fromName, fromEmail, messageID string, msg *OutgoingMessage) error {
	var h gomail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*gomail.Address{{Name: fromName, Address: fromEmail}})
	h.SetAddressList("To", []*gomail.Address{{Name: msg.ToName, Address: msg.To}})
	h.SetSubject(msg.Subject)
	h.SetMessageID(messageID)
	for key, value := range msg.Headers {
		h.Set(key, value)
	}

	iw, err := gomail.CreateInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("failed to create message writer: %w", err)
	}

	text := msg.Text
	if text == "" {
		text = HTMLToText(msg.HTML)
	}

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", text},
		{"text/html", msg.HTML},
	}
	for _, p := range parts {
		var ph gomail.InlineHeader
		ph.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})
		pw, err := iw.CreatePart(ph)
		if err != nil {
			return fmt.Errorf("failed to create %s part: %w", p.contentType, err)
		}
		if _, err := io.WriteString(pw, p.body); err != nil {
			pw.Close()
			return err
		}
		if err := pw.Close(); err != nil {
			return err
		}
	}

	return iw.Close()
}

// LogMailer records outgoing mail in the log instead of delivering it. Send
// always fails with ErrDeliveryDisabled.
type LogMailer struct {
	fromEmail string
}

func (m *LogMailer) Send(ctx context.Context, msg *OutgoingMessage) (string, error) {
	messageID := msg.MessageID
	if messageID == "" {
		messageID = NewMessageID(0, 0, DomainOf(m.fromEmail))
	}

	logrus.WithFields(logrus.Fields{
		"to":         msg.To,
		"subject":    msg.Subject,
		"message_id": messageID,
		"headers":    strings.Join(headerPairs(msg.Headers), ", "),
	}).Warn("Email delivery disabled; message logged")

	return "", ErrDeliveryDisabled
}

func headerPairs(headers map[string]string) []string {
	pairs := make([]string, 0, len(headers))
	for k, v := range headers {
		pairs = append(pairs, k+"="+v)
	}
	return pairs
}
