// internal/mail/message.go
package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OutgoingMessage is a single HTML email addressed to one recipient.
type OutgoingMessage struct {
	To        string
	ToName    string
	Subject   string
	HTML      string
	Text      string
	MessageID string
	Headers   map[string]string
}

// RawMessage is an unparsed RFC 5322 message as fetched from the mailbox.
type RawMessage struct {
	UID uint32
	Raw []byte
}

// InboundMessage is the parsed form of a fetched message.
type InboundMessage struct {
	UID        uint32
	MessageID  string
	Subject    string
	From       string
	FromName   string
	Date       time.Time
	InReplyTo  string
	References string
	Text       string
	HTML       string
	Headers    map[string]string
	Raw        []byte
}

// PlainBody prefers the text/plain part and falls back to the HTML part
// with markup removed.
func (m *InboundMessage) PlainBody() string {
	if text := strings.TrimSpace(m.Text); text != "" {
		return text
	}
	if m.HTML != "" {
		return HTMLToText(m.HTML)
	}
	return ""
}

type FetchOptions struct {
	// UnseenOnly restricts the search to messages without \Seen.
	UnseenOnly bool
	// Since restricts the search to messages received on or after this date.
	Since time.Time
	// Limit keeps only the newest Limit matches when positive.
	Limit int
}

// Mailer delivers outgoing messages and returns the Message-ID used.
type Mailer interface {
	Send(ctx context.Context, msg *OutgoingMessage) (string, error)
}

// Mailbox fetches candidate messages and marks them \Seen.
type Mailbox interface {
	Fetch(ctx context.Context, opts FetchOptions) ([]RawMessage, error)
}

// NewMessageID builds a Message-ID that carries the RFP and vendor ids so
// replies echo them back in In-Reply-To and References. The result has no
// angle brackets.
func NewMessageID(rfpID, vendorID uint, domain string) string {
	if domain == "" {
		domain = "localhost"
	}
	return fmt.Sprintf("rfp-%d.vendor-%d.%s@%s", rfpID, vendorID, uuid.NewString(), domain)
}

// DomainOf returns the domain part of an email address.
func DomainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return strings.ToLower(address[i+1:])
	}
	return ""
}
