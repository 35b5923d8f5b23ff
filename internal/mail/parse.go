// internal/mail/parse.go
package mail

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
)

// ParseMessage decodes a raw RFC 5322 message into headers and text bodies.
func ParseMessage(raw []byte) (*InboundMessage, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	header := gomail.Header{Header: entity.Header}
	msg := &InboundMessage{
		Raw:        raw,
		InReplyTo:  strings.TrimSpace(header.Get("In-Reply-To")),
		References: strings.TrimSpace(header.Get("References")),
		Headers:    make(map[string]string),
	}

	if subject, err := header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = header.Get("Subject")
	}

	if id, err := header.MessageID(); err == nil && id != "" {
		msg.MessageID = "<" + id + ">"
	}

	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = strings.ToLower(strings.TrimSpace(from[0].Address))
		msg.FromName = from[0].Name
	}

	if date, err := header.Date(); err == nil {
		msg.Date = date
	}

	for _, key := range []string{"X-RFP-ID", "X-Vendor-ID"} {
		if v := header.Get(key); v != "" {
			msg.Headers[key] = v
		}
	}

	collectBodies(entity, msg)
	return msg, nil
}

func collectBodies(entity *message.Entity, msg *InboundMessage) {
	mediaType, _, _ := entity.Header.ContentType()

	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			collectBodies(part, msg)
		}
		return
	}

	disposition, _, _ := entity.Header.ContentDisposition()
	if disposition == "attachment" {
		return
	}

	switch {
	case (mediaType == "text/plain" || mediaType == "") && msg.Text == "":
		body, _ := io.ReadAll(entity.Body)
		msg.Text = string(body)
	case mediaType == "text/html" && msg.HTML == "":
		body, _ := io.ReadAll(entity.Body)
		msg.HTML = string(body)
	}
}
