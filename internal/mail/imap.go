// internal/mail/imap.go
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rfp-backend/internal/config"
)

const (
	imapDialTimeout    = 10 * time.Second
	imapCommandTimeout = 2 * time.Minute
	imapFetchBatch     = 10
)

// IMAPMailbox reads one mailbox over implicit TLS.
type IMAPMailbox struct {
	cfg config.InboxConfig
}

func NewIMAPMailbox(cfg config.InboxConfig) *IMAPMailbox {
	return &IMAPMailbox{cfg: cfg}
}

func (m *IMAPMailbox) connect(ctx context.Context) (*client.Client, error) {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: imapDialTimeout},
		Config: &tls.Config{
			ServerName:         m.cfg.Host,
			InsecureSkipVerify: m.cfg.InsecureSkipVerify,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start IMAP session: %w", err)
	}
	c.Timeout = imapCommandTimeout

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}
	return c, nil
}

// Fetch searches the mailbox, downloads matching messages without touching
// their flags, then marks all of them \Seen in one STORE.
func (m *IMAPMailbox) Fetch(ctx context.Context, opts FetchOptions) ([]RawMessage, error) {
	c, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	stop := context.AfterFunc(ctx, func() { c.Terminate() })
	defer stop()

	mbox, err := c.Select(m.cfg.Mailbox, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open mailbox %s: %w", m.cfg.Mailbox, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	if opts.UnseenOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	if !opts.Since.IsZero() {
		criteria.Since = opts.Since
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search failed: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if opts.Limit > 0 && len(uids) > opts.Limit {
		uids = uids[len(uids)-opts.Limit:]
	}

	logrus.WithFields(logrus.Fields{
		"mailbox": m.cfg.Mailbox,
		"matches": len(uids),
	}).Debug("IMAP search completed")

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *imap.Message, imapFetchBatch)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var fetched []RawMessage
	for msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			logrus.WithError(err).WithField("uid", msg.Uid).Warn("Failed to read message body")
			continue
		}
		fetched = append(fetched, RawMessage{UID: msg.Uid, Raw: raw})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch failed: %w", err)
	}

	// Every fetched message is marked seen, whatever happens to it next.
	flags := []interface{}{imap.SeenFlag}
	if err := c.UidStore(seqSet, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
		logrus.WithError(err).Warn("Failed to mark messages as seen")
	}

	return fetched, nil
}
