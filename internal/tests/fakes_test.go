// internal/tests/fakes_test.go
package tests

import (
	"context"
	"errors"
	"sync"

	"github.com/javajoker/rfp-backend/internal/mail"
)

type fakeGenerator struct {
	mu      sync.Mutex
	respond func(prompt string) (string, error)
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	respond := g.respond
	g.mu.Unlock()
	if respond == nil {
		return "", errors.New("no response configured")
	}
	return respond(prompt)
}

func (g *fakeGenerator) Name() string {
	return "fake"
}

func (g *fakeGenerator) set(respond func(prompt string) (string, error)) {
	g.mu.Lock()
	g.respond = respond
	g.mu.Unlock()
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*mail.OutgoingMessage
}

func (m *fakeMailer) Send(_ context.Context, msg *mail.OutgoingMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return "<" + msg.MessageID + ">", nil
}

type fakeMailbox struct {
	mu       sync.Mutex
	messages []mail.RawMessage
}

func (m *fakeMailbox) Fetch(context.Context, mail.FetchOptions) ([]mail.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := m.messages
	m.messages = nil
	return messages, nil
}
