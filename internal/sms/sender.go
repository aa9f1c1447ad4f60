// Package sms provides the farmer-facing SMS channel. No gateway is
// integrated yet; MockSender logs each message and keeps it in memory.
package sms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warkadguard/riskwatch/internal/logger"
)

// Message is a delivered SMS
type Message struct {
	From   string
	To     string
	Body   string
	SentAt time.Time
}

// MockSender records messages instead of delivering them
type MockSender struct {
	from string
	now  func() time.Time

	mu   sync.Mutex
	sent []Message
}

// NewMockSender creates a sender that signs messages with from
func NewMockSender(from string) *MockSender {
	return &MockSender{from: from, now: time.Now}
}

// Notify records a message to recipient
func (s *MockSender) Notify(ctx context.Context, recipient, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if recipient == "" {
		return fmt.Errorf("recipient phone number is empty")
	}

	s.mu.Lock()
	s.sent = append(s.sent, Message{From: s.from, To: recipient, Body: message, SentAt: s.now()})
	s.mu.Unlock()

	logger.Info("[SMS] %s -> %s: %s", s.from, recipient, message)
	return nil
}

// Sent returns a copy of every message recorded so far
func (s *MockSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
