package sms

import (
	"context"
	"testing"
)

func TestMockSender(t *testing.T) {
	s := NewMockSender("+251912345678")
	ctx := context.Background()

	if err := s.Notify(ctx, "+251911000001", "first"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if err := s.Notify(ctx, "+251911000002", "second"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	sent := s.Sent()
	if len(sent) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(sent))
	}
	if sent[0].To != "+251911000001" || sent[0].Body != "first" || sent[0].From != "+251912345678" {
		t.Errorf("Unexpected first message: %+v", sent[0])
	}
	if sent[1].SentAt.IsZero() {
		t.Error("Expected SentAt to be set")
	}

	sent[0].Body = "mutated"
	if s.Sent()[0].Body != "first" {
		t.Error("Sent should return a copy")
	}
}

func TestMockSender_Errors(t *testing.T) {
	s := NewMockSender("x")

	if err := s.Notify(context.Background(), "", "body"); err == nil {
		t.Error("Expected error for empty recipient")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Notify(ctx, "+251911000001", "body"); err == nil {
		t.Error("Expected error for cancelled context")
	}

	if len(s.Sent()) != 0 {
		t.Errorf("Expected no messages recorded, got %d", len(s.Sent()))
	}
}
