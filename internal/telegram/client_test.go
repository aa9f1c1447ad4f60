package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain text", "plain text"},
		{"score: 0.85", "score: 0\\.85"},
		{"(medium)", "\\(medium\\)"},
		{"+251-911", "\\+251\\-911"},
		{"a_b*c", "a\\_b\\*c"},
		{"ማሳዎን ይመርምሩ.", "ማሳዎን ይመርምሩ\\."},
	}

	for _, tt := range tests {
		result := escapeMarkdownV2(tt.input)
		if result != tt.expected {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestFormatMessage(t *testing.T) {
	msg := formatMessage("+251911000001", "Alert: HIGH pest risk in Adama (score: 0.90).")

	if !strings.Contains(msg, "Farmer: \\+251911000001") {
		t.Errorf("Expected escaped recipient, got %q", msg)
	}
	if !strings.Contains(msg, "\\(score: 0\\.90\\)\\.") {
		t.Errorf("Expected escaped body, got %q", msg)
	}

	if strings.Contains(formatMessage("", "x"), "Farmer:") {
		t.Error("Expected no recipient line for empty recipient")
	}
}

func newBotServer(t *testing.T, sendStatus func(call int32) int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var sends atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"riskwatch","username":"riskwatch_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			n := sends.Add(1)
			if sendStatus(n) != http.StatusOK {
				_, _ = w.Write([]byte(`{"ok":false,"error_code":500,"description":"Internal Server Error"}`))
				return
			}
			if err := r.ParseForm(); err != nil {
				t.Errorf("ParseForm: %v", err)
			}
			if r.Form.Get("chat_id") != "42" {
				t.Errorf("Expected chat_id 42, got %s", r.Form.Get("chat_id"))
			}
			if r.Form.Get("parse_mode") != "MarkdownV2" {
				t.Errorf("Expected MarkdownV2 parse mode, got %s", r.Form.Get("parse_mode"))
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return server, &sends
}

func TestNotify(t *testing.T) {
	server, sends := newBotServer(t, func(int32) int { return http.StatusOK })
	defer server.Close()

	client, err := NewClientWithEndpoint("TOKEN", "42", server.URL+"/bot%s/%s", 3, time.Millisecond)
	if err != nil {
		t.Fatalf("NewClientWithEndpoint failed: %v", err)
	}

	if err := client.Notify(context.Background(), "+251911000001", "Alert: HIGH pest risk in Adama"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if sends.Load() != 1 {
		t.Errorf("Expected 1 send, got %d", sends.Load())
	}
}

func TestNotify_Retries(t *testing.T) {
	server, sends := newBotServer(t, func(call int32) int {
		if call < 3 {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	})
	defer server.Close()

	client, err := NewClientWithEndpoint("TOKEN", "42", server.URL+"/bot%s/%s", 3, time.Millisecond)
	if err != nil {
		t.Fatalf("NewClientWithEndpoint failed: %v", err)
	}

	if err := client.Notify(context.Background(), "+251911000001", "retry me"); err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if sends.Load() != 3 {
		t.Errorf("Expected 3 sends, got %d", sends.Load())
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	server, _ := newBotServer(t, func(int32) int { return http.StatusOK })
	defer server.Close()

	if _, err := NewClientWithEndpoint("TOKEN", "not-a-number", server.URL+"/bot%s/%s", 1, 0); err == nil {
		t.Fatal("Expected error for non-numeric chat ID")
	}
}
