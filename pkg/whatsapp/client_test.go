package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"081234567890", "6281234567890"},
		{"+62 812-3456-7890", "6281234567890"},
		{"6281234567890", "6281234567890"},
		{"81234567890", "6281234567890"},
		{"0812", ""},
		{"", ""},
		{"0812345678901234567", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSendMessage(t *testing.T) {
	var got SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dev/send/message" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "u" || pass != "p" {
			t.Errorf("basic auth = %s/%s/%v", user, pass, ok)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"message_id":"m1","status":"sent"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", "dev")
	resp, err := c.SendMessage(context.Background(), "0812-3456-7890", "halo")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Data.MessageID != "m1" {
		t.Errorf("message id = %s, want m1", resp.Data.MessageID)
	}
	if got.Phone != "6281234567890@s.whatsapp.net" || got.Message != "halo" {
		t.Errorf("request = %+v", got)
	}

	if _, err := c.SendMessage(context.Background(), "12", "x"); err == nil {
		t.Error("expected error for invalid phone")
	}
}

func TestSendMessageRetries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int
	}{
		{"server errors are retried", http.StatusBadGateway, sendAttempts},
		{"client errors are not", http.StatusUnauthorized, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "u", "p", "")
			_, err := c.SendMessage(context.Background(), "081234567890", "halo")
			var gwErr *GatewayError
			if !errors.As(err, &gwErr) || gwErr.StatusCode != tt.status {
				t.Fatalf("err = %v, want GatewayError %d", err, tt.status)
			}
			if int(calls.Load()) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}
