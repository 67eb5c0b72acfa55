package gmail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spendwatch/internal/notify"
)

func TestNew_MissingSender(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing sender address" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingClient(t *testing.T) {
	_, err := New(context.Background(), Config{From: "me@example.com"})
	if err == nil || !strings.Contains(err.Error(), "oauth client") {
		t.Fatalf("expected oauth client error, got %v", err)
	}
}

func TestNew_InvalidClientJSON(t *testing.T) {
	_, err := New(context.Background(), Config{
		From:            "me@example.com",
		OAuthClientJSON: "invalid-json",
		OAuthTokenJSON:  `{"access_token":"test"}`,
	})
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}
}

func TestReadSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if b, err := readSecret(`{"inline":true}`, path); err != nil || string(b) != `{"inline":true}` {
		t.Fatalf("inline should win: %s %v", b, err)
	}
	if b, err := readSecret("", path); err != nil || string(b) != `{"a":1}` {
		t.Fatalf("file read: %s %v", b, err)
	}
	if _, err := readSecret("", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := readSecret("", ""); err == nil {
		t.Fatal("expected error when nothing provided")
	}
}

func TestBuildMIME_PlainText(t *testing.T) {
	date := time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC)
	raw, err := buildMIME("me@example.com", notify.Message{
		Subject: "Limit exceeded",
		Text:    "You spent 1000.01",
		To:      []string{"a@example.com", " ", "b@example.com"},
	}, date)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	s := string(raw)
	for _, want := range []string{
		"From: me@example.com\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: Limit exceeded\r\n",
		"Content-Type: text/plain",
		"\r\n\r\nYou spent 1000.01",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("message missing %q:\n%s", want, s)
		}
	}
}

func TestBuildMIME_Alternative(t *testing.T) {
	raw, err := buildMIME("me@example.com", notify.Message{
		Subject: "Soglia superata €",
		Text:    "plain",
		HTML:    "<strong>html</strong>",
		To:      []string{"a@example.com"},
	}, time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, "multipart/alternative") || !strings.Contains(s, "<strong>html</strong>") {
		t.Fatalf("expected multipart body:\n%s", s)
	}
	if !strings.Contains(s, "Subject: =?utf-8?q?") {
		t.Fatalf("non-ascii subject should be encoded:\n%s", s)
	}
}

func TestNotify_ValidatesBeforeSending(t *testing.T) {
	c := &Client{from: "me@example.com"} // svc is nil; must not be reached
	err := c.Notify(context.Background(), notify.Message{Subject: "s", Text: "b"})
	if !errors.Is(err, notify.ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}
