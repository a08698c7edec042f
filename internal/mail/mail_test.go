package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"finarth/internal/log"
)

func TestVerificationLink(t *testing.T) {
	got := VerificationLink("https://finarth.app/", "a b&c")
	want := "https://finarth.app/api/users/verify?token=a+b%26c"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVerificationMessage(t *testing.T) {
	msg := VerificationMessage("http://localhost:8080/api/users/verify?token=t")
	if msg.Subject == "" {
		t.Fatal("subject must not be empty")
	}
	if !strings.Contains(msg.Plain, "token=t") || !strings.Contains(msg.HTML, `href="http://localhost:8080/api/users/verify?token=t"`) {
		t.Fatalf("link missing from bodies: %+v", msg)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender("http://localhost:8080", log.New(log.Config{Output: &buf}))
	if err := s.SendVerification(context.Background(), "ana@example.com", "tok-1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "token=tok-1") || !strings.Contains(buf.String(), "component=mail") {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		code     int
		wantErr  bool
		rejected bool
	}{
		{202, false, false},
		{400, true, true},
		{403, true, true},
		{429, true, false},
		{503, true, false},
	}
	for _, tt := range tests {
		err := statusError(tt.code, "body")
		if (err != nil) != tt.wantErr {
			t.Errorf("status %d: error = %v, wantErr %v", tt.code, err, tt.wantErr)
		}
		if errors.Is(err, ErrRejected) != tt.rejected {
			t.Errorf("status %d: rejected = %v, want %v", tt.code, errors.Is(err, ErrRejected), tt.rejected)
		}
	}
}
