package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finarth/internal/log"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"}, log.Discard())
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("expected missing spreadsheet id error, got %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	got, err := loadCredentials(Config{CredentialsJSON: ` {"type":"service_account"} `})
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("inline json: got %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = loadCredentials(Config{CredentialsFile: path})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("file: got %q, %v", got, err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if _, err := loadCredentials(Config{}); err != nil {
		t.Fatalf("application default path: %v", err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := loadCredentials(Config{}); err == nil || !strings.Contains(err.Error(), "missing service account") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	if _, err := loadCredentials(Config{CredentialsFile: filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Fatal("expected read error")
	}
}

func TestTabName(t *testing.T) {
	if got := TabName("Holdings", 42); got != "Holdings 42" {
		t.Fatalf("unexpected tab name %q", got)
	}
}
