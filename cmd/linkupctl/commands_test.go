package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/linkupapp/linkup/internal/crypto"
)

func TestEncryptSecretRoundTrip(t *testing.T) {
	key := strings.Repeat("k", 32)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("whsec_test\n"))
	cmd.SetArgs([]string{"encrypt-secret", "--encryption-key", key})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	sealer, err := crypto.NewSealer(key, crypto.PurposeWebhookSecret)
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	got, err := sealer.Open(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got != "whsec_test" {
		t.Fatalf("secret = %q, want whsec_test", got)
	}
}

func TestEncryptSecretRequiresInput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("   "))
	cmd.SetArgs([]string{"encrypt-secret", "--encryption-key", strings.Repeat("k", 32)})

	if err := cmd.Execute(); err == nil {
		t.Fatal("Execute() error = nil, want missing secret error")
	}
}

func TestPruneLedgerRejectsShortRetention(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"prune-ledger", "--retention", "1h", "--database-url", "postgres://unused"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "retention") {
		t.Fatalf("Execute() error = %v, want retention error", err)
	}
}

func TestPruneLedgerRetentionFollowsMaxEventAge(t *testing.T) {
	tests := []struct {
		name      string
		envAge    string
		args      []string
		wantError string
	}{
		{name: "shorter than env max age", envAge: "240h", args: []string{"--retention", "200h"}, wantError: "must exceed"},
		{name: "equal to env max age", envAge: "96h", args: []string{"--retention", "96h"}, wantError: "must exceed"},
		{name: "flag overrides env", envAge: "24h", args: []string{"--retention", "48h", "--max-event-age", "72h"}, wantError: "must exceed"},
		{name: "unparseable max age", envAge: "three days", args: []string{"--retention", "720h"}, wantError: "invalid max event age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WEBHOOK_MAX_EVENT_AGE", tt.envAge)

			cmd := newRootCmd()
			cmd.SetArgs(append([]string{"prune-ledger", "--database-url", "postgres://unused"}, tt.args...))

			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.wantError) {
				t.Fatalf("Execute() error = %v, want %q", err, tt.wantError)
			}
		})
	}
}

func TestCheckRetention(t *testing.T) {
	if err := checkRetention(96*time.Hour, "72h"); err != nil {
		t.Fatalf("checkRetention(96h, 72h) error = %v", err)
	}
	if err := checkRetention(72*time.Hour, "72h"); err == nil {
		t.Fatal("checkRetention(72h, 72h) error = nil, want rejection")
	}
	if err := checkRetention(96*time.Hour, "-1h"); err == nil {
		t.Fatal("checkRetention(96h, -1h) error = nil, want rejection")
	}
}
