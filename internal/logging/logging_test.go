package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithStoresAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, _ := With(context.Background(), base, "event_id", "evt_1")
	FromContext(ctx, nil).Info("handled")

	if !strings.Contains(buf.String(), "event_id=evt_1") {
		t.Fatalf("log output %q missing event_id", buf.String())
	}
}

func TestFromContextFallback(t *testing.T) {
	t.Parallel()

	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Fatal("expected fallback logger")
	}
	if got := FromContext(context.Background(), nil); got == nil {
		t.Fatal("expected discard logger, got nil")
	}
}

func TestMultiHandlerRespectsLevels(t *testing.T) {
	t.Parallel()

	var debug, errs bytes.Buffer
	logger := slog.New(MultiHandler(
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		nil,
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)).With("component", "test")

	logger.Info("routine")
	logger.Error("broken")

	if !strings.Contains(debug.String(), "routine") || !strings.Contains(debug.String(), "broken") {
		t.Fatalf("debug handler output = %q", debug.String())
	}
	if strings.Contains(errs.String(), "routine") || !strings.Contains(errs.String(), "component=test") {
		t.Fatalf("error handler output = %q", errs.String())
	}
}

func TestRedactSecrets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{ReplaceAttr: RedactSecrets}))
	logger.Info("loaded", "secret", "whsec_live", "Signature", "t=1,v1=abc", "event_id", "evt_1")

	out := buf.String()
	if strings.Contains(out, "whsec_live") || strings.Contains(out, "v1=abc") {
		t.Fatalf("secret leaked: %q", out)
	}
	if !strings.Contains(out, "event_id=evt_1") {
		t.Fatalf("expected event_id kept: %q", out)
	}
}
