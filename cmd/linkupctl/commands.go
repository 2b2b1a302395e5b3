package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkupapp/linkup/internal/crypto"
	"github.com/linkupapp/linkup/internal/db"
)

const defaultLedgerRetention = 30 * 24 * time.Hour

func migrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables the webhook engine needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pool, err := db.Connect(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.ApplySchema(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", envOr("DATABASE_URL", ""), "Postgres connection string")
	return cmd
}

func pruneLedgerCmd() *cobra.Command {
	var (
		databaseURL string
		retention   time.Duration
		maxEventAge string
	)

	cmd := &cobra.Command{
		Use:   "prune-ledger",
		Short: "Delete processed event records older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkRetention(retention, maxEventAge); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			pool, err := db.Connect(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			cutoff := time.Now().UTC().Add(-retention)
			removed, err := db.NewProcessedEventStore(pool).Prune(ctx, cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d processed events received before %s\n", removed, cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", envOr("DATABASE_URL", ""), "Postgres connection string")
	cmd.Flags().DurationVar(&retention, "retention", defaultLedgerRetention, "How long processed event records are kept")
	cmd.Flags().StringVar(&maxEventAge, "max-event-age", envOr("WEBHOOK_MAX_EVENT_AGE", "72h"), "Oldest event the engine accepts; retention must exceed it")
	return cmd
}

// checkRetention rejects windows that would drop ledger rows for events the
// engine can still accept.
func checkRetention(retention time.Duration, maxEventAge string) error {
	maxAge, err := time.ParseDuration(strings.TrimSpace(maxEventAge))
	if err != nil {
		return fmt.Errorf("invalid max event age %q: %w", maxEventAge, err)
	}
	if maxAge <= 0 {
		return fmt.Errorf("max event age must be positive, got %s", maxAge)
	}
	if retention <= maxAge {
		return fmt.Errorf("retention (%s) must exceed the max event age (%s)", retention, maxAge)
	}
	return nil
}

func encryptSecretCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "encrypt-secret",
		Short: "Seal a webhook signing secret read from stdin for STRIPE_WEBHOOK_SECRET_ENCRYPTED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sealer, err := crypto.NewSealer(key, crypto.PurposeWebhookSecret)
			if err != nil {
				return err
			}

			raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
			if err != nil {
				return fmt.Errorf("failed to read secret: %w", err)
			}
			secret := strings.TrimSpace(string(raw))
			if secret == "" {
				return fmt.Errorf("secret is required on stdin")
			}

			sealed, err := sealer.Seal(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "encryption-key", envOr("ENCRYPTION_KEY", ""), "32-byte key, raw or base64")
	return cmd
}

func envOr(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}
