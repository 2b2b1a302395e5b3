package main

// Command linkupctl runs operator tasks against the webhook database.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "linkupctl",
		Short:         "Operator tasks for the Linkup payment webhook service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(pruneLedgerCmd())
	rootCmd.AddCommand(encryptSecretCmd())

	return rootCmd
}
