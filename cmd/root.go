package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "payment-relay",
	Short: "Payment initiation and reconciliation relay",
	Long:  "Relays hosted-payment-page checkouts to the card gateway, reconciles its webhooks, and issues accounting documents.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
