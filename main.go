package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "smartats",
		Short: "Smart ATS electricity bill assistant",
		Long: `smartats answers electricity billing questions for PEA residential and
agricultural customers. Bills are computed deterministically from the tariff
catalog; other questions go to the configured language model.

Examples:
  smartats chat
  smartats bill --units 120
  smartats bill --units 300 --hint tou --peak 100 --json
  smartats classes --date 2026-03-01`,
		SilenceUsage: true,
	}

	root.AddCommand(newChatCmd())
	root.AddCommand(newBillCmd())
	root.AddCommand(newClassesCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
