package main

import "github.com/spf13/cobra"

const (
	FlagHome      = "home"
	FlagOverwrite = "overwrite"
	FlagBackend   = "backend"
	FlagGate      = "gate"
	FlagMerge     = "merge"
)

func walletFlag(cmd *cobra.Command, wallet *string) {
	cmd.Flags().StringVarP(wallet, "wallet", "w", "", "wallet address, empty for Anonymous")
}

func idFlag(cmd *cobra.Command, id *string) {
	cmd.Flags().StringVarP(id, "id", "i", "", "proposal id")
	_ = cmd.MarkFlagRequired("id")
}
