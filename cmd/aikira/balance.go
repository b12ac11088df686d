package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type balanceArguments struct {
	Address string
}

var balanceArgs balanceArguments

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Read the token balance of an address and check it against the gate",
	Long:  ``,
	Run:   balanceRun,
}

func init() {
	balanceCmd.Flags().StringVarP(&balanceArgs.Address, "address", "a", "", "wallet address")
	_ = balanceCmd.MarkFlagRequired("address")
}

func balanceRun(cmd *cobra.Command, args []string) {
	conf, err := loadConfig()
	if err != nil {
		fmt.Printf("load config err:%v\n", err)
		return
	}
	logger, err := newLogger(conf, os.Stderr)
	if err != nil {
		fmt.Printf("parse log level err:%v\n", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	gate, closeGate, err := newGate(ctx, conf, logger)
	if err != nil {
		fmt.Printf("token gate err:%v\n", err)
		return
	}
	defer closeGate()
	bal, err := gate.Balance(ctx, balanceArgs.Address)
	if err != nil {
		fmt.Printf("get token balance err:%v\n", err)
		return
	}
	fmt.Printf("%s %s (required %d, enough:%v)\n", bal.Formatted(), bal.Symbol, gate.Required, bal.MeetsThreshold(gate.Required))
}
