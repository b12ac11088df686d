package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/proposal-box/wallet"
	"github.com/spf13/cobra"
)

type connectArguments struct {
	Rpc   string
	Watch bool
}

var connectArgs connectArguments

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a wallet, switching it to the configured chain",
	Long:  `Request account access from a JSON-RPC wallet. With --watch, keep polling and print account and chain changes until interrupted.`,
	Run:   connectRun,
}

func init() {
	connectCmd.Flags().StringVarP(&connectArgs.Rpc, "rpc", "r", "", "wallet rpc url, overrides wallet.rpc")
	connectCmd.Flags().BoolVar(&connectArgs.Watch, "watch", false, "print account and chain changes")
}

func connectRun(cmd *cobra.Command, args []string) {
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
	url := connectArgs.Rpc
	if url == "" {
		url = conf.Wallet.RPC
	}
	if url == "" {
		fmt.Println("no wallet rpc configured, set wallet.rpc or --rpc")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	provider, err := wallet.DialProvider(ctx, url)
	if err != nil {
		cancel()
		fmt.Printf("dial wallet err:%v\n", err)
		return
	}
	defer provider.Close()
	session := wallet.NewSession(provider, conf.Chain.Params(), logger)
	addr, err := session.Connect(ctx)
	cancel()
	if err != nil {
		fmt.Printf("connect wallet err:%v\n", err)
		return
	}
	fmt.Printf("connected %s on chain %d\n", addr.Hex(), session.ChainID())

	gctx, gcancel := context.WithTimeout(context.Background(), 30*time.Second)
	gate, closeGate, err := newGate(gctx, conf, logger)
	if err == nil {
		defer closeGate()
		if bal, err := gate.Balance(gctx, addr.Hex()); err == nil {
			fmt.Printf("balance %s %s, enough:%v\n", bal.Formatted(), bal.Symbol, bal.MeetsThreshold(gate.Required))
		}
	}
	gcancel()

	if !connectArgs.Watch {
		return
	}
	accounts := make(chan wallet.AccountEvent, 8)
	chains := make(chan wallet.ChainEvent, 8)
	accSub := session.SubscribeAccounts(accounts)
	defer accSub.Unsubscribe()
	chainSub := session.SubscribeChain(chains)
	defer chainSub.Unsubscribe()

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go session.Run(runCtx, conf.Wallet.PollInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case ev := <-accounts:
			if ev.Connected {
				fmt.Printf("account changed to %s\n", ev.Address.Hex())
			} else {
				fmt.Println("wallet disconnected")
			}
		case ev := <-chains:
			fmt.Printf("chain changed to %d\n", ev.ChainID)
			if ev.ChainID != conf.Chain.ID {
				fmt.Printf("switch back to %s (%d) to submit or vote\n", conf.Chain.Name, conf.Chain.ID)
			}
		case err := <-accSub.Err():
			if err != nil {
				fmt.Printf("subscription err:%v\n", err)
			}
			return
		case <-sig:
			return
		}
	}
}
