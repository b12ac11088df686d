package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/proposal-box/agent"
	"github.com/spf13/cobra"
)

type serveArguments struct {
	Listen string
}

var serveArgs serveArguments

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the proposal box over HTTP",
	Long:  ``,
	Run:   serveRun,
}

func init() {
	serveCmd.Flags().StringVarP(&serveArgs.Listen, "listen", "l", "", "listen address, overrides service.listen_addr")
}

func serveRun(cmd *cobra.Command, args []string) {
	conf, err := loadConfig()
	if err != nil {
		log.Fatalf("Reading config: %v", err)
	}
	logger, err := newLogger(conf, os.Stdout)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}
	if serveArgs.Listen != "" {
		conf.Service.ListenAddr = serveArgs.Listen
	}

	ps, err := openStore(conf, logger)
	if err != nil {
		log.Fatalf("open store err:%v", err)
	}
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	gate, closeGate, err := newGate(ctx, conf, logger)
	cancel()
	if err != nil {
		log.Fatalf("token gate err:%v", err)
	}
	defer closeGate()
	logger.Info("token gate", "enforced", gate.Enforced(), "token", conf.Token.Contract, "required", conf.Token.RequiredAmount)

	service := agent.NewService(conf.Service.ListenAddr, ps, gate, logger)
	go func() {
		if err := service.Start(); err != nil {
			log.Fatalf("start service err %s", err.Error())
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("shut down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown service fail", "err", err)
	}
}
