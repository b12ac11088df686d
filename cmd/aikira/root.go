package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/calehh/proposal-box/chain"
	"github.com/calehh/proposal-box/config"
	"github.com/calehh/proposal-box/store"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
)

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "aikira",
	Short: "Token gated community proposal box",
	Long: `Collect community proposals and votes, gated by ownership
                of an ERC-20 token on Base.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&homeDir, FlagHome, "d", "", "home directory")
}

// loadConfig reads the config file, falling back to defaults when the home
// was never initialized.
func loadConfig() (*config.Config, error) {
	conf, err := config.LoadConfig(homeDir)
	if errors.Is(err, fs.ErrNotExist) {
		conf = config.DefaultConfig(homeDir)
		return conf, conf.ValidateBasic()
	}
	return conf, err
}

func newLogger(conf *config.Config, out *os.File) (cmtlog.Logger, error) {
	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(out))
	return cmtflags.ParseLogLevel(conf.LogLevel, logger, cmtconfig.DefaultLogLevel)
}

func openStore(conf *config.Config, logger cmtlog.Logger) (*store.ProposalStore, error) {
	kv, err := store.OpenKV(conf.Store.Backend, conf.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", conf.Store.Backend, err)
	}
	ps := store.NewProposalStore(kv, logger, store.WithKey(conf.Store.Key))
	if !ps.Initialize() {
		ps.Close()
		return nil, errors.New("initialize store fail")
	}
	return ps, nil
}

// newGate dials the token rpc. A gate that is not enforced tolerates an
// unreachable endpoint and only loses balance reads.
func newGate(ctx context.Context, conf *config.Config, logger cmtlog.Logger) (*chain.Gate, func(), error) {
	if conf.Token.RPC == "" {
		return chain.NewGate(nil, conf.TokenContract(), conf.Token.RequiredAmount, false), func() {}, nil
	}
	client, err := chain.Dial(ctx, conf.Token.RPC, conf.Chain.ID)
	if err != nil {
		if conf.Token.Gate {
			return nil, nil, fmt.Errorf("dial token rpc: %w", err)
		}
		logger.Error("dial token rpc fail", "rpc", conf.Token.RPC, "err", err)
		return chain.NewGate(nil, conf.TokenContract(), conf.Token.RequiredAmount, false), func() {}, nil
	}
	reader := chain.NewERC20Reader(client, logger)
	return chain.NewGate(reader, conf.TokenContract(), conf.Token.RequiredAmount, conf.Token.Gate), client.Close, nil
}

// cliEnv bundles what the one-shot commands need.
type cliEnv struct {
	conf   *config.Config
	logger cmtlog.Logger
	store  *store.ProposalStore
}

func newCliEnv() (*cliEnv, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(conf, os.Stderr)
	if err != nil {
		return nil, err
	}
	ps, err := openStore(conf, logger)
	if err != nil {
		return nil, err
	}
	return &cliEnv{conf: conf, logger: logger, store: ps}, nil
}

func (e *cliEnv) Close() {
	e.store.Close()
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("marshal output err:%v\n", err)
		return
	}
	fmt.Println(string(out))
}
