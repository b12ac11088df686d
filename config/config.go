package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/proposal-box/store"
	"github.com/calehh/proposal-box/wallet"
	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultTokenContract  = "0xa884C16a93792D1E0156fF4C8A3B2C59b8d04C9A"
	DefaultRequiredAmount = 10000
)

var (
	ErrInvalidContract = errors.New("invalid token contract address")
	ErrMissingRPC      = errors.New("token gate needs an rpc endpoint")
)

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Key     string `mapstructure:"key"`
}

type TokenConfig struct {
	// Gate turns token ownership checks on for submitting and voting.
	Gate           bool   `mapstructure:"gate"`
	RPC            string `mapstructure:"rpc"`
	Contract       string `mapstructure:"contract"`
	RequiredAmount uint64 `mapstructure:"required_amount"`
}

type ChainConfig struct {
	ID               uint64 `mapstructure:"id"`
	Name             string `mapstructure:"name"`
	RPC              string `mapstructure:"rpc"`
	Explorer         string `mapstructure:"explorer"`
	CurrencyName     string `mapstructure:"currency_name"`
	CurrencySymbol   string `mapstructure:"currency_symbol"`
	CurrencyDecimals uint8  `mapstructure:"currency_decimals"`
}

func (c *ChainConfig) Params() wallet.ChainParams {
	return wallet.ChainParams{
		ChainID:     c.ID,
		Name:        c.Name,
		RPCURL:      c.RPC,
		ExplorerURL: c.Explorer,
		Currency: wallet.Currency{
			Name:     c.CurrencyName,
			Symbol:   c.CurrencySymbol,
			Decimals: c.CurrencyDecimals,
		},
	}
}

type WalletConfig struct {
	RPC          string        `mapstructure:"rpc"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ServiceConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	ExportDir  string `mapstructure:"export_dir"`
}

type Config struct {
	Home     string `mapstructure:"-"`
	LogLevel string `mapstructure:"log_level"`

	Store   *StoreConfig   `mapstructure:"store"`
	Token   *TokenConfig   `mapstructure:"token"`
	Chain   *ChainConfig   `mapstructure:"chain"`
	Wallet  *WalletConfig  `mapstructure:"wallet"`
	Service *ServiceConfig `mapstructure:"service"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.aikira")
	}
	base := wallet.BaseChain
	return &Config{
		Home:     home,
		LogLevel: "info",
		Store: &StoreConfig{
			Backend: store.BackendGoLevelDB,
			Dir:     "data",
			Key:     store.DefaultKey,
		},
		Token: &TokenConfig{
			Gate:           false,
			RPC:            base.RPCURL,
			Contract:       DefaultTokenContract,
			RequiredAmount: DefaultRequiredAmount,
		},
		Chain: &ChainConfig{
			ID:               base.ChainID,
			Name:             base.Name,
			RPC:              base.RPCURL,
			Explorer:         base.ExplorerURL,
			CurrencyName:     base.Currency.Name,
			CurrencySymbol:   base.Currency.Symbol,
			CurrencyDecimals: base.Currency.Decimals,
		},
		Wallet: &WalletConfig{
			RPC:          "",
			PollInterval: wallet.DefaultPollInterval,
		},
		Service: &ServiceConfig{
			ListenAddr: "127.0.0.1:8088",
			ExportDir:  "exports",
		},
	}
}

func ConfigFile(home string) string {
	return filepath.Join(home, "config", "config.toml")
}

func (c *Config) rootify(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Home, path)
}

// DBPath is where the store backend keeps its files.
func (c *Config) DBPath() string {
	dir := c.rootify(c.Store.Dir)
	if c.Store.Backend == store.BackendSQLite {
		return filepath.Join(dir, "proposals.db")
	}
	return filepath.Join(dir, "proposals")
}

func (c *Config) ExportDir() string {
	return c.rootify(c.Service.ExportDir)
}

func (c *Config) TokenContract() common.Address {
	return common.HexToAddress(c.Token.Contract)
}

func (c *Config) ValidateBasic() error {
	if c.Store == nil || c.Token == nil || c.Chain == nil || c.Wallet == nil || c.Service == nil {
		return errors.New("incomplete config")
	}
	switch c.Store.Backend {
	case store.BackendGoLevelDB, store.BackendSQLite:
	default:
		return fmt.Errorf("%w: %q", store.ErrUnknownBackend, c.Store.Backend)
	}
	if !common.IsHexAddress(c.Token.Contract) {
		return fmt.Errorf("%w: %q", ErrInvalidContract, c.Token.Contract)
	}
	if c.Token.Gate && c.Token.RPC == "" {
		return ErrMissingRPC
	}
	if c.Chain.ID == 0 {
		return errors.New("chain id must be set")
	}
	if c.Wallet.PollInterval < 0 {
		return errors.New("wallet poll interval can't be negative")
	}
	return nil
}
