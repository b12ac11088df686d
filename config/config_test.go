package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calehh/proposal-box/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	conf := DefaultConfig("/tmp/aikira")
	require.NoError(t, conf.ValidateBasic())
	assert.Equal(t, uint64(8453), conf.Chain.ID)
	assert.Equal(t, "0x2105", conf.Chain.Params().HexID())
	assert.Equal(t, "https://basescan.org", conf.Chain.Params().ExplorerURL)
	assert.Equal(t, uint64(10000), conf.Token.RequiredAmount)
	assert.Equal(t, "0xa884C16a93792D1E0156fF4C8A3B2C59b8d04C9A", conf.TokenContract().Hex())
	assert.Equal(t, "/tmp/aikira/data/proposals", conf.DBPath())
	assert.Equal(t, "/tmp/aikira/exports", conf.ExportDir())

	conf.Store.Backend = store.BackendSQLite
	conf.Store.Dir = "/var/lib/aikira"
	assert.Equal(t, "/var/lib/aikira/proposals.db", conf.DBPath())
}

func TestWriteAndLoadConfig(t *testing.T) {
	home := t.TempDir()
	conf := DefaultConfig(home)
	conf.LogLevel = "store:debug,*:info"
	conf.Store.Backend = store.BackendSQLite
	conf.Store.Key = "tab_two"
	conf.Token.Gate = true
	conf.Token.RequiredAmount = 42
	conf.Wallet.RPC = "http://127.0.0.1:8545"
	conf.Wallet.PollInterval = 2 * time.Second
	conf.Service.ListenAddr = "0.0.0.0:9000"
	require.NoError(t, WriteConfigFile(ConfigFile(home), conf))

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, conf, loaded)
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	home := t.TempDir()
	path := ConfigFile(home)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("[token]\nrequired_amount = 5\n"), 0o644))

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), loaded.Token.RequiredAmount)
	assert.Equal(t, DefaultTokenContract, loaded.Token.Contract)
	assert.Equal(t, store.BackendGoLevelDB, loaded.Store.Backend)
	assert.Equal(t, 5*time.Second, loaded.Wallet.PollInterval)
}

func TestValidateBasic(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		want   error
	}{
		"backend": {func(c *Config) { c.Store.Backend = "redis" }, store.ErrUnknownBackend},
		"contract": {func(c *Config) { c.Token.Contract = "aikira" }, ErrInvalidContract},
		"gate rpc": {func(c *Config) {
			c.Token.Gate = true
			c.Token.RPC = ""
		}, ErrMissingRPC},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			conf := DefaultConfig(t.TempDir())
			tc.mutate(conf)
			assert.ErrorIs(t, conf.ValidateBasic(), tc.want)
		})
	}

	conf := DefaultConfig(t.TempDir())
	conf.Chain.ID = 0
	assert.Error(t, conf.ValidateBasic())
}

func TestTemplateMentionsEverySection(t *testing.T) {
	for _, section := range []string{"[store]", "[token]", "[chain]", "[wallet]", "[service]"} {
		assert.True(t, strings.Contains(defaultConfigTemplate, section), section)
	}
}

func TestWriteConfigFileReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.toml")
	require.NoError(t, os.MkdirAll(path, 0o755))
	var err error
	assert.NotPanics(t, func() { err = WriteConfigFile(path, DefaultConfig(t.TempDir())) })
	assert.Error(t, err)
}
