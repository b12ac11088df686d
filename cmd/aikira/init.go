package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/calehh/proposal-box/config"
	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/cobra"
)

type printInfo struct {
	Home     string `json:"home"`
	Config   string `json:"config"`
	Backend  string `json:"backend"`
	DBPath   string `json:"db_path"`
	ChainID  uint64 `json:"chain_id"`
	Token    string `json:"token"`
	Required uint64 `json:"required_amount"`
	Gate     bool   `json:"gate"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration and create an empty proposal store",
	Long:  `Initialize the home directory with config/config.toml and the proposal database.`,
	Args:  cobra.ExactArgs(0),
	RunE:  initRun,
}

func init() {
	initCmd.Flags().BoolP(FlagOverwrite, "o", false, "overwrite an existing config.toml")
	initCmd.Flags().String(FlagBackend, "", "store backend, goleveldb or sqlite")
	initCmd.Flags().Bool(FlagGate, false, "require token ownership to submit and vote")
}

func initRun(cmd *cobra.Command, args []string) error {
	overwrite, _ := cmd.Flags().GetBool(FlagOverwrite)
	backend, _ := cmd.Flags().GetString(FlagBackend)
	gate, _ := cmd.Flags().GetBool(FlagGate)

	conf := config.DefaultConfig(homeDir)
	if backend != "" {
		conf.Store.Backend = backend
	}
	conf.Token.Gate = gate
	if err := conf.ValidateBasic(); err != nil {
		return err
	}

	confFile := config.ConfigFile(conf.Home)
	if cmtos.FileExists(confFile) && !overwrite {
		return fmt.Errorf("%s already exists, use --%s to replace it", confFile, FlagOverwrite)
	}
	if err := config.WriteConfigFile(confFile, conf); err != nil {
		return err
	}

	logger, err := newLogger(conf, os.Stderr)
	if err != nil {
		return err
	}
	ps, err := openStore(conf, logger)
	if err != nil {
		return err
	}
	ps.Close()

	return displayInfo(printInfo{
		Home:     conf.Home,
		Config:   confFile,
		Backend:  conf.Store.Backend,
		DBPath:   conf.DBPath(),
		ChainID:  conf.Chain.ID,
		Token:    conf.Token.Contract,
		Required: conf.Token.RequiredAmount,
		Gate:     conf.Token.Gate,
	})
}
