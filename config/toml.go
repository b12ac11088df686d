package config

import (
	"bytes"
	_ "embed"
	"path/filepath"
	"text/template"

	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/viper"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

var configTemplate *template.Template

func init() {
	var err error
	if configTemplate, err = template.New("configFileTemplate").Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
func WriteConfigFile(configFilePath string, config *Config) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, config); err != nil {
		return err
	}
	if err := cmtos.EnsureDir(filepath.Dir(configFilePath), DefaultDirPerm); err != nil {
		return err
	}
	return cmtos.WriteFile(configFilePath, buffer.Bytes(), 0o644)
}

// LoadConfig reads <home>/config/config.toml over the defaults.
func LoadConfig(home string) (*Config, error) {
	conf := DefaultConfig(home)
	v := viper.New()
	v.SetConfigFile(ConfigFile(conf.Home))
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(conf); err != nil {
		return nil, err
	}
	if err := conf.ValidateBasic(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go.
//
//go:embed config.toml.tpl
var defaultConfigTemplate string
