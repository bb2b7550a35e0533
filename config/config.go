package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TomlAccount represents a tracked account from TOML
type TomlAccount struct {
	Handle      string `toml:"handle"`
	DisplayName string `toml:"display_name,omitempty"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Accounts []TomlAccount `toml:"accounts"`
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config TomlConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if len(config.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured in %s", path)
	}

	for _, account := range config.Accounts {
		if account.Handle == "" {
			return nil, fmt.Errorf("account without handle in %s", path)
		}
	}

	return &config, nil
}
