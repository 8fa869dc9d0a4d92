package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir  string `yaml:"data_dir" json:"data_dir"`
	Listen   string `yaml:"listen" json:"listen"`
	LogLevel string `yaml:"log_level" json:"log_level"`

	Wallet    Wallet    `yaml:"wallet" json:"wallet"`
	Docustore Docustore `yaml:"docustore" json:"docustore"`
	Sync      Sync      `yaml:"sync" json:"sync"`
}

type Wallet struct {
	AccountID string `yaml:"account_id" json:"account_id"`
}

type Docustore struct {
	ContractAddress string `yaml:"contract_address" json:"contract_address"`
	FeeAmount       string `yaml:"fee_amount" json:"fee_amount"`
	FeeDenom        string `yaml:"fee_denom" json:"fee_denom"`
	Gas             string `yaml:"gas" json:"gas"`
}

type Sync struct {
	// Generic remote-call retry budget (exponential backoff).
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	RetryBaseMS   int `yaml:"retry_base_ms" json:"retry_base_ms"`
	// Post-write confirmation polling budget (fixed interval).
	ConfirmAttempts   int `yaml:"confirm_attempts" json:"confirm_attempts"`
	ConfirmIntervalMS int `yaml:"confirm_interval_ms" json:"confirm_interval_ms"`

	OutboxSize int `yaml:"outbox_size" json:"outbox_size"`
}

func (s Sync) RetryBase() time.Duration {
	return time.Duration(s.RetryBaseMS) * time.Millisecond
}

func (s Sync) ConfirmInterval() time.Duration {
	return time.Duration(s.ConfirmIntervalMS) * time.Millisecond
}

func Default() Config {
	return Config{
		DataDir:  "data",
		Listen:   ":8420",
		LogLevel: "info",
		Docustore: Docustore{
			FeeAmount: "1000",
			FeeDenom:  "uxion",
			Gas:       "200000",
		},
		Sync: Sync{
			RetryAttempts:     3,
			RetryBaseMS:       1000,
			ConfirmAttempts:   10,
			ConfirmIntervalMS: 2000,
			OutboxSize:        256,
		},
	}
}

// Load reads a yaml config file, layering it over defaults and applying
// environment overrides last. A missing file is not an error; defaults and
// the environment cover it.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FromEnv(cfg), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return FromEnv(cfg), nil
}
