package config

import (
	"os"
	"strconv"
)

// FromEnv applies environment-variable overrides on top of cfg.
func FromEnv(cfg Config) Config {
	if v := os.Getenv("TENDLY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TENDLY_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("TENDLY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TENDLY_ACCOUNT_ID"); v != "" {
		cfg.Wallet.AccountID = v
	}
	if v := os.Getenv("TENDLY_DOCUSTORE_CONTRACT_ADDRESS"); v != "" {
		cfg.Docustore.ContractAddress = v
	}

	if val := getEnvInt("TENDLY_SYNC_RETRY_ATTEMPTS"); val > 0 {
		cfg.Sync.RetryAttempts = val
	}
	if val := getEnvInt("TENDLY_SYNC_RETRY_BASE_MS"); val > 0 {
		cfg.Sync.RetryBaseMS = val
	}
	if val := getEnvInt("TENDLY_SYNC_CONFIRM_ATTEMPTS"); val > 0 {
		cfg.Sync.ConfirmAttempts = val
	}
	if val := getEnvInt("TENDLY_SYNC_CONFIRM_INTERVAL_MS"); val > 0 {
		cfg.Sync.ConfirmIntervalMS = val
	}
	if val := getEnvInt("TENDLY_SYNC_OUTBOX_SIZE"); val > 0 {
		cfg.Sync.OutboxSize = val
	}

	return cfg
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}
