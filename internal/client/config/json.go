package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gamevault/internal/flagx"
	"github.com/dmitrijs2005/gamevault/internal/timex"
)

// jsonConfig is the on-disk shape. Absent keys leave the current value
// alone; durations accept "15s" or integer nanoseconds.
type jsonConfig struct {
	BackendURL         *string         `json:"backend_url"`
	RPCURL             *string         `json:"rpc_url"`
	ChainID            *int64          `json:"chain_id"`
	RegistryAddress    *string         `json:"registry_address"`
	RegistryFromBlock  *uint64         `json:"registry_from_block"`
	LicenseTokenID     *int64          `json:"license_token_id"`
	MaxBlockSpan       *uint64         `json:"max_block_span"`
	OwnershipWorkers   *int            `json:"ownership_workers"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	DBPath             *string         `json:"db_path"`
	SessionBackend     *string         `json:"session_backend"`
	RedisAddr          *string         `json:"redis_addr"`
	RedisPassword      *string         `json:"redis_password"`
	WalletKeyHex       *string         `json:"wallet_key"`
	LogLevel           *string         `json:"log_level"`
	RefreshMaxAttempts *int            `json:"refresh_max_attempts"`
	RefreshWindow      *timex.Duration `json:"refresh_window"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set(&cfg.BackendURL, jc.BackendURL)
	set(&cfg.RPCURL, jc.RPCURL)
	set(&cfg.ChainID, jc.ChainID)
	set(&cfg.RegistryAddress, jc.RegistryAddress)
	set(&cfg.RegistryFromBlock, jc.RegistryFromBlock)
	set(&cfg.LicenseTokenID, jc.LicenseTokenID)
	set(&cfg.MaxBlockSpan, jc.MaxBlockSpan)
	set(&cfg.OwnershipWorkers, jc.OwnershipWorkers)
	set(&cfg.DBPath, jc.DBPath)
	set(&cfg.SessionBackend, jc.SessionBackend)
	set(&cfg.RedisAddr, jc.RedisAddr)
	set(&cfg.RedisPassword, jc.RedisPassword)
	set(&cfg.WalletKeyHex, jc.WalletKeyHex)
	set(&cfg.LogLevel, jc.LogLevel)
	set(&cfg.RefreshMaxAttempts, jc.RefreshMaxAttempts)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RefreshWindow != nil {
		cfg.RefreshWindow = jc.RefreshWindow.Duration
	}
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
