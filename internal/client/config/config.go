package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gamevault/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// Config holds runtime settings for the gamevault CLI.
type Config struct {
	BackendURL string `env:"BACKEND_URL"`
	RPCURL     string `env:"RPC_URL"`
	ChainID    int64  `env:"CHAIN_ID"`

	RegistryAddress   string `env:"REGISTRY_ADDRESS"`
	RegistryFromBlock uint64 `env:"REGISTRY_FROM_BLOCK"`
	LicenseTokenID    int64  `env:"LICENSE_TOKEN_ID"`
	MaxBlockSpan      uint64 `env:"MAX_BLOCK_SPAN"`
	OwnershipWorkers  int    `env:"OWNERSHIP_WORKERS"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	DBPath         string `env:"DB_PATH"`
	SessionBackend string `env:"SESSION_BACKEND"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`

	WalletKeyHex string `env:"WALLET_KEY"`
	LogLevel     string `env:"LOG_LEVEL"`

	RefreshMaxAttempts int           `env:"REFRESH_MAX_ATTEMPTS"`
	RefreshWindow      time.Duration `env:"REFRESH_WINDOW"`
}

// LoadDefaults populates c with settings for a local development chain.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:8080/api"
	c.RPCURL = "http://127.0.0.1:8545"
	c.ChainID = 31337
	c.RegistryFromBlock = 0
	c.LicenseTokenID = chain.DefaultLicenseTokenID.Int64()
	c.MaxBlockSpan = chain.DefaultMaxBlockSpan
	c.OwnershipWorkers = 4
	c.RequestTimeout = 15 * time.Second
	c.DBPath = "gamevault.db"
	c.SessionBackend = SessionBackendSQLite
	c.RedisAddr = "127.0.0.1:6379"
	c.LogLevel = "info"
	c.RefreshMaxAttempts = 3
	c.RefreshWindow = time.Minute
}

// LoadConfig builds a Config from defaults, the JSON file named in args,
// the environment and the flags in args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is LoadConfig(os.Args[1:]) that exits on error.
func MustLoad() *Config {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error
	if c.BackendURL == "" {
		errs = append(errs, errors.New("backend url is empty"))
	}
	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc url is empty"))
	}
	if c.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("chain id %d must be positive", c.ChainID))
	}
	switch {
	case c.RegistryAddress == "":
		errs = append(errs, errors.New("registry address is required"))
	case !chain.IsAddress(c.RegistryAddress):
		errs = append(errs, fmt.Errorf("registry address %q is not an address", c.RegistryAddress))
	case common.HexToAddress(c.RegistryAddress) == chain.NativeToken:
		errs = append(errs, errors.New("registry address must not be the zero address"))
	}
	if c.MaxBlockSpan == 0 {
		errs = append(errs, errors.New("max block span must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	switch c.SessionBackend {
	case SessionBackendSQLite, SessionBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("session backend %q: want %s or %s", c.SessionBackend, SessionBackendSQLite, SessionBackendRedis))
	}
	if c.RefreshMaxAttempts <= 0 || c.RefreshWindow <= 0 {
		errs = append(errs, errors.New("refresh rate limit must be positive"))
	}
	return errors.Join(errs...)
}
