package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"nftrelay/service/internal/utils/address"
)

// Network describes a known Starknet network.
type Network struct {
	Name       string
	ChainID    string // short string, e.g. SN_SEPOLIA
	DefaultRPC string
}

var networks = map[string]Network{
	"sepolia-alpha": {Name: "sepolia-alpha", ChainID: "SN_SEPOLIA", DefaultRPC: "https://starknet-sepolia.public.blastapi.io"},
	"mainnet-alpha": {Name: "mainnet-alpha", ChainID: "SN_MAIN", DefaultRPC: "https://starknet-mainnet.public.blastapi.io"},
}

func LookupNetwork(name string) (Network, bool) {
	n, ok := networks[name]
	return n, ok
}

type Config struct {
	Chain    ChainConfig
	Wallet   WalletConfig
	Transfer TransferConfig
	Service  ServiceConfig
	Log      LogConfig
}

type ChainConfig struct {
	Network         Network
	RPCURL          string
	RPCTimeout      time.Duration
	ContractAddress string
}

// WalletConfig holds the single signing credential. Exactly one of PrivateKey or
// KeystorePath is expected.
type WalletConfig struct {
	Address            string
	PrivateKey         string
	KeystorePath       string
	KeystorePassphrase string
}

type TransferConfig struct {
	Entrypoint   string
	WaitBudget   time.Duration
	PollInterval time.Duration
	Fees         FeeConfig
}

// FeeConfig controls the resource bounds of submitted transactions. With every static
// bound left at zero the bounds come from starknet_estimateFee scaled by Multiplier.
type FeeConfig struct {
	Multiplier         float64
	L1GasMaxAmount     uint64
	L1GasMaxPrice      uint64
	L2GasMaxAmount     uint64
	L2GasMaxPrice      uint64
	L1DataGasMaxAmount uint64
	L1DataGasMaxPrice  uint64
}

// Static reports whether any static resource bound was configured.
func (f FeeConfig) Static() bool {
	return f.L1GasMaxAmount != 0 || f.L2GasMaxAmount != 0 || f.L1DataGasMaxAmount != 0
}

type ServiceConfig struct {
	HTTPAddr          string
	IdempotencyDBPath string
	IdempotencyWindow time.Duration
	ShutdownTimeout   time.Duration
}

type LogConfig struct {
	Level  string
	Pretty bool
}

const (
	defaultNetwork      = "sepolia-alpha"
	defaultEntrypoint   = "safe_transfer_from"
	defaultWaitBudget   = 2 * time.Minute
	defaultPollInterval = 2 * time.Second
	defaultMultiplier   = 1.5
)

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	networkName := envOr("STARKNET_NETWORK", defaultNetwork)
	network, ok := LookupNetwork(networkName)
	if !ok {
		return nil, fmt.Errorf("unknown starknet network %q", networkName)
	}

	cfg := &Config{
		Chain: ChainConfig{
			Network:         network,
			RPCURL:          envOr("STARKNET_RPC_URL", network.DefaultRPC),
			RPCTimeout:      envOrDuration("STARKNET_RPC_TIMEOUT", 10*time.Second),
			ContractAddress: os.Getenv("CONTRACT_ADDRESS"),
		},
		Wallet: WalletConfig{
			Address:            os.Getenv("WALLET_ADDRESS"),
			PrivateKey:         os.Getenv("WALLET_PRIVATE_KEY"),
			KeystorePath:       os.Getenv("WALLET_KEYSTORE_PATH"),
			KeystorePassphrase: os.Getenv("WALLET_KEYSTORE_PASSPHRASE"),
		},
		Transfer: TransferConfig{
			Entrypoint:   envOr("TRANSFER_ENTRYPOINT", defaultEntrypoint),
			WaitBudget:   envOrDuration("CONFIRM_WAIT_BUDGET", defaultWaitBudget),
			PollInterval: envOrDuration("CONFIRM_POLL_INTERVAL", defaultPollInterval),
			Fees: FeeConfig{
				Multiplier:         envOrFloat("FEE_MULTIPLIER", defaultMultiplier),
				L1GasMaxAmount:     envOrUint("L1_GAS_MAX_AMOUNT", 0),
				L1GasMaxPrice:      envOrUint("L1_GAS_MAX_PRICE", 0),
				L2GasMaxAmount:     envOrUint("L2_GAS_MAX_AMOUNT", 0),
				L2GasMaxPrice:      envOrUint("L2_GAS_MAX_PRICE", 0),
				L1DataGasMaxAmount: envOrUint("L1_DATA_GAS_MAX_AMOUNT", 0),
				L1DataGasMaxPrice:  envOrUint("L1_DATA_GAS_MAX_PRICE", 0),
			},
		},
		Service: ServiceConfig{
			HTTPAddr:          envOr("API_HTTP_ADDR", ":8000"),
			IdempotencyDBPath: envOr("IDEMPOTENCY_DB_PATH", "./tmp/idempotency.db"),
			IdempotencyWindow: envOrDuration("IDEMPOTENCY_WINDOW", 24*time.Hour),
			ShutdownTimeout:   envOrDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Pretty: envOrBool("LOG_PRETTY", false),
		},
	}
	return cfg, nil
}

// ValidateRead checks the values needed to read from the chain.
func (c *Config) ValidateRead() error {
	return errors.Join(c.readErrors()...)
}

func (c *Config) readErrors() []error {
	var errs []error
	if c.Chain.RPCURL == "" {
		errs = append(errs, errors.New("STARKNET_RPC_URL is required"))
	}
	if !address.Validate(c.Chain.ContractAddress) {
		errs = append(errs, fmt.Errorf("CONTRACT_ADDRESS %q is not a valid address", c.Chain.ContractAddress))
	}
	if c.Transfer.WaitBudget <= 0 {
		errs = append(errs, errors.New("CONFIRM_WAIT_BUDGET must be positive"))
	}
	if c.Transfer.PollInterval <= 0 || c.Transfer.PollInterval > c.Transfer.WaitBudget {
		errs = append(errs, errors.New("CONFIRM_POLL_INTERVAL must be positive and not exceed the wait budget"))
	}
	return errs
}

// Validate checks the values needed to read from and submit to the chain.
func (c *Config) Validate() error {
	errs := c.readErrors()
	if !address.Validate(c.Wallet.Address) {
		errs = append(errs, fmt.Errorf("WALLET_ADDRESS %q is not a valid address", c.Wallet.Address))
	}
	switch {
	case c.Wallet.PrivateKey == "" && c.Wallet.KeystorePath == "":
		errs = append(errs, errors.New("one of WALLET_PRIVATE_KEY or WALLET_KEYSTORE_PATH is required"))
	case c.Wallet.PrivateKey != "" && c.Wallet.KeystorePath != "":
		errs = append(errs, errors.New("WALLET_PRIVATE_KEY and WALLET_KEYSTORE_PATH are mutually exclusive"))
	}
	if c.Transfer.Entrypoint == "" {
		errs = append(errs, errors.New("TRANSFER_ENTRYPOINT must not be empty"))
	}
	if c.Transfer.Fees.Multiplier < 1 {
		errs = append(errs, errors.New("FEE_MULTIPLIER must be at least 1"))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func envOrUint(key string, fallback uint64) uint64 {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if parsed, err := strconv.ParseUint(val, 0, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envOrFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envOrBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
