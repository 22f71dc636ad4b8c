package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
)

type GlobalFlags struct {
	ConfigPath  string
	JSON        bool
	Plain       bool
	Select      string
	ResultsOnly bool
	Timeout     string
	Retries     int
	RPCURL      string
	ChainID     int64
	LogLevel    string
	ReadOnly    bool
}

type Settings struct {
	OutputMode   string
	SelectFields []string
	ResultsOnly  bool
	ReadOnly     bool
	LogLevel     string

	Timeout        time.Duration
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Retries        int

	ChainID int64
	RPCURL  string

	TokenA  string
	TokenB  string
	Swap    string
	Variant string

	SwapSlippageBps      int64
	LiquiditySlippageBps int64
	DeadlineWindow       time.Duration
	FeeMode              string
	FeeNumerator         int64
	FeeDenominator       int64
	GasLimitMultiplier   float64

	ExplorerAPIURL   string
	ExplorerAPIKey   string
	ExplorerPageSize int

	TxStorePath string
	TxLockPath  string
}

const (
	VariantReserveBased = "reserve_based"
	VariantDirectional  = "directional"

	FeeModeContract    = "contract"
	FeeModeFeeAdjusted = "fee_adjusted"
	FeeModeLinear      = "linear"
)

type fileConfig struct {
	Output   string `yaml:"output"`
	LogLevel string `yaml:"log_level"`
	Timeout  string `yaml:"timeout"`
	Retries  *int   `yaml:"retries"`
	Network  struct {
		ChainID        *int64 `yaml:"chain_id"`
		RPCURL         string `yaml:"rpc_url"`
		ConfirmTimeout string `yaml:"confirm_timeout"`
		PollInterval   string `yaml:"poll_interval"`
	} `yaml:"network"`
	Contracts struct {
		TokenA  string `yaml:"token_a"`
		TokenB  string `yaml:"token_b"`
		Swap    string `yaml:"swap"`
		Variant string `yaml:"variant"`
	} `yaml:"contracts"`
	Trading struct {
		SwapSlippageBps      *int64  `yaml:"swap_slippage_bps"`
		LiquiditySlippageBps *int64  `yaml:"liquidity_slippage_bps"`
		DeadlineWindow       string  `yaml:"deadline_window"`
		FeeMode              string  `yaml:"fee_mode"`
		FeeNumerator         *int64  `yaml:"fee_numerator"`
		FeeDenominator       *int64  `yaml:"fee_denominator"`
		GasLimitMultiplier   *string `yaml:"gas_limit_multiplier"`
	} `yaml:"trading"`
	Explorer struct {
		APIURL    string `yaml:"api_url"`
		APIKey    string `yaml:"api_key"`
		APIKeyEnv string `yaml:"api_key_env"`
		PageSize  *int   `yaml:"page_size"`
	} `yaml:"explorer"`
	Store struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"store"`
}

func Load(flags GlobalFlags) (Settings, error) {
	// Local .env files are a development convenience; absence is not an error.
	_ = godotenv.Load()

	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if settings.ConfirmTimeout <= 0 {
		settings.ConfirmTimeout = 2 * time.Minute
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = 2 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.ExplorerPageSize <= 0 {
		settings.ExplorerPageSize = 10
	}

	if err := validate(settings); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	storePath, lockPath, err := defaultStorePaths()
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		OutputMode:           "json",
		LogLevel:             "info",
		Timeout:              10 * time.Second,
		ConfirmTimeout:       2 * time.Minute,
		PollInterval:         2 * time.Second,
		Retries:              2,
		ChainID:              registry.SepoliaChainID,
		Variant:              VariantReserveBased,
		SwapSlippageBps:      500,
		LiquiditySlippageBps: 1000,
		DeadlineWindow:       time.Hour,
		FeeMode:              FeeModeContract,
		FeeNumerator:         997,
		FeeDenominator:       1000,
		GasLimitMultiplier:   1.2,
		ExplorerPageSize:     10,
		TxStorePath:          storePath,
		TxLockPath:           lockPath,
	}

	if d, ok := registry.DeploymentByChainID(settings.ChainID); ok {
		settings.TokenA = d.TokenA
		settings.TokenB = d.TokenB
		settings.Swap = d.Swap
	}
	if u, ok := registry.ExplorerAPIURL(settings.ChainID); ok {
		settings.ExplorerAPIURL = u
	}

	return settings, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "simpleswap", "config.yaml"), nil
}

func defaultStorePaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "simpleswap")
	return filepath.Join(dir, "transactions.db"), filepath.Join(dir, "transactions.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.LogLevel != "" {
		settings.LogLevel = strings.ToLower(cfg.LogLevel)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Network.ChainID != nil {
		settings.ChainID = *cfg.Network.ChainID
	}
	if cfg.Network.RPCURL != "" {
		settings.RPCURL = cfg.Network.RPCURL
	}
	if cfg.Network.ConfirmTimeout != "" {
		d, err := time.ParseDuration(cfg.Network.ConfirmTimeout)
		if err != nil {
			return fmt.Errorf("config network.confirm_timeout: %w", err)
		}
		settings.ConfirmTimeout = d
	}
	if cfg.Network.PollInterval != "" {
		d, err := time.ParseDuration(cfg.Network.PollInterval)
		if err != nil {
			return fmt.Errorf("config network.poll_interval: %w", err)
		}
		settings.PollInterval = d
	}
	if cfg.Contracts.TokenA != "" {
		settings.TokenA = cfg.Contracts.TokenA
	}
	if cfg.Contracts.TokenB != "" {
		settings.TokenB = cfg.Contracts.TokenB
	}
	if cfg.Contracts.Swap != "" {
		settings.Swap = cfg.Contracts.Swap
	}
	if cfg.Contracts.Variant != "" {
		settings.Variant = strings.ToLower(cfg.Contracts.Variant)
	}
	if cfg.Trading.SwapSlippageBps != nil {
		settings.SwapSlippageBps = *cfg.Trading.SwapSlippageBps
	}
	if cfg.Trading.LiquiditySlippageBps != nil {
		settings.LiquiditySlippageBps = *cfg.Trading.LiquiditySlippageBps
	}
	if cfg.Trading.DeadlineWindow != "" {
		d, err := time.ParseDuration(cfg.Trading.DeadlineWindow)
		if err != nil {
			return fmt.Errorf("config trading.deadline_window: %w", err)
		}
		settings.DeadlineWindow = d
	}
	if cfg.Trading.FeeMode != "" {
		settings.FeeMode = strings.ToLower(cfg.Trading.FeeMode)
	}
	if cfg.Trading.FeeNumerator != nil {
		settings.FeeNumerator = *cfg.Trading.FeeNumerator
	}
	if cfg.Trading.FeeDenominator != nil {
		settings.FeeDenominator = *cfg.Trading.FeeDenominator
	}
	if cfg.Trading.GasLimitMultiplier != nil {
		m, err := strconv.ParseFloat(strings.TrimSpace(*cfg.Trading.GasLimitMultiplier), 64)
		if err != nil {
			return fmt.Errorf("config trading.gas_limit_multiplier: %w", err)
		}
		settings.GasLimitMultiplier = m
	}
	if cfg.Explorer.APIURL != "" {
		settings.ExplorerAPIURL = cfg.Explorer.APIURL
	}
	if cfg.Explorer.APIKey != "" {
		settings.ExplorerAPIKey = cfg.Explorer.APIKey
	}
	if cfg.Explorer.APIKeyEnv != "" {
		settings.ExplorerAPIKey = os.Getenv(cfg.Explorer.APIKeyEnv)
	}
	if cfg.Explorer.PageSize != nil {
		settings.ExplorerPageSize = *cfg.Explorer.PageSize
	}
	if cfg.Store.Path != "" {
		settings.TxStorePath = cfg.Store.Path
	}
	if cfg.Store.LockPath != "" {
		settings.TxLockPath = cfg.Store.LockPath
	}

	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("SIMPLESWAP_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("SIMPLESWAP_LOG_LEVEL"); v != "" {
		settings.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SIMPLESWAP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("SIMPLESWAP_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("SIMPLESWAP_CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			settings.ChainID = n
		}
	}
	if v := os.Getenv("SIMPLESWAP_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("SIMPLESWAP_TOKEN_A"); v != "" {
		settings.TokenA = v
	}
	if v := os.Getenv("SIMPLESWAP_TOKEN_B"); v != "" {
		settings.TokenB = v
	}
	if v := os.Getenv("SIMPLESWAP_SWAP"); v != "" {
		settings.Swap = v
	}
	if v := os.Getenv("SIMPLESWAP_VARIANT"); v != "" {
		settings.Variant = strings.ToLower(v)
	}
	if v := os.Getenv("SIMPLESWAP_EXPLORER_API_URL"); v != "" {
		settings.ExplorerAPIURL = v
	}
	if v := os.Getenv("SIMPLESWAP_EXPLORER_API_KEY"); v != "" {
		settings.ExplorerAPIKey = v
	}
	if v := os.Getenv("SIMPLESWAP_STORE_PATH"); v != "" {
		settings.TxStorePath = v
	}
	if v := os.Getenv("SIMPLESWAP_STORE_LOCK_PATH"); v != "" {
		settings.TxLockPath = v
	}
	if v := os.Getenv("SIMPLESWAP_READ_ONLY"); v != "" {
		settings.ReadOnly = v == "1" || strings.EqualFold(v, "true")
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.Select) != "" {
		parts := strings.Split(flags.Select, ",")
		fields := make([]string, 0, len(parts))
		for _, part := range parts {
			f := strings.TrimSpace(part)
			if f != "" {
				fields = append(fields, f)
			}
		}
		settings.SelectFields = fields
	}
	settings.ResultsOnly = flags.ResultsOnly

	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if strings.TrimSpace(flags.RPCURL) != "" {
		settings.RPCURL = strings.TrimSpace(flags.RPCURL)
	}
	if flags.ChainID > 0 {
		settings.ChainID = flags.ChainID
	}
	if flags.LogLevel != "" {
		settings.LogLevel = strings.ToLower(flags.LogLevel)
	}
	if flags.ReadOnly {
		settings.ReadOnly = true
	}

	return nil
}

func validate(settings Settings) error {
	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	switch settings.Variant {
	case VariantReserveBased, VariantDirectional:
	default:
		return fmt.Errorf("contracts.variant must be %s or %s", VariantReserveBased, VariantDirectional)
	}
	switch settings.FeeMode {
	case FeeModeContract, FeeModeFeeAdjusted, FeeModeLinear:
	default:
		return fmt.Errorf("trading.fee_mode must be %s, %s or %s", FeeModeContract, FeeModeFeeAdjusted, FeeModeLinear)
	}
	if settings.SwapSlippageBps < 0 || settings.SwapSlippageBps > 10000 {
		return fmt.Errorf("trading.swap_slippage_bps must be between 0 and 10000")
	}
	if settings.LiquiditySlippageBps < 0 || settings.LiquiditySlippageBps > 10000 {
		return fmt.Errorf("trading.liquidity_slippage_bps must be between 0 and 10000")
	}
	if settings.FeeDenominator <= 0 || settings.FeeNumerator <= 0 || settings.FeeNumerator > settings.FeeDenominator {
		return fmt.Errorf("trading fee fraction must satisfy 0 < numerator <= denominator")
	}
	if settings.GasLimitMultiplier < 1 {
		return fmt.Errorf("trading.gas_limit_multiplier must be >= 1")
	}
	return nil
}
