package infra

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SeedInstrument is one instrument the simulated market opens with.
type SeedInstrument struct {
	Symbol string          `yaml:"symbol"`
	Name   string          `yaml:"name"`
	Price  decimal.Decimal `yaml:"price"`
}

// Config holds the full application configuration. Secrets are never
// read from the yaml file; they come from the environment after load.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Engine struct {
		TickIntervalSec int `yaml:"tick_interval_sec"`
		PassTimeoutSec  int `yaml:"pass_timeout_sec"`
		Workers         int `yaml:"workers"`
	} `yaml:"engine"`

	Feed struct {
		UpdateIntervalSec int              `yaml:"update_interval_sec"`
		MinMoves          int              `yaml:"min_moves"`
		MaxMoves          int              `yaml:"max_moves"`
		MaxDriftPct       decimal.Decimal  `yaml:"max_drift_pct"`
		Instruments       []SeedInstrument `yaml:"instruments"`
	} `yaml:"feed"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Auth struct {
		TokenTTLMin int `yaml:"token_ttl_min"`
	} `yaml:"auth"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Secrets Secrets `yaml:"-"`
}

// Secrets holds environment-only configuration.
type Secrets struct {
	TokenKey string `envconfig:"TOKEN_KEY" default:"dev-only-signing-key"`
}

// LoadConfig reads and parses the configuration file, then overlays
// secrets from the environment (a .env file is honored when present).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// .env may be absent in production; that is not an error.
	_ = godotenv.Load()
	if err := envconfig.Process("STOCKGO", &cfg.Secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Engine.TickIntervalSec == 0 {
		c.Engine.TickIntervalSec = 5
	}
	if c.Engine.PassTimeoutSec == 0 {
		c.Engine.PassTimeoutSec = 10
	}
	if c.Engine.Workers == 0 {
		c.Engine.Workers = 4
	}
	if c.Feed.UpdateIntervalSec == 0 {
		c.Feed.UpdateIntervalSec = 60
	}
	if c.Feed.MinMoves == 0 {
		c.Feed.MinMoves = 5
	}
	if c.Feed.MaxMoves == 0 {
		c.Feed.MaxMoves = 15
	}
	if c.Feed.MaxDriftPct.IsZero() {
		c.Feed.MaxDriftPct = decimal.RequireFromString("1.5")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/stockgo.db"
	}
	if c.Auth.TokenTTLMin == 0 {
		c.Auth.TokenTTLMin = 60
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Engine.TickIntervalSec <= 0 {
		return fmt.Errorf("engine tick interval must be positive")
	}
	if c.Engine.PassTimeoutSec <= 0 {
		return fmt.Errorf("engine pass timeout must be positive")
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine workers must be positive")
	}
	if c.Feed.MinMoves > c.Feed.MaxMoves {
		return fmt.Errorf("feed min_moves must not exceed max_moves")
	}
	if c.Feed.MaxDriftPct.IsNegative() {
		return fmt.Errorf("feed max_drift_pct must not be negative")
	}
	if len(c.Feed.Instruments) == 0 {
		return fmt.Errorf("at least one feed instrument is required")
	}
	for _, ins := range c.Feed.Instruments {
		if ins.Symbol == "" {
			return fmt.Errorf("feed instrument without symbol")
		}
		if !ins.Price.IsPositive() {
			return fmt.Errorf("feed instrument %s needs a positive seed price", ins.Symbol)
		}
	}
	return nil
}
