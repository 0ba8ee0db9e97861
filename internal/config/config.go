package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

var knownNetworks = map[string]bool{
	"testnet":  true,
	"mainnet":  true,
	"devnet":   true,
	"localnet": true,
}

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	Store             string        `mapstructure:"STORE"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	SessionSigningKey string        `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	DemoPassword      string        `mapstructure:"DEMO_PASSWORD"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	SuiNetwork        string        `mapstructure:"SUI_NETWORK"`
	SuiRPCURL         string        `mapstructure:"SUI_RPC_URL"`
	SuiPackageID      string        `mapstructure:"SUI_PACKAGE_ID"`
	WalletTimeout     time.Duration `mapstructure:"WALLET_TIMEOUT"`
	LedgerPath        string        `mapstructure:"LEDGER_PATH"`
	SMTPHost          string        `mapstructure:"SMTP_HOST"`
	SMTPPort          int           `mapstructure:"SMTP_PORT"`
	SMTPUsername      string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword      string        `mapstructure:"SMTP_PASSWORD"`
	MailFrom          string        `mapstructure:"MAIL_FROM"`
}

var keys = []string{
	"PORT", "ENV", "STORE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "SESSION_SIGNING_KEY", "SESSION_TTL", "DEMO_PASSWORD",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"SUI_NETWORK", "SUI_RPC_URL", "SUI_PACKAGE_ID", "WALLET_TIMEOUT", "LEDGER_PATH",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "MAIL_FROM",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("DEMO_PASSWORD", "demo123")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SUI_NETWORK", "testnet")
	v.SetDefault("SUI_PACKAGE_ID", "0x0")
	v.SetDefault("WALLET_TIMEOUT", "60s")
	v.SetDefault("LEDGER_PATH", "data/ledger")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "no-reply@medipay.local")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// A comma-separated env value arrives as a single element.
	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsePostgres reports whether the billing, clinical and institution
// repositories should be backed by Postgres instead of the seeded memory store.
func (c *Config) UsePostgres() bool {
	return c.Store == StorePostgres
}

// SMTPEnabled reports whether outgoing mail goes to a real SMTP relay.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE is %q", StorePostgres)
		}
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}

	if c.IsProduction() && len(c.SessionSigningKey) < 32 {
		return fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 bytes in production, got %d", len(c.SessionSigningKey))
	}

	if !knownNetworks[c.SuiNetwork] {
		return fmt.Errorf("SUI_NETWORK must be one of testnet, mainnet, devnet, localnet, got %q", c.SuiNetwork)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.WalletTimeout <= 0 {
		return fmt.Errorf("WALLET_TIMEOUT must be positive")
	}

	return nil
}
