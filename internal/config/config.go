// Package config loads dealroom settings from DEALROOM_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alexanderramin/dealroom/internal/escrow"
	"github.com/alexanderramin/dealroom/internal/fee"
	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const envPrefix = "DEALROOM_"

// Config holds every runtime setting. Sandbox is a plain value handed to the
// components that care about it.
type Config struct {
	DBPath  string `env:"DB"`
	Sandbox bool   `env:"SANDBOX" envDefault:"false"`

	NegotiationWindowDays  int             `env:"NEGOTIATION_WINDOW_DAYS" envDefault:"14"`
	NegotiationBaseFee     int64           `env:"NEGOTIATION_BASE_FEE" envDefault:"2000"`
	NegotiationRate        decimal.Decimal `env:"NEGOTIATION_RATE" envDefault:"0.02"`
	NegotiationMin         int64           `env:"NEGOTIATION_MIN" envDefault:"1000"`
	NegotiationMax         int64           `env:"NEGOTIATION_MAX" envDefault:"20000"`
	LeakDetectionThreshold int             `env:"LEAK_DETECTION_THRESHOLD" envDefault:"3"`

	SweepInterval            time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	BotInterval              time.Duration `env:"BOT_INTERVAL" envDefault:"30s"`
	SettlementMaxAttempts    uint          `env:"SETTLEMENT_MAX_ATTEMPTS" envDefault:"5"`
	SettlementInitialBackoff time.Duration `env:"SETTLEMENT_INITIAL_BACKOFF" envDefault:"200ms"`
	SettlementMaxBackoff     time.Duration `env:"SETTLEMENT_MAX_BACKOFF" envDefault:"5s"`
	PlatformAccount          string        `env:"PLATFORM_ACCOUNT" envDefault:"platform"`

	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret     string `env:"JWT_SECRET"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	LogLevel     slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string     `env:"LOG_FORMAT" envDefault:"auto"`
	OTelEndpoint string     `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool       `env:"OTEL_ENABLED" envDefault:"true"`
}

// DefaultConfig returns the built-in defaults, ignoring the environment.
func DefaultConfig() Config {
	var cfg Config
	if err := parse(&cfg, map[string]string{}); err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfig reads configuration from the environment, falling back to
// defaults for unset values. The database defaults to ~/.dealroom/dealroom.db.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := parse(&cfg, nil); err != nil {
		return Config{}, err
	}
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".dealroom", "dealroom.db")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parse(cfg *Config, environment map[string]string) error {
	opts := env.Options{Prefix: envPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	switch {
	case c.NegotiationWindowDays < 1:
		return fmt.Errorf("negotiation window must be at least 1 day, got %d", c.NegotiationWindowDays)
	case c.LeakDetectionThreshold < 1:
		return fmt.Errorf("leak detection threshold must be at least 1, got %d", c.LeakDetectionThreshold)
	case c.SweepInterval <= 0:
		return fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval)
	case c.PlatformAccount == "":
		return fmt.Errorf("platform account must not be empty")
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if _, err := fee.New(c.FeeParams()); err != nil {
		return fmt.Errorf("fee settings: %w", err)
	}
	return nil
}

// Window is the negotiation window length.
func (c Config) Window() time.Duration {
	return time.Duration(c.NegotiationWindowDays) * 24 * time.Hour
}

func (c Config) FeeParams() fee.Params {
	return fee.Params{
		BaseFee: c.NegotiationBaseFee,
		Rate:    c.NegotiationRate,
		MinFee:  c.NegotiationMin,
		MaxFee:  c.NegotiationMax,
	}
}

func (c Config) EscrowConfig() escrow.Config {
	return escrow.Config{
		PlatformAccount: c.PlatformAccount,
		MaxAttempts:     c.SettlementMaxAttempts,
		InitialBackoff:  c.SettlementInitialBackoff,
		MaxBackoff:      c.SettlementMaxBackoff,
	}
}
