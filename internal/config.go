package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Balance       BalanceConfig       `mapstructure:"balance"`
	Batch         BatchConfig         `mapstructure:"batch"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Reconcile     ReconcileConfig     `mapstructure:"reconcile"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// GatewayConfig points at the mobile-money transfer provider.
type GatewayConfig struct {
	BaseURL        string            `mapstructure:"base_url"`
	SecretKey      string            `mapstructure:"secret_key"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	Currency       string            `mapstructure:"currency"`
	TransferReason string            `mapstructure:"transfer_reason"`
	BankCodes      map[string]string `mapstructure:"bank_codes"`
}

type BalanceConfig struct {
	Mode            string `mapstructure:"mode"`
	StartingBalance string `mapstructure:"starting_balance"`
	Currency        string `mapstructure:"currency"`
	PreflightCheck  bool   `mapstructure:"preflight_check"`
}

type BatchConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
	MaxItems   int `mapstructure:"max_items"`
}

type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type ReconcileConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Limit    int           `mapstructure:"limit"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	BalanceModeLive      = "live"
	BalanceModeSimulated = "simulated"
)

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Gateway.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("gateway config: %v", err))
	}

	if err := c.Balance.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("balance config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	return nil
}

func (c *GatewayConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if c.SecretKey == "" {
		return errors.New("secret_key is required")
	}
	if c.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

func (c *BalanceConfig) Validate() error {
	switch c.Mode {
	case BalanceModeLive:
		return nil
	case BalanceModeSimulated:
		if _, err := c.Starting(); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", BalanceModeLive, BalanceModeSimulated, c.Mode)
	}
}

// Starting parses the configured simulated starting balance.
func (c *BalanceConfig) Starting() (decimal.Decimal, error) {
	if c.StartingBalance == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(c.StartingBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid starting_balance: %w", err)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("starting_balance cannot be negative")
	}
	return d, nil
}

// GatewayTimeout returns the configured timeout, defaulting to 30 seconds.
func (c *GatewayConfig) GatewayTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}
