package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "LICENSEDESK"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	License   LicenseConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.DB.Driver != DriverPostgres && c.DB.Driver != DriverSQLite {
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("jwt ttl must be positive")
	}
	if c.License.ListBatchSize <= 0 {
		return fmt.Errorf("license list batch size must be positive")
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}
	return nil
}

type AppConfig struct {
	Port     string `envconfig:"LICENSEDESK_HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LICENSEDESK_LOG_LEVEL" default:"info"`
	Timezone string `envconfig:"LICENSEDESK_TIMEZONE" default:"UTC"`
}

// Location resolves the zone whose calendar date counts as "today" for
// license windows.
func (a AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

type DBConfig struct {
	Driver           string        `envconfig:"LICENSEDESK_DB_DRIVER" default:"postgres"`
	DSN              string        `envconfig:"LICENSEDESK_DB_DSN" required:"true"`
	MaxOpenConns     int           `envconfig:"LICENSEDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns     int           `envconfig:"LICENSEDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime  time.Duration `envconfig:"LICENSEDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	StatementTimeout time.Duration `envconfig:"LICENSEDESK_DB_STATEMENT_TIMEOUT" default:"5s"`
	AutoMigrate      bool          `envconfig:"LICENSEDESK_DB_AUTO_MIGRATE" default:"true"`
}

type JWTConfig struct {
	Secret string        `envconfig:"LICENSEDESK_JWT_SECRET" required:"true"`
	Issuer string        `envconfig:"LICENSEDESK_JWT_ISSUER" default:"licensedesk"`
	TTL    time.Duration `envconfig:"LICENSEDESK_JWT_TTL" default:"168h"`
}

type RateLimitConfig struct {
	AuthRPS    float64       `envconfig:"LICENSEDESK_RATE_LIMIT_AUTH_RPS" default:"5"`
	AuthBurst  int           `envconfig:"LICENSEDESK_RATE_LIMIT_AUTH_BURST" default:"10"`
	CheckRPS   float64       `envconfig:"LICENSEDESK_RATE_LIMIT_CHECK_RPS" default:"20"`
	CheckBurst int           `envconfig:"LICENSEDESK_RATE_LIMIT_CHECK_BURST" default:"40"`
	IdleTTL    time.Duration `envconfig:"LICENSEDESK_RATE_LIMIT_IDLE_TTL" default:"10m"`
}

type LicenseConfig struct {
	ListBatchSize int `envconfig:"LICENSEDESK_LICENSE_LIST_BATCH_SIZE" default:"200"`
}
