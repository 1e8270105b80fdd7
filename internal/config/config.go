package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const PROD_STRING = "prod"

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"

	MailTransportLog  = "log"
	MailTransportAMQP = "amqp"
)

// Config holds all application configuration loaded from environment.
type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	ProdOrigins string `envconfig:"PROD_ORIGINS"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"demo-booking-scheduler"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DBDSN       string `envconfig:"DB_DSN"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"demo-bookings.db"`

	StoreAttempts       int           `envconfig:"STORE_ATTEMPTS" default:"3"`
	StoreAttemptTimeout time.Duration `envconfig:"STORE_ATTEMPT_TIMEOUT" default:"20s"`
	StoreRetryDelay     time.Duration `envconfig:"STORE_RETRY_DELAY" default:"1s"`

	Timezone      string `envconfig:"TIMEZONE" default:"Local"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL"`
	FrontendURL   string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`

	ActionTokenSecret string `envconfig:"ACTION_TOKEN_SECRET"`

	MailTransport     string        `envconfig:"MAIL_TRANSPORT" default:"log"`
	MailRelayURL      string        `envconfig:"MAIL_RELAY_URL"`
	MailRelayExchange string        `envconfig:"MAIL_RELAY_EXCHANGE" default:"mail.relay"`
	MailFrom          string        `envconfig:"MAIL_FROM" default:"demo@example.com"`
	MailFromName      string        `envconfig:"MAIL_FROM_NAME" default:"Demo Team"`
	CompanyEmail      string        `envconfig:"COMPANY_EMAIL" default:"demo@example.com"`
	DispatchTimeout   time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"30s"`

	MeetingTitle    string `envconfig:"MEETING_TITLE" default:"Product Demo"`
	MeetingLocation string `envconfig:"MEETING_LOCATION" default:"Online"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Location is resolved from Timezone by Load.
	Location *time.Location `ignored:"true"`
}

// IsProduction reports whether APP_ENV selects the production profile.
func (c *Config) IsProduction() bool {
	return c.AppEnv == PROD_STRING
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreDriverPostgres:
		// Database DSN is required for the Postgres store
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required when STORE_DRIVER is %q", StoreDriverPostgres)
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is %q", StoreDriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	c.MailTransport = strings.ToLower(strings.TrimSpace(c.MailTransport))
	switch c.MailTransport {
	case MailTransportLog:
	case MailTransportAMQP:
		if c.MailRelayURL == "" {
			return fmt.Errorf("MAIL_RELAY_URL is required when MAIL_TRANSPORT is %q", MailTransportAMQP)
		}
	default:
		return fmt.Errorf("unsupported MAIL_TRANSPORT %q", c.MailTransport)
	}

	if c.StoreAttempts < 1 {
		return fmt.Errorf("STORE_ATTEMPTS must be at least 1, got %d", c.StoreAttempts)
	}
	if c.StoreAttemptTimeout <= 0 {
		return fmt.Errorf("STORE_ATTEMPT_TIMEOUT must be positive")
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("DISPATCH_TIMEOUT must be positive")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	c.Location = loc

	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	c.FrontendURL = strings.TrimRight(c.FrontendURL, "/")
	return nil
}

// AllowedOrigins returns the parsed PROD_ORIGINS list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.ProdOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
