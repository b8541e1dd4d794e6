package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Tanks     TanksConfig
	Throttle  ThrottleConfig
	Notifier  NotifierConfig
	Reconcile ReconcileConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds settings for MongoDB. Transactions can be disabled for
// standalone servers that have no replica set; the commit path then falls
// back to two sequential inserts.
type MongoDBConfig struct {
	URI             string
	DBName          string
	UseTransactions bool
}

// TanksConfig enumerates the fixed set of valid storage locations. Every
// component receives this set; tank names never appear as literals in logic.
type TanksConfig struct {
	Names []string
}

// ThrottleConfig holds the post-commit cooldown windows.
type ThrottleConfig struct {
	WithdrawalWindow time.Duration
	DepositWindow    time.Duration
}

// NotifierConfig holds the optional outbound webhook target.
type NotifierConfig struct {
	WebhookURL string
}

// ReconcileConfig holds the nightly reconciliation schedule.
type ReconcileConfig struct {
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	withdrawalWindow, err := getenvSeconds("WITHDRAWAL_COOLDOWN_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	depositWindow, err := getenvSeconds("DEPOSIT_COOLDOWN_SECONDS", 20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:             getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName:          getenvWithDefault("MONGODB_DB_NAME", "dairyledger"),
			UseTransactions: getenvWithDefault("MONGODB_USE_TRANSACTIONS", "true") == "true",
		},
		Tanks: TanksConfig{
			Names: splitList(getenvWithDefault("TANK_NAMES", "Tank A,Tank B,Direct-Processing")),
		},
		Throttle: ThrottleConfig{
			WithdrawalWindow: withdrawalWindow,
			DepositWindow:    depositWindow,
		},
		Notifier: NotifierConfig{
			WebhookURL: os.Getenv("EVENT_WEBHOOK_URL"),
		},
		Reconcile: ReconcileConfig{
			CronSchedule: getenvWithDefault("RECONCILE_CRON_SCHEDULE", "0 0 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if len(c.Tanks.Names) == 0 {
		return errors.New("TANK_NAMES must list at least one tank")
	}

	seen := make(map[string]struct{}, len(c.Tanks.Names))
	for _, name := range c.Tanks.Names {
		if name == "" {
			return errors.New("TANK_NAMES must not contain empty names")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("TANK_NAMES contains duplicate tank %q", name)
		}
		seen[name] = struct{}{}
	}

	if c.Throttle.WithdrawalWindow <= 0 {
		return errors.New("WITHDRAWAL_COOLDOWN_SECONDS must be positive")
	}

	if c.Throttle.DepositWindow <= 0 {
		return errors.New("DEPOSIT_COOLDOWN_SECONDS must be positive")
	}

	if c.Reconcile.CronSchedule == "" {
		return errors.New("RECONCILE_CRON_SCHEDULE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvSeconds(key string, fallback int) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback) * time.Second, nil
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer number of seconds: %w", key, err)
	}

	return time.Duration(seconds) * time.Second, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
