package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/paycore/payroll-engine/internal/calculation"
)

// EnvPrefix is prepended to every settings variable, e.g. PAYROLL_LEDGER_DRIVER.
const EnvPrefix = "PAYROLL"

// Settings holds runtime configuration read from the environment.
type Settings struct {
	LedgerDriver string `envconfig:"LEDGER_DRIVER" default:"memory"`
	LedgerDSN    string `envconfig:"LEDGER_DSN"`

	RedisAddr    string        `envconfig:"REDIS_ADDR"`
	RuleCacheTTL time.Duration `envconfig:"RULE_CACHE_TTL" default:"15m"`
	CatalogFile  string        `envconfig:"CATALOG_FILE"`
	NRATableFile string        `envconfig:"NRA_TABLE_FILE"`

	WithholdingMethod string `envconfig:"WITHHOLDING_METHOD" default:"PERCENTAGE"`
	StrictYtdYear     bool   `envconfig:"STRICT_YTD_YEAR" default:"false"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPAddr          string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout   time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout  time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	JWTSecret         string        `envconfig:"JWT_SECRET"`
	RateLimitPerMin   int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	WorkerConcurrency int           `envconfig:"WORKER_CONCURRENCY" default:"10"`
	TaskMaxRetry      int           `envconfig:"TASK_MAX_RETRY" default:"5"`
	BatchWorkers      int           `envconfig:"BATCH_WORKERS" default:"4"`
}

// LoadSettings reads PAYROLL_* variables and checks the values that have a fixed set of
// choices.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) Validate() error {
	switch strings.ToLower(s.LedgerDriver) {
	case "memory", "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		return fmt.Errorf("unknown ledger driver %q", s.LedgerDriver)
	}
	if strings.ToLower(s.LedgerDriver) != "memory" && s.LedgerDSN == "" {
		return fmt.Errorf("ledger driver %s needs %s_LEDGER_DSN", s.LedgerDriver, EnvPrefix)
	}
	if _, err := calculation.ParseWithholdingMethod(s.WithholdingMethod); err != nil {
		return err
	}
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}
	if s.WorkerConcurrency < 1 {
		return fmt.Errorf("worker concurrency must be at least 1")
	}
	if s.TaskMaxRetry < 0 {
		return fmt.Errorf("task max retry cannot be negative")
	}
	return nil
}

// Method returns the parsed withholding method.
func (s *Settings) Method() calculation.WithholdingMethod {
	m, _ := calculation.ParseWithholdingMethod(s.WithholdingMethod)
	return m
}

// ParseLogLevel accepts debug, info, warn/warning and error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
