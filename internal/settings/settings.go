// Package settings loads process-level configuration: database DSN,
// pacing, ingestion window parameters, and HTTP client tuning. This is
// the ambient "how the process is wired" layer, distinct from the
// business-level indicator/scoring configs the Config Store holds
// (internal/domain.ConfigRecord).
package settings

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings is the full process configuration (spec §5 "Shared resources",
// §4.3 "Ingestion Engine", §4.7 "Orchestrator").
type Settings struct {
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Ingest   Ingest   `yaml:"ingest"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
}

type Database struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Ingest configures the per-symbol ingestion algorithm (spec §4.3).
type Ingest struct {
	GenesisDate            string        `yaml:"genesis_date"` // YYYY-MM-DD
	MarketTimezone         string        `yaml:"market_timezone"`
	MarketCloseHour        int           `yaml:"market_close_hour"`
	MovingWindowStrideDays int           `yaml:"moving_window_stride_days"`
	MaxEmptyWindows        int           `yaml:"max_empty_windows"`
	RecentOverwriteWindow  int           `yaml:"recent_overwrite_window_days"`
	RetryAttempts          int           `yaml:"retry_attempts"`
	RetryBaseDelay         time.Duration `yaml:"retry_base_delay"`
	AnalysisWindowDays     int           `yaml:"analysis_window_days"`
	DailyRequestBudget     int64         `yaml:"daily_request_budget"`
	BudgetResetHourUTC     int           `yaml:"budget_reset_hour_utc"`
	BudgetWarnThreshold    float64       `yaml:"budget_warn_threshold"`
}

// Orchestrator configures batching and pacing (spec §4.7).
type Orchestrator struct {
	BatchSize        int           `yaml:"batch_size"`
	InterSymbolDelay time.Duration `yaml:"inter_symbol_delay"`
	InterBatchDelay  time.Duration `yaml:"inter_batch_delay"`
	MinScoreThreshold float64      `yaml:"min_score_threshold"`
}

type HTTP struct {
	Timeout       time.Duration `yaml:"timeout"`
	ListenAddr    string        `yaml:"listen_addr"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Default returns the baked-in defaults, matching spec §4.3/§4.7's
// defaults (365-day stride, K=3, B=3-5, 2s/5s delays).
func Default() Settings {
	return Settings{
		Database: Database{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute},
		Redis:    Redis{Addr: "localhost:6379"},
		Ingest: Ingest{
			GenesisDate: "2010-01-01", MarketTimezone: "Asia/Ho_Chi_Minh", MarketCloseHour: 16,
			MovingWindowStrideDays: 365, MaxEmptyWindows: 3, RecentOverwriteWindow: 5,
			RetryAttempts: 3, RetryBaseDelay: 500 * time.Millisecond, AnalysisWindowDays: 180,
			DailyRequestBudget: 5000, BudgetResetHourUTC: 17, BudgetWarnThreshold: 0.8,
		},
		Orchestrator: Orchestrator{
			BatchSize: 4, InterSymbolDelay: 2 * time.Second, InterBatchDelay: 5 * time.Second,
			MinScoreThreshold: 10,
		},
		HTTP: HTTP{Timeout: 15 * time.Second, ListenAddr: ":8090"},
		Log:  Log{Level: "info"},
	}
}

// Load reads .env (if present) then a YAML file at path, overlaying onto
// Default(). Missing path yields defaults alone.
func Load(path string) (Settings, error) {
	_ = godotenv.Load()
	s := Default()
	if path == "" {
		return overlayEnv(s), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return overlayEnv(s), nil
}

// overlayEnv lets a small set of secrets/env-specific values override the
// YAML-loaded settings, the pattern the teacher's env-driven config
// follows for anything that must not live in a checked-in file.
func overlayEnv(s Settings) Settings {
	if dsn := os.Getenv("VNQUANT_DB_DSN"); dsn != "" {
		s.Database.DSN = dsn
	}
	if addr := os.Getenv("VNQUANT_REDIS_ADDR"); addr != "" {
		s.Redis.Addr = addr
	}
	return s
}
