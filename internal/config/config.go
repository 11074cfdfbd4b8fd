// Package config loads process configuration from the environment, with an
// optional .env file and an optional YAML overlay for local development.
// Environment variables always win over the YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every external dependency and policy knob the execution
// core needs at startup.
type Config struct {
	// Store
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	RedisAddr     string `yaml:"redis_addr"`

	// LLM vendor
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	DefaultModel    string `yaml:"default_model"`
	HighModel       string `yaml:"high_model"`
	SmallModel      string `yaml:"small_model"`

	// Cost Governor
	CostGovernorEnabled bool    `yaml:"cost_governor_enabled"`
	DailyTokenBudget    int64   `yaml:"daily_token_budget"`
	SoftLimitRatio      float64 `yaml:"soft_limit_ratio"`
	DefaultRetryBudget  int     `yaml:"default_retry_budget"`

	// Agent Orchestrator
	MaxConcurrentAgents int `yaml:"max_concurrent_agents"`

	// Background Job Runner
	SignalScanInterval  time.Duration `yaml:"signal_scan_interval"`
	DebriefScanInterval time.Duration `yaml:"debrief_scan_interval"`
	BusinessHoursStart  int           `yaml:"business_hours_start"`
	BusinessHoursEnd    int           `yaml:"business_hours_end"`

	// Proactive Router
	DedupWindow time.Duration `yaml:"dedup_window"`

	// Process
	HTTPAddr string `yaml:"http_addr"`
}

// Default returns the baseline configuration, matching the values spec.md
// §6 lists as defaults.
func Default() Config {
	return Config{
		MongoDatabase:       "aria",
		DefaultModel:        "claude-sonnet-4-5",
		HighModel:           "claude-opus-4-1",
		SmallModel:          "claude-haiku-4-5",
		CostGovernorEnabled: true,
		DailyTokenBudget:    1_000_000,
		SoftLimitRatio:      0.8,
		DefaultRetryBudget:  3,
		MaxConcurrentAgents: 8,
		SignalScanInterval:  15 * time.Minute,
		DebriefScanInterval: 15 * time.Minute,
		BusinessHoursStart:  8,
		BusinessHoursEnd:    18,
		DedupWindow:         time.Hour,
		HTTPAddr:            ":8080",
	}
}

// Load builds a Config by layering, in increasing precedence: built-in
// defaults, an optional YAML file at yamlPath (skipped if absent), a .env
// file in the working directory (best effort, missing file is not an
// error), and finally process environment variables.
func Load(yamlPath string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if data, err := os.ReadFile(yamlPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", yamlPath, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: reading %s: %w", yamlPath, err)
		}
	}

	_ = godotenv.Load()

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str(&cfg.MongoURI, "ARIA_MONGO_URI")
	str(&cfg.MongoDatabase, "ARIA_MONGO_DATABASE")
	str(&cfg.RedisAddr, "ARIA_REDIS_ADDR")
	str(&cfg.AnthropicAPIKey, "ARIA_ANTHROPIC_API_KEY")
	str(&cfg.DefaultModel, "ARIA_DEFAULT_MODEL")
	str(&cfg.HighModel, "ARIA_HIGH_MODEL")
	str(&cfg.SmallModel, "ARIA_SMALL_MODEL")
	boolean(&cfg.CostGovernorEnabled, "COST_GOVERNOR_ENABLED")
	int64v(&cfg.DailyTokenBudget, "COST_GOVERNOR_DAILY_TOKEN_BUDGET")
	float(&cfg.SoftLimitRatio, "COST_GOVERNOR_SOFT_LIMIT_RATIO")
	intv(&cfg.DefaultRetryBudget, "COST_GOVERNOR_DEFAULT_RETRY_BUDGET")
	intv(&cfg.MaxConcurrentAgents, "ORCHESTRATOR_MAX_CONCURRENT_AGENTS")
	intv(&cfg.BusinessHoursStart, "JOB_RUNNER_BUSINESS_HOURS_START")
	intv(&cfg.BusinessHoursEnd, "JOB_RUNNER_BUSINESS_HOURS_END")
	str(&cfg.HTTPAddr, "ARIA_HTTP_ADDR")
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func boolean(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func intv(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func int64v(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func float(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
