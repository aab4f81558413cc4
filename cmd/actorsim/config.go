package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// === Config ===

type Config struct {
	LogLevel string `yaml:"log_level"`

	// Executor is "pool" or "sharded".
	Executor      string `yaml:"executor"`
	Lanes         int    `yaml:"lanes"`
	MaxConcurrent int    `yaml:"max_concurrent"`

	Sources  int `yaml:"sources"`
	Callers  int `yaml:"callers"`
	Requests int `yaml:"requests"`

	HistoryLimit int           `yaml:"history_limit"`
	StallAfter   time.Duration `yaml:"stall_after"`

	// MetricsAddr enables the Prometheus endpoint when set.
	MetricsAddr string        `yaml:"metrics_addr"`
	Linger      time.Duration `yaml:"linger"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:      "info",
		Executor:      "pool",
		Lanes:         4,
		MaxConcurrent: 0,
		Sources:       8,
		Callers:       16,
		Requests:      1_000,
		HistoryLimit:  100,
		StallAfter:    5 * time.Second,
	}
}

// loadConfig layers defaults, the YAML file at path (if any) and environment
// overrides, in that order.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Executor = getEnv("EXECUTOR", cfg.Executor)
	cfg.Lanes = getEnvInt("LANES", cfg.Lanes)
	cfg.MaxConcurrent = getEnvInt("MAX_CONCURRENT", cfg.MaxConcurrent)
	cfg.Sources = getEnvInt("SOURCES", cfg.Sources)
	cfg.Callers = getEnvInt("CALLERS", cfg.Callers)
	cfg.Requests = getEnvInt("N", cfg.Requests)
	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", cfg.HistoryLimit)
	cfg.StallAfter = getEnvDuration("STALL_AFTER", cfg.StallAfter)
	cfg.Linger = getEnvDuration("LINGER", cfg.Linger)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	if getEnvBool("NO_METRICS", false) {
		cfg.MetricsAddr = ""
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Executor {
	case "pool", "sharded":
	default:
		return fmt.Errorf("unknown executor %q", c.Executor)
	}
	if c.Sources <= 0 || c.Callers <= 0 || c.Requests < 0 {
		return fmt.Errorf("sources and callers must be positive, requests non-negative")
	}
	return nil
}

func (c Config) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func getEnvBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	return v == "1" || strings.ToLower(v) == "true"
}

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv("ACTORSIM_" + key)
	if !ok {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
