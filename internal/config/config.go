package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Startup dataset resources.
	MonthsPath string
	PanelPath  string
	AreasPath  string

	// DefaultThreshold is the spike sensitivity used when a request does
	// not supply one. Normalized fraction; the UI exposes 0.10 to 1.00.
	DefaultThreshold float64

	// CacheSize bounds the enrichment memoization cache.
	CacheSize int

	// Kafka snapshot refresh configuration.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	KafkaGroupID       string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	threshold, err := parseThreshold()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MonthsPath: envOrDefault("MONTHS_PATH", "data/mock/months.json"),
		PanelPath:  envOrDefault("PANEL_PATH", "data/mock/theft_panel.json"),
		AreasPath:  os.Getenv("AREAS_PATH"),

		DefaultThreshold: threshold,
		CacheSize:        cacheSize,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: envOrDefault("KAFKA_SNAPSHOT_TOPIC", "theft-panel-snapshots"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "theft-panel-analytics"),
	}

	if cfg.MonthsPath == "" {
		return nil, errors.New("MONTHS_PATH is required")
	}
	if cfg.PanelPath == "" {
		return nil, errors.New("PANEL_PATH is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaSnapshotTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SNAPSHOT_TOPIC is empty")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseThreshold() (float64, error) {
	s := os.Getenv("ALERT_THRESHOLD")
	if s == "" {
		return 0.25, nil
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil || t <= 0 {
		return 0, errors.New("invalid ALERT_THRESHOLD")
	}
	return t, nil
}
