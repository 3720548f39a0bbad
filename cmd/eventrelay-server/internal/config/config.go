// Package config provides configuration management for the event relay
// standalone server. It loads settings from environment variables with
// sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the relay server.
type Config struct {
	Server   ServerConfig
	Bus      BusConfig
	Delivery DeliveryConfig
	Receiver ReceiverConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// BusConfig holds publish/subscribe channel configuration.
type BusConfig struct {
	Driver    string // memory, redis
	RedisAddr string // Redis address (required for redis driver)
	Channel   string // Channel drained by the listener
}

// DeliveryConfig holds webhook sender configuration.
type DeliveryConfig struct {
	WebhookURL  string // Destination for outbound webhook deliveries
	MaxAttempts int    // Delivery attempt budget
}

// ReceiverConfig holds webhook receiver configuration.
type ReceiverConfig struct {
	FailureRate   float64 // Simulated transient failure probability [0,1]
	DedupDriver   string  // memory, redis, mysql, postgres, sqlite3
	DedupDSN      string  // Database DSN (required for SQL drivers)
	DedupCapacity int     // Key capacity for the memory driver (0 = unbounded)
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Bus: BusConfig{
			Driver:    strings.ToLower(getEnv("BUS_DRIVER", "memory")),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
			Channel:   getEnv("EVENT_CHANNEL", "library_events"),
		},
		Delivery: DeliveryConfig{
			WebhookURL:  getEnv("WEBHOOK_URL", ""),
			MaxAttempts: getEnvInt("MAX_ATTEMPTS", 5),
		},
		Receiver: ReceiverConfig{
			FailureRate:   getEnvFloat("FAILURE_RATE", 0.3),
			DedupDriver:   strings.ToLower(getEnv("DEDUP_DRIVER", "memory")),
			DedupDSN:      getEnv("DEDUP_DSN", ""),
			DedupCapacity: getEnvInt("DEDUP_CAPACITY", 10000),
		},
	}

	// Validate driver combinations
	switch cfg.Bus.Driver {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unsupported BUS_DRIVER %q (want memory or redis)", cfg.Bus.Driver)
	}

	switch cfg.Receiver.DedupDriver {
	case "memory", "redis":
	case "mysql", "postgres", "sqlite3":
		if cfg.Receiver.DedupDSN == "" {
			return nil, fmt.Errorf("DEDUP_DSN environment variable is required for driver %q", cfg.Receiver.DedupDriver)
		}
	default:
		return nil, fmt.Errorf("unsupported DEDUP_DRIVER %q", cfg.Receiver.DedupDriver)
	}

	if cfg.Delivery.MaxAttempts <= 0 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be > 0, got %d", cfg.Delivery.MaxAttempts)
	}
	if cfg.Receiver.FailureRate < 0 || cfg.Receiver.FailureRate > 1 {
		return nil, fmt.Errorf("FAILURE_RATE must be in [0, 1], got %v", cfg.Receiver.FailureRate)
	}

	return cfg, nil
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves environment variable as float or returns default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
