package config

import (
	"fmt"
	"time"
)

// This file defines the configuration structures; loading is handled by
// viper in viper_config.go.

// ServerConfig represents the full server configuration
type ServerConfig struct {
	Server ServerSettings `yaml:"server"`
	Store  StoreSettings  `yaml:"store"`
}

// ServerSettings contains server-wide settings
type ServerSettings struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	PublicURL       string        `yaml:"publicUrl"` // base URL baked into join QR codes
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"` // 0 for SSE support
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`

	// Rate limiting (golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`

	MaxRequestSize int64 `yaml:"maxRequestSize"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

// StoreSettings selects and configures the session store backend
type StoreSettings struct {
	// Driver is "memory" or "sqlite"
	Driver string `yaml:"driver"`
	// DSN is the sqlite database path; ignored by the memory driver
	DSN string `yaml:"dsn"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Port:            "",
			Host:            "",
			PublicURL:       "http://localhost:8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0, // 0 for SSE support
			IdleTimeout:     0,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
			RateLimit:       10,
			RateLimitBurst:  20,
			MaxRequestSize:  1048576, // 1MB
			LogLevel:        "info",
			LogFormat:       "text",
		},
		Store: StoreSettings{
			Driver: "sqlite",
			DSN:    "nightfall.db",
		},
	}
}

// Validate checks if the configuration is valid
func (c *ServerConfig) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT environment variable must be set")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HOST environment variable must be set")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("rateLimit must be positive")
	}
	if c.Server.MaxRequestSize < 1024 {
		return fmt.Errorf("maxRequestSize must be at least 1KB")
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Server.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("logFormat must be text or json")
	}

	return nil
}
