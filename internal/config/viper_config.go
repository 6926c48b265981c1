package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using Viper.
// Priority order: Environment variables > Config file > Defaults
func LoadConfig(configPath string) (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("server")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/nightfall")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Allow both NIGHTFALL_SERVER_PORT style and the bare names
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("server.publicurl", "PUBLIC_URL")
	v.BindEnv("server.loglevel", "LOG_LEVEL")
	v.BindEnv("server.logformat", "LOG_FORMAT")
	v.BindEnv("server.ratelimit", "RATE_LIMIT")
	v.BindEnv("server.ratelimitburst", "RATE_LIMIT_BURST")
	v.BindEnv("server.maxrequestsize", "MAX_REQUEST_SIZE")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.dsn", "STORE_DSN")

	v.SetDefault("server.publicurl", "http://localhost:8080")
	v.SetDefault("server.readtimeout", "15s")
	v.SetDefault("server.writetimeout", "0s") // 0 for SSE support
	v.SetDefault("server.idletimeout", "0s")
	v.SetDefault("server.shutdowntimeout", "30s")
	v.SetDefault("server.requesttimeout", "60s")
	v.SetDefault("server.ratelimit", 10.0)
	v.SetDefault("server.ratelimitburst", 20)
	v.SetDefault("server.maxrequestsize", 1048576) // 1MB
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("server.logformat", "text")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "nightfall.db")

	// The config file is optional; env vars and defaults may be enough.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !strings.Contains(err.Error(), "no such file or directory") {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
