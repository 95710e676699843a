// Package config loads settings for both the backend and the client from
// the environment and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "FREEDAY"

type Config struct {
	// Backend
	Port       string `validate:"required,numeric"`
	DBPath     string `validate:"required"`
	WriteLimit int    `validate:"gte=0"`

	// Client
	ClientDBPath string        `validate:"required"`
	ServerURL    string        `validate:"required,url"`
	PollInterval time.Duration `validate:"gt=0"`
	Password     string

	LogLevel string `validate:"omitempty,oneof=debug info warn warning error"`
}

// Load reads FREEDAY_* variables. Files in envFiles (default ".env") are
// loaded first; variables already set in the environment win. Missing files
// are ignored.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:         v.GetString("PORT"),
		DBPath:       v.GetString("DB_PATH"),
		WriteLimit:   v.GetInt("WRITE_LIMIT"),
		ClientDBPath: v.GetString("CLIENT_DB_PATH"),
		ServerURL:    strings.TrimRight(v.GetString("SERVER_URL"), "/"),
		Password:     v.GetString("PASSWORD"),
		LogLevel:     strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	interval, err := time.ParseDuration(v.GetString("POLL_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("parse %s_POLL_INTERVAL: %w", envPrefix, err)
	}
	cfg.PollInterval = interval

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "freeday.db")
	v.SetDefault("WRITE_LIMIT", 120)
	v.SetDefault("CLIENT_DB_PATH", "freeday-client.db")
	v.SetDefault("SERVER_URL", "http://localhost:8080")
	v.SetDefault("PASSWORD", "")
	v.SetDefault("POLL_INTERVAL", "10s")
	v.SetDefault("LOG_LEVEL", "info")
}
