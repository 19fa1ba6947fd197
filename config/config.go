package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type DiscordConfig struct {
	BotToken string
}

// IsConfigured returns true if all required Discord configuration is present
func (c DiscordConfig) IsConfigured() bool {
	return c.BotToken != ""
}

type AppConfig struct {
	// Core configuration (always required)
	SnapshotPath string
	Port         string // Optional with default "8080"

	// Tracker tuning (optional, sensible defaults)
	DefaultTTL    time.Duration
	SweepInterval time.Duration

	DiscordConfig DiscordConfig
}

func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	botToken, err := getEnvRequired("DISCORD_BOT_TOKEN")
	if err != nil {
		return nil, err
	}

	defaultTTL, err := getEnvDuration("DEFAULT_TTL_HOURS", 36, time.Hour)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("SWEEP_INTERVAL_SECONDS", 120, time.Second)
	if err != nil {
		return nil, err
	}

	config := &AppConfig{
		SnapshotPath:  getEnvWithDefault("SNAPSHOT_PATH", "reactTracker.json"),
		Port:          getEnvWithDefault("PORT", "8080"),
		DefaultTTL:    defaultTTL,
		SweepInterval: sweepInterval,

		DiscordConfig: DiscordConfig{
			BotToken: botToken,
		},
	}

	return config, nil
}

func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set", key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue int, unit time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(defaultValue) * unit, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return time.Duration(value) * unit, nil
}
