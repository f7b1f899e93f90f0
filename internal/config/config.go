package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every tunable of the calling service. Defaults are the
// values documented next to each reader below.
type Config struct {
	Port        string
	DatabaseURL string

	PollInterval     time.Duration
	StoreRetryDelay  time.Duration
	AnnounceCooldown time.Duration
	AnnounceLanguage string
	SpeechEndpoint   string

	RateLimitPerMinute int
	RateLimitBurst     int
}

func Load() (Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	cfg := Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DB_DSN"),
		PollInterval:       readDurationSeconds("POLL_INTERVAL_SECONDS", 5),
		StoreRetryDelay:    readDurationSeconds("STORE_RETRY_SECONDS", 30),
		AnnounceCooldown:   readDurationSeconds("ANNOUNCE_COOLDOWN_SECONDS", 2),
		AnnounceLanguage:   readString("ANNOUNCE_LANGUAGE", "th"),
		SpeechEndpoint:     os.Getenv("SPEECH_URL"),
		RateLimitPerMinute: readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("RATE_LIMIT_BURST", 30),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if c.StoreRetryDelay < 0 {
		return fmt.Errorf("STORE_RETRY_SECONDS must not be negative")
	}
	if c.AnnounceCooldown < 0 {
		return fmt.Errorf("ANNOUNCE_COOLDOWN_SECONDS must not be negative")
	}
	return nil
}

func readString(key, fallback string) string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return raw
}

func readDurationSeconds(key string, fallback int) time.Duration {
	return time.Duration(readInt(key, fallback)) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
