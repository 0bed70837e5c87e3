package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Relay modes. Hybrid bridges the conversational agent plus a separate TTS
// stream; agent mode relays the conversational agent alone and lets it speak
// with its own voice.
const (
	ModeHybrid = "hybrid"
	ModeAgent  = "agent"
)

// Config contains all runtime settings for the relay.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	RelayMode string

	ElevenLabsAPIKey    string
	ElevenLabsAgentID   string
	ElevenLabsVoiceID   string
	ElevenLabsTTSModel  string
	ElevenLabsWSBaseURL string

	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration

	DatabaseURL string
}

// Hybrid reports whether the relay bridges the separate TTS leg.
func (c Config) Hybrid() bool { return c.RelayMode == ModeHybrid }

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":3001"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "voxbridge"),
		AllowAnyOrigin:    false,
		RelayMode:         strings.ToLower(envOrDefault("RELAY_MODE", ModeHybrid)),
		ElevenLabsAPIKey:  envTrimmed("ELEVENLABS_API_KEY"),
		ElevenLabsAgentID: envTrimmed("ELEVENLABS_AGENT_ID"),
		ElevenLabsVoiceID:   envOrDefault("ELEVENLABS_VOICE_ID", "Xb7hH8MSUJpSbSDYk0k2"),
		ElevenLabsTTSModel:  envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_flash_v2_5"),
		ElevenLabsWSBaseURL: envOrDefault("ELEVENLABS_WS_BASE_URL", "wss://api.elevenlabs.io"),
		KeepaliveInterval:   20 * time.Second,
		KeepaliveTimeout:    20 * time.Second,
		ShutdownTimeout:     15 * time.Second,
		DatabaseURL:         envTrimmed("DATABASE_URL"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.KeepaliveInterval, err = durationFromEnv("APP_KEEPALIVE_INTERVAL", cfg.KeepaliveInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.KeepaliveTimeout, err = durationFromEnv("APP_KEEPALIVE_TIMEOUT", cfg.KeepaliveTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.ElevenLabsAPIKey == "" {
		return Config{}, fmt.Errorf("ELEVENLABS_API_KEY must be set")
	}
	if cfg.ElevenLabsAgentID == "" {
		return Config{}, fmt.Errorf("ELEVENLABS_AGENT_ID must be set")
	}
	switch cfg.RelayMode {
	case ModeHybrid:
		if strings.TrimSpace(cfg.ElevenLabsVoiceID) == "" {
			return Config{}, fmt.Errorf("ELEVENLABS_VOICE_ID must be set in hybrid mode")
		}
	case ModeAgent:
	default:
		return Config{}, fmt.Errorf("invalid RELAY_MODE: %q (expected hybrid|agent)", cfg.RelayMode)
	}
	if cfg.KeepaliveInterval < time.Second {
		return Config{}, fmt.Errorf("APP_KEEPALIVE_INTERVAL must be at least 1s")
	}
	if cfg.KeepaliveTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_KEEPALIVE_TIMEOUT must be at least 1s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
