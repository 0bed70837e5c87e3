package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ELEVENLABS_API_KEY", "key-1")
	t.Setenv("ELEVENLABS_AGENT_ID", "agent-1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":3001" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":3001")
	}
	if !cfg.Hybrid() {
		t.Fatalf("default mode should be hybrid, got %q", cfg.RelayMode)
	}
	if cfg.ElevenLabsVoiceID != "Xb7hH8MSUJpSbSDYk0k2" {
		t.Fatalf("VoiceID = %q, want default Xb7hH8MSUJpSbSDYk0k2", cfg.ElevenLabsVoiceID)
	}
	if cfg.ElevenLabsTTSModel != "eleven_flash_v2_5" {
		t.Fatalf("TTSModel = %q, want eleven_flash_v2_5", cfg.ElevenLabsTTSModel)
	}
	if cfg.KeepaliveInterval != 20*time.Second || cfg.KeepaliveTimeout != 20*time.Second {
		t.Fatalf("keepalive = %v/%v, want 20s/20s", cfg.KeepaliveInterval, cfg.KeepaliveTimeout)
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("ELEVENLABS_AGENT_ID", "agent-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing API key")
	}

	t.Setenv("ELEVENLABS_API_KEY", "key-1")
	t.Setenv("ELEVENLABS_AGENT_ID", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing agent id")
	}
}

func TestLoadAgentMode(t *testing.T) {
	setRequired(t)
	t.Setenv("RELAY_MODE", "agent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Hybrid() {
		t.Fatalf("agent mode should not be hybrid")
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	setRequired(t)
	t.Setenv("RELAY_MODE", "duplex")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_KEEPALIVE_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error for bad duration")
	}
}

func TestLoadRejectsTinyKeepalive(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_KEEPALIVE_TIMEOUT", "100ms")
	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for sub-second keepalive")
	}
}
