package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"WAVE_SESSION_URL", "WAVE_API_KEY", "WAVE_MODEL",
		"WAVE_PORT", "WAVE_PREROLL", "WAVE_CONNECT_TIMEOUT",
		"WAVE_NO_MOCK_FALLBACK", "WAVE_DB_PATH", "WAVE_MEDIA_DIR",
		"WAVE_STEMS_API_URL", "WAVE_OLLAMA_URL", "WAVE_OLLAMA_MODEL",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.SessionURL != "wss://generativelanguage.googleapis.com/ws/music" {
		t.Errorf("SessionURL = %q, want default", cfg.SessionURL)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty default", cfg.APIKey)
	}
	if cfg.Model != "models/lyria-realtime-exp" {
		t.Errorf("Model = %q, want default", cfg.Model)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Preroll != 2.0 {
		t.Errorf("Preroll = %f, want 2.0", cfg.Preroll)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", cfg.ConnectTimeout)
	}
	if cfg.NoMockFallback {
		t.Error("NoMockFallback = true, want false default")
	}
	if cfg.DBPath != "data/promptwave.db" {
		t.Errorf("DBPath = %q, want default", cfg.DBPath)
	}
	if cfg.MediaDir != "data/media" {
		t.Errorf("MediaDir = %q, want default", cfg.MediaDir)
	}
	if cfg.StemsAPIURL != "http://localhost:9090" {
		t.Errorf("StemsAPIURL = %q, want default", cfg.StemsAPIURL)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("OllamaURL = %q, want default", cfg.OllamaURL)
	}
	if cfg.OllamaModel != "qwen3:8b" {
		t.Errorf("OllamaModel = %q, want default", cfg.OllamaModel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WAVE_SESSION_URL", "wss://localhost:9000/ws")
	t.Setenv("WAVE_API_KEY", "test-key-123")
	t.Setenv("WAVE_MODEL", "models/test-model")
	t.Setenv("WAVE_PORT", "3000")
	t.Setenv("WAVE_PREROLL", "1.5")
	t.Setenv("WAVE_CONNECT_TIMEOUT", "10")
	t.Setenv("WAVE_NO_MOCK_FALLBACK", "true")
	t.Setenv("WAVE_DB_PATH", "/tmp/wave.db")
	t.Setenv("WAVE_MEDIA_DIR", "/tmp/media")
	t.Setenv("WAVE_STEMS_API_URL", "http://stems:9999")
	t.Setenv("WAVE_OLLAMA_URL", "http://ollama:11434")
	t.Setenv("WAVE_OLLAMA_MODEL", "llama3:8b")

	cfg := Load()

	if cfg.SessionURL != "wss://localhost:9000/ws" {
		t.Errorf("SessionURL = %q, want env override", cfg.SessionURL)
	}
	if cfg.APIKey != "test-key-123" {
		t.Errorf("APIKey = %q, want env override", cfg.APIKey)
	}
	if cfg.Model != "models/test-model" {
		t.Errorf("Model = %q, want env override", cfg.Model)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.Preroll != 1.5 {
		t.Errorf("Preroll = %f, want 1.5", cfg.Preroll)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", cfg.ConnectTimeout)
	}
	if !cfg.NoMockFallback {
		t.Error("NoMockFallback = false, want env override true")
	}
	if cfg.DBPath != "/tmp/wave.db" {
		t.Errorf("DBPath = %q, want env override", cfg.DBPath)
	}
	if cfg.MediaDir != "/tmp/media" {
		t.Errorf("MediaDir = %q, want env override", cfg.MediaDir)
	}
	if cfg.StemsAPIURL != "http://stems:9999" {
		t.Errorf("StemsAPIURL = %q, want env override", cfg.StemsAPIURL)
	}
	if cfg.OllamaURL != "http://ollama:11434" {
		t.Errorf("OllamaURL = %q, want env override", cfg.OllamaURL)
	}
	if cfg.OllamaModel != "llama3:8b" {
		t.Errorf("OllamaModel = %q, want env override", cfg.OllamaModel)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("WAVE_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 8080", cfg.Port)
	}
}

func TestEnvFloatInvalidFallsBack(t *testing.T) {
	t.Setenv("WAVE_PREROLL", "fast")
	cfg := Load()
	if cfg.Preroll != 2.0 {
		t.Errorf("Invalid float env should fallback to default: got %f, want 2.0", cfg.Preroll)
	}
}

func TestEnvBoolInvalidFallsBack(t *testing.T) {
	t.Setenv("WAVE_NO_MOCK_FALLBACK", "maybe")
	cfg := Load()
	if cfg.NoMockFallback {
		t.Error("Invalid bool env should fallback to default false")
	}
}

func TestEnvStrEmpty(t *testing.T) {
	// Empty string should use fallback
	os.Unsetenv("WAVE_SESSION_URL")
	cfg := Load()
	if cfg.SessionURL != "wss://generativelanguage.googleapis.com/ws/music" {
		t.Errorf("Unset env should use fallback: got %q", cfg.SessionURL)
	}
}
