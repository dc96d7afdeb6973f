package config

import (
	"os"
	"strconv"
	"time"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Generation session connection
	SessionURL string
	APIKey     string
	Model      string

	// Server
	Port int

	// Playback
	Preroll        float64       // seconds of buffer before audio starts
	ConnectTimeout time.Duration // session dial bound
	NoMockFallback bool          // fail connect instead of falling back to the mock session

	// Persistence
	DBPath   string
	MediaDir string

	// External collaborators
	StemsAPIURL string
	OllamaURL   string
	OllamaModel string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		SessionURL: envStr("WAVE_SESSION_URL", "wss://generativelanguage.googleapis.com/ws/music"),
		APIKey:     envStr("WAVE_API_KEY", ""),
		Model:      envStr("WAVE_MODEL", "models/lyria-realtime-exp"),

		Port: envInt("WAVE_PORT", 8080),

		Preroll:        envFloat("WAVE_PREROLL", 2.0),
		ConnectTimeout: time.Duration(envInt("WAVE_CONNECT_TIMEOUT", 5)) * time.Second,
		NoMockFallback: envBool("WAVE_NO_MOCK_FALLBACK", false),

		DBPath:   envStr("WAVE_DB_PATH", "data/promptwave.db"),
		MediaDir: envStr("WAVE_MEDIA_DIR", "data/media"),

		StemsAPIURL: envStr("WAVE_STEMS_API_URL", "http://localhost:9090"),
		OllamaURL:   envStr("WAVE_OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: envStr("WAVE_OLLAMA_MODEL", "qwen3:8b"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
