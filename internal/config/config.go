package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port               string
	PublicHostURL      string // Public base URL for audio links (empty = derive from request)
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Chat providers
	ChatProvider string // "openai" (default) or "gemini"
	OpenAIKey    string
	OpenAIModel  string
	GeminiKey    string
	GeminiModel  string

	// ElevenLabs
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	// Audio pipeline
	AudioDir    string
	FFmpegPath  string
	RhubarbPath string

	// Synthesis retry policy
	TTSMaxRetries   int
	TTSRetryDelayMs int

	// Concurrency cap per batch phase (0 = bounded by batch size)
	MaxConcurrentSynthesis int

	// Optional synthesized-audio cache
	RedisURL string
}

// Load reads configuration from the environment. Missing provider keys are
// not an error: the service then answers with its pre-rendered message sets
// instead of calling the providers.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		PublicHostURL:      getEnv("PUBLIC_HOST_URL", ""),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),

		ChatProvider: getEnv("CHAT_PROVIDER", "openai"),
		OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", ""),
		GeminiKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", ""),

		ElevenLabsKey:     getEnv("ELEVEN_LABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVEN_LABS_VOICE_ID", ""),
		ElevenLabsModelID: getEnv("ELEVEN_LABS_MODEL_ID", ""),

		AudioDir:    getEnv("AUDIO_DIR", "audios"),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		RhubarbPath: getEnv("RHUBARB_PATH", "./bin/rhubarb"),

		TTSMaxRetries:   getEnvInt("TTS_MAX_RETRIES", 10),
		TTSRetryDelayMs: getEnvInt("TTS_RETRY_DELAY_MS", 0),

		MaxConcurrentSynthesis: getEnvInt("MAX_CONCURRENT_SYNTHESIS", 0),

		RedisURL: getEnv("REDIS_URL", ""),
	}

	return cfg, nil
}

// KeysConfigured reports whether both the text generator and the speech
// provider have credentials. Without both, requests get the pre-rendered
// "add your API keys" message set.
func (c *Config) KeysConfigured() bool {
	chatKey := c.OpenAIKey
	if c.ChatProvider == "gemini" {
		chatKey = c.GeminiKey
	}
	return chatKey != "" && c.ElevenLabsKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
