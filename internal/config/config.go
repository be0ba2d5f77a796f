package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRevealInterval = 320 * time.Millisecond
	MinRevealInterval     = 250 * time.Millisecond
	MaxRevealInterval     = 450 * time.Millisecond
)

type Config struct {
	Port          string
	AllowedOrigin string
	FrontendURL   string
	// Model
	LLMProvider    string
	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	PromptFile     string
	RequestTimeout time.Duration
	// Pipeline pacing
	RevealInterval time.Duration
	SessionIdleTTL time.Duration
	// Chat posts allowed per session per minute; 0 disables the limit
	ChatRatePerMinute int
	// Database
	DatabaseURL   string
	MigrationsDir string
	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleScopes       []string
	// Local state
	PreferencesFile string
	AdminToken      string
	SecureCookies   bool
	// Logging
	LogLevel  string
	LogFormat string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:               getEnvDefault("PORT", "8080"),
		AllowedOrigin:      getEnvDefault("ALLOWED_ORIGIN", "*"),
		FrontendURL:        getEnvDefault("FRONTEND_URL", "http://localhost:5173"),
		LLMProvider:        strings.ToLower(getEnvDefault("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnvDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		PromptFile:         getEnvDefault("PROMPT_FILE", "./prompts/mentor.yaml"),
		RequestTimeout:     time.Duration(getEnvIntDefault("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		RevealInterval:     ClampRevealInterval(time.Duration(getEnvIntDefault("REVEAL_INTERVAL_MS", 320)) * time.Millisecond),
		SessionIdleTTL:     time.Duration(getEnvIntDefault("SESSION_IDLE_MINUTES", 60)) * time.Minute,
		ChatRatePerMinute:  getEnvIntDefault("CHAT_RATE_PER_MINUTE", 30),
		DatabaseURL:        os.Getenv("DB_URL"),
		MigrationsDir:      getEnvDefault("MIGRATIONS_DIR", "./migrations"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getEnvDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/callback"),
		GoogleScopes:       getEnvListDefault("GOOGLE_OAUTH_SCOPES", []string{"openid", "email", "profile"}),
		PreferencesFile:    getEnvDefault("PREFERENCES_FILE", "data/preferences.json"),
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		SecureCookies:      getEnvBoolDefault("SECURE_COOKIES", false),
		LogLevel:           getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvDefault("LOG_FORMAT", "console"),
	}
	if cfg.ModelAPIKey() == "" {
		log.Warn().Str("provider", cfg.LLMProvider).Msg("model API key is not set; the chat will report an initialization error")
	}
	return cfg
}

// ModelAPIKey returns the credential for the selected provider.
func (c Config) ModelAPIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// ModelName returns the model identifier for the selected provider.
func (c Config) ModelName() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// AuthEnabled reports whether Google sign-in has been configured. Without it
// every visitor is treated as signed in.
func (c Config) AuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// ClampRevealInterval keeps the typing cadence inside the readable range.
func ClampRevealInterval(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultRevealInterval
	case d < MinRevealInterval:
		return MinRevealInterval
	case d > MaxRevealInterval:
		return MaxRevealInterval
	}
	return d
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-numeric env value")
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
