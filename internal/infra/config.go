package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	PromptProvider     string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	OpenAIOrg          string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	StaticSentence     string
	CORSAllowedOrigins string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// A missing provider credential is not an error here; see MissingCredential.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "3001"),
		PromptProvider:     strings.ToLower(getEnv("PROMPT_PROVIDER", "openai")),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4.1-nano"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:          os.Getenv("OPENAI_ORG"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		StaticSentence:     os.Getenv("STATIC_SENTENCE"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	switch cfg.PromptProvider {
	case "openai", "gemini", "static":
	default:
		return nil, fmt.Errorf("PROMPT_PROVIDER %q is not supported (openai, gemini, static)", cfg.PromptProvider)
	}

	if p, err := strconv.Atoi(cfg.Port); err != nil || p <= 0 || p > 65535 {
		return nil, fmt.Errorf("PORT %q is not a valid port", cfg.Port)
	}

	return cfg, nil
}

// MissingCredential names the env var the selected provider needs but does not have,
// or returns "" when the provider is usable.
func (c *Config) MissingCredential() string {
	switch c.PromptProvider {
	case "openai":
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return "OPENAI_API_KEY"
		}
	case "gemini":
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return "GEMINI_API_KEY"
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
