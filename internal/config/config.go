package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	APIToken    string

	LLMProvider       string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	GeminiAPIKey      string
	GeminiModel       string
	SiteURL           string
	LLMTemperature    float64

	GenerationMaxAttempts int
	GenerationLockTTL     time.Duration
	DefaultReportTarget   int
	GuestJWTSecret        string

	SlackBotToken string
	SlackChannel  string
}

func Load() Config {
	return Config{
		Port:        envInt("SONAR_PORT", 8760),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		RedisURL:    envStr("REDIS_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("SONAR_API_TOKEN", ""),

		LLMProvider:       envStr("LLM_PROVIDER", "openrouter"),
		OpenRouterAPIKey:  envStr("OPENROUTER_API_KEY", ""),
		OpenRouterModel:   envStr("OPENROUTER_MODEL", "google/gemini-3-flash-preview"),
		OpenRouterBaseURL: envStr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		GeminiAPIKey:      envStr("GEMINI_API_KEY", ""),
		GeminiModel:       envStr("GEMINI_MODEL", "gemini-2.5-flash"),
		SiteURL:           envStr("SITE_URL", "http://localhost:3939"),
		LLMTemperature:    envFloat("LLM_TEMPERATURE", 0.7),

		GenerationMaxAttempts: envInt("GENERATION_MAX_ATTEMPTS", 2),
		GenerationLockTTL:     envDuration("GENERATION_LOCK_TTL", 2*time.Minute),
		DefaultReportTarget:   envInt("DEFAULT_REPORT_TARGET", 10),
		GuestJWTSecret:        envStr("GUEST_JWT_SECRET", ""),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_CHANNEL", ""),
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
