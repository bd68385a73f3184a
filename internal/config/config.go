package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all service settings.
type Config struct {
	Server    ServerConfig
	Webhooks  WebhookConfig
	HubSpot   HubSpotConfig
	Widget    WidgetConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	widget, err := loadWidgetConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Webhooks:  loadWebhookConfig(),
		HubSpot:   loadHubSpotConfig(),
		Widget:    widget,
		RateLimit: rateLimit,
		Log:       LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	var origins []string
	if raw := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	return ServerConfig{Addr: addr, AllowedOrigins: origins}, nil
}

// WebhookConfig holds the outbound event endpoints.
type WebhookConfig struct {
	ChatURL         string
	SessionStartURL string
	SessionEndURL   string
	Source          string
}

func loadWebhookConfig() WebhookConfig {
	return WebhookConfig{
		ChatURL:         strings.TrimSpace(os.Getenv("CHAT_WEBHOOK_URL")),
		SessionStartURL: strings.TrimSpace(os.Getenv("SESSION_START_WEBHOOK_URL")),
		SessionEndURL:   strings.TrimSpace(os.Getenv("SESSION_END_WEBHOOK_URL")),
		Source:          getEnvOrDefault("CHAT_SOURCE", "cosentus-chatbot"),
	}
}

// HubSpotConfig holds CRM API access settings.
type HubSpotConfig struct {
	AccessToken string
	BaseURL     string
}

func loadHubSpotConfig() HubSpotConfig {
	return HubSpotConfig{
		AccessToken: strings.TrimSpace(os.Getenv("HUBSPOT_ACCESS_TOKEN")),
		BaseURL:     strings.TrimSpace(os.Getenv("HUBSPOT_BASE_URL")),
	}
}

// WidgetConfig describes widget behavior.
type WidgetConfig struct {
	WelcomeMessage  string
	BotDisplayName  string
	SessionTimeout  time.Duration
	TeaserCooldown  time.Duration
	DisplayTimezone string
}

func loadWidgetConfig() (WidgetConfig, error) {
	timeoutMinutes := 30
	if override, err := parseOptionalIntEnv("SESSION_TIMEOUT_MINUTES"); err != nil {
		return WidgetConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return WidgetConfig{}, fmt.Errorf("SESSION_TIMEOUT_MINUTES must be at least 1")
		}
		timeoutMinutes = *override
	}

	cooldownHours := 24
	if override, err := parseOptionalIntEnv("TEASER_COOLDOWN_HOURS"); err != nil {
		return WidgetConfig{}, err
	} else if override != nil {
		cooldownHours = *override
	}

	return WidgetConfig{
		WelcomeMessage:  getEnvOrDefault("WELCOME_MESSAGE", "Welcome to Cosentus! How may I help you today?"),
		BotDisplayName:  getEnvOrDefault("BOT_DISPLAY_NAME", "COSE AI"),
		SessionTimeout:  time.Duration(timeoutMinutes) * time.Minute,
		TeaserCooldown:  time.Duration(cooldownHours) * time.Hour,
		DisplayTimezone: getEnvOrDefault("DISPLAY_TIMEZONE", "America/Los_Angeles"),
	}, nil
}

// RateLimitConfig tunes the per-IP request limiter.
type RateLimitConfig struct {
	Limit         int
	Window        time.Duration
	SweepInterval time.Duration
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	limit := 10
	if override, err := parseOptionalIntEnv("RATE_LIMIT_MAX_REQUESTS"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		limit = *override
	}

	windowSeconds := 60
	if override, err := parseOptionalIntEnv("RATE_LIMIT_WINDOW_SECONDS"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		windowSeconds = *override
	}

	return RateLimitConfig{
		Limit:         limit,
		Window:        time.Duration(windowSeconds) * time.Second,
		SweepInterval: 5 * time.Minute,
	}, nil
}

// LogConfig describes logging output.
type LogConfig struct {
	Level string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
