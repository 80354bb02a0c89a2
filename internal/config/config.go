package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderModeWebhook = "webhook"
	ProviderModeLive    = "live"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Dispatch  DispatchConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Twilio    TwilioConfig
	SendGrid  SendGridConfig
	FCM       FCMConfig
	SMS       SMSConfig
	WhatsApp  WhatsAppConfig
}

type AppConfig struct {
	Env      string
	LogLevel string
	// ProviderMode selects the provider clients: "webhook" or "live"
	ProviderMode string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DispatchConfig struct {
	// ChannelTimeout bounds a single channel's send; zero disables it
	ChannelTimeout time.Duration
}

// DatabaseConfig configures the optional delivery log. An empty URL disables it.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig configures the shared rate limiter. An empty URL selects the
// in-process limiter.
type RedisConfig struct {
	URL          string
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

type RateLimitConfig struct {
	Enabled bool
	PerSec  int
	Burst   int
}

type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
	Timeout    time.Duration
}

type SendGridConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
	BaseURL     string
	Timeout     time.Duration
}

type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
	BaseURL         string
	Timeout         time.Duration
}

type SMSConfig struct {
	From   string
	Format string
}

type WhatsAppConfig struct {
	From       string
	TemplateID string
	// TemplateVariables maps provider template positions to message templates,
	// written as "1={{subject}};2={{body}}"
	TemplateVariables map[string]string
}

// Load creates a new Config from environment variables
func Load() *Config {
	return &Config{
		App: AppConfig{
			Env:          getEnv("APP_ENV", "development"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ProviderMode: strings.ToLower(getEnv("PROVIDER_MODE", ProviderModeWebhook)),
		},
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 45*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Dispatch: DispatchConfig{
			ChannelTimeout: getDurationEnv("DISPATCH_CHANNEL_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     getBoolEnv("DATABASE_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			MaxRetries:   getIntEnv("REDIS_MAX_RETRIES", 3),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 5),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
			PerSec:  getIntEnv("RATE_LIMIT_PER_CHANNEL", 100),
			Burst:   getIntEnv("RATE_LIMIT_BURST", 100),
		},
		Webhook: WebhookConfig{
			URL:     getEnv("WEBHOOK_URL", "https://webhook.site/test"),
			Timeout: getDurationEnv("WEBHOOK_TIMEOUT", 10*time.Second),
		},
		Twilio: TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			BaseURL:    getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
			Timeout:    getDurationEnv("TWILIO_TIMEOUT", 10*time.Second),
		},
		SendGrid: SendGridConfig{
			APIKey:      getEnv("SENDGRID_API_KEY", ""),
			FromAddress: getEnv("SENDGRID_FROM_ADDRESS", ""),
			FromName:    getEnv("SENDGRID_FROM_NAME", ""),
			BaseURL:     getEnv("SENDGRID_BASE_URL", "https://api.sendgrid.com"),
			Timeout:     getDurationEnv("SENDGRID_TIMEOUT", 10*time.Second),
		},
		FCM: FCMConfig{
			ProjectID:       getEnv("FCM_PROJECT_ID", ""),
			CredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
			BaseURL:         getEnv("FCM_BASE_URL", "https://fcm.googleapis.com"),
			Timeout:         getDurationEnv("FCM_TIMEOUT", 10*time.Second),
		},
		SMS: SMSConfig{
			From:   getEnv("SMS_FROM", ""),
			Format: getEnv("SMS_FORMAT", "{{subject}}: {{body}}"),
		},
		WhatsApp: WhatsAppConfig{
			From:              getEnv("WHATSAPP_FROM", ""),
			TemplateID:        getEnv("WHATSAPP_TEMPLATE_ID", ""),
			TemplateVariables: getMapEnv("WHATSAPP_TEMPLATE_VARIABLES", map[string]string{"1": "{{subject}}", "2": "{{body}}"}),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getMapEnv parses "k1=v1;k2=v2". Entries without "=" are ignored.
func getMapEnv(key string, defaultValue map[string]string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	out := make(map[string]string)
	for _, pair := range strings.Split(value, ";") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		out[strings.TrimSpace(k)] = v
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
