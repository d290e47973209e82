// Package config loads the process configuration from environment
// variables, following the teacher's viper-based, env-first approach.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every environment-driven setting the delivery engine needs.
type Config struct {
	Environment string
	LogLevel    string

	Server ServerConfig
	DB     DatabaseConfig

	Provider ProviderConfig
	Webhook  WebhookConfig
	Admin    AdminConfig

	SiteURL           string
	ShortLinkBaseURL  string
	RegionalOffset    time.Duration
	SchedulerInterval time.Duration
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// ProviderConfig configures the external transactional/marketing email
// provider (§4.2): its API key, default sender identity, broadcast
// strategy switch, and default audience segment.
type ProviderConfig struct {
	BaseURL            string
	APIKey             string
	DefaultSenderName  string
	DefaultSenderEmail string
	ReplyTo            string
	UseBroadcastAPI    bool
	DefaultSegmentID   string
}

// WebhookConfig configures inbound webhook signature verification (§4.11).
type WebhookConfig struct {
	SigningSecret string
}

// AdminConfig configures the admin HTTP authentication boundary (§4.12).
type AdminConfig struct {
	APIKey string
}

// Load reads configuration from the environment, applying the teacher's
// sensible defaults for anything not explicitly set.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "mailcore")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PROVIDER_BASE_URL", "https://api.resend.com")
	v.SetDefault("PROVIDER_API_KEY", "")
	v.SetDefault("PROVIDER_SENDER_NAME", "Newsletter")
	v.SetDefault("PROVIDER_SENDER_EMAIL", "")
	v.SetDefault("PROVIDER_REPLY_TO", "")
	v.SetDefault("USE_BROADCAST_API", false)
	v.SetDefault("PROVIDER_DEFAULT_SEGMENT_ID", "")
	v.SetDefault("WEBHOOK_SIGNING_SECRET", "")
	v.SetDefault("ADMIN_API_KEY", "")
	v.SetDefault("SITE_URL", "http://localhost:3000")
	v.SetDefault("SHORT_LINK_BASE_URL", "http://localhost:3000/r")
	v.SetDefault("REGIONAL_OFFSET_MINUTES", 540) // UTC+09:00, per spec.md §9
	v.SetDefault("SCHEDULER_INTERVAL_SECONDS", 60)

	cfg := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		DB: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Provider: ProviderConfig{
			BaseURL:            v.GetString("PROVIDER_BASE_URL"),
			APIKey:             v.GetString("PROVIDER_API_KEY"),
			DefaultSenderName:  v.GetString("PROVIDER_SENDER_NAME"),
			DefaultSenderEmail: v.GetString("PROVIDER_SENDER_EMAIL"),
			ReplyTo:            v.GetString("PROVIDER_REPLY_TO"),
			UseBroadcastAPI:    v.GetBool("USE_BROADCAST_API"),
			DefaultSegmentID:   v.GetString("PROVIDER_DEFAULT_SEGMENT_ID"),
		},
		Webhook: WebhookConfig{
			SigningSecret: v.GetString("WEBHOOK_SIGNING_SECRET"),
		},
		Admin: AdminConfig{
			APIKey: v.GetString("ADMIN_API_KEY"),
		},
		SiteURL:           v.GetString("SITE_URL"),
		ShortLinkBaseURL:  v.GetString("SHORT_LINK_BASE_URL"),
		RegionalOffset:    time.Duration(v.GetInt("REGIONAL_OFFSET_MINUTES")) * time.Minute,
		SchedulerInterval: time.Duration(v.GetInt("SCHEDULER_INTERVAL_SECONDS")) * time.Second,
	}

	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("config: PROVIDER_API_KEY is required")
	}
	if cfg.Admin.APIKey == "" {
		return nil, fmt.Errorf("config: ADMIN_API_KEY is required")
	}

	return cfg, nil
}
