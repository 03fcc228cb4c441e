package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"port"`
	DatabaseURL string `mapstructure:"database_url"`
	JWTSecret   string `mapstructure:"jwt_secret"`

	ClerkSecretKey string `mapstructure:"clerk_secret_key"`

	FCMCredentialsFile    string `mapstructure:"fcm_credentials_file"`
	FCMServiceAccountJSON string `mapstructure:"fcm_service_account_json"`

	MetricsUser string `mapstructure:"metrics_user"`
	MetricsPass string `mapstructure:"metrics_pass"`

	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	NotificationWorkers   int `mapstructure:"notification_workers"`
	NotificationQueueSize int `mapstructure:"notification_queue_size"`

	OllamaModel   string        `mapstructure:"ollama_model"`
	OllamaTimeout time.Duration `mapstructure:"ollama_timeout"`

	SeedChatRooms bool `mapstructure:"seed_chat_rooms"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3333")
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("clerk_secret_key", "")
	v.SetDefault("fcm_credentials_file", "./serviceAccountKey.json")
	v.SetDefault("fcm_service_account_json", "")
	v.SetDefault("metrics_user", "")
	v.SetDefault("metrics_pass", "")
	v.SetDefault("rate_limit_rps", 5.0)
	v.SetDefault("rate_limit_burst", 30)
	v.SetDefault("notification_workers", 5)
	v.SetDefault("notification_queue_size", 100)
	v.SetDefault("ollama_model", "")
	v.SetDefault("ollama_timeout", 30*time.Second)
	v.SetDefault("seed_chat_rooms", true)
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if c.NotificationWorkers < 1 {
		c.NotificationWorkers = 1
	}
	if c.NotificationQueueSize < 1 {
		c.NotificationQueueSize = 1
	}
	return nil
}

func (c *Config) ClerkEnabled() bool { return c.ClerkSecretKey != "" }

func (c *Config) MetricsEnabled() bool { return c.MetricsUser != "" && c.MetricsPass != "" }
