package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Push      PushConfig      `mapstructure:"push"`
	Webhooks  WebhooksConfig  `mapstructure:"webhooks"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	App       AppConfig       `mapstructure:"app"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	WebhookPerMinute int    `mapstructure:"webhook_per_minute"`
	APIPerMinute     int    `mapstructure:"api_per_minute"`
	RedisURL         string `mapstructure:"redis_url"`
}

// PushConfig holds the VAPID credentials and delivery options for the Web Push transport.
type PushConfig struct {
	VAPIDPublicKey  string        `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string        `mapstructure:"vapid_private_key"`
	Subscriber      string        `mapstructure:"subscriber"`
	TTL             int           `mapstructure:"ttl"`
	Urgency         string        `mapstructure:"urgency"`
	Timeout         time.Duration `mapstructure:"timeout"`
	StrictPruning   bool          `mapstructure:"strict_pruning"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

type WebhooksConfig struct {
	MaxBodyBytes     int64         `mapstructure:"max_body_bytes"`
	LogRetention     time.Duration `mapstructure:"log_retention"`
	ConcealNotFound  bool          `mapstructure:"conceal_not_found"`
	ValueMaxLength   int           `mapstructure:"value_max_length"`
	EndpointCacheTTL time.Duration `mapstructure:"endpoint_cache_ttl"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type AppConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "file:data/pushhook.db")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)

	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("rate_limit.webhook_per_minute", 120)
	v.SetDefault("rate_limit.api_per_minute", 600)

	// Registered so AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("jwt.secret", "")
	v.SetDefault("rate_limit.redis_url", "")
	v.SetDefault("push.vapid_public_key", "")
	v.SetDefault("push.vapid_private_key", "")
	v.SetDefault("push.subscriber", "admin@localhost")
	v.SetDefault("push.ttl", 86400)
	v.SetDefault("push.urgency", "high")
	v.SetDefault("push.timeout", 10*time.Second)

	v.SetDefault("webhooks.max_body_bytes", 1<<20)
	v.SetDefault("webhooks.log_retention", 30*24*time.Hour)
	v.SetDefault("webhooks.value_max_length", 64)
	v.SetDefault("webhooks.endpoint_cache_ttl", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("app.base_url", "http://localhost:8080")
}

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.App.BaseURL = strings.TrimRight(config.App.BaseURL, "/")

	return &config, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Push.VAPIDPublicKey == "" || c.Push.VAPIDPrivateKey == "" {
		return errors.New("push.vapid_public_key and push.vapid_private_key are required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	return nil
}
