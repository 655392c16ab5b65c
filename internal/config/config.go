package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every environment-driven setting of the API.
type Config struct {
	Port          string `mapstructure:"PORT"`
	GinMode       string `mapstructure:"GIN_MODE"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`

	RazorpayKeyID     string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `mapstructure:"RAZORPAY_KEY_SECRET"`

	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	AuthRateLimit int    `mapstructure:"AUTH_RATE_LIMIT"`

	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	KafkaOrderTopic string `mapstructure:"KAFKA_ORDER_TOPIC"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	UploadDir string `mapstructure:"UPLOAD_DIR"`
	BaseURL   string `mapstructure:"BASE_URL"`
}

var defaults = map[string]interface{}{
	"PORT":                "5000",
	"GIN_MODE":            "release",
	"MONGO_URI":           "mongodb://localhost:27017",
	"MONGO_DATABASE":      "refuel",
	"JWT_SECRET":          "",
	"RAZORPAY_KEY_ID":     "",
	"RAZORPAY_KEY_SECRET": "",
	"CORS_ORIGINS":        "http://localhost:5173",
	"REDIS_ADDR":          "",
	"REDIS_PASSWORD":      "",
	"AUTH_RATE_LIMIT":     20,
	"KAFKA_BROKERS":       "",
	"KAFKA_ORDER_TOPIC":   "orders",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "json",
	"UPLOAD_DIR":          "./uploads",
	"BASE_URL":            "http://localhost:5000",
}

// Load reads an optional .env file into the process environment and then
// resolves every key through viper. Environment variables win over defaults.
func Load() (*Config, error) {
	// A missing .env is normal in containers; only the environment is used then.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	if c.MongoURI == "" {
		return errors.New("MONGO_URI environment variable is not set")
	}
	return nil
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

// Brokers splits KAFKA_BROKERS on commas. Empty means events are not published.
func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// PaymentsEnabled reports whether both gateway credentials are present.
func (c *Config) PaymentsEnabled() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
