package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const DefaultTitlePrompt = `Generate a short title (less than 30 characters) for this chat based on the user's message: "%s". Return only the title without quotes or punctuation.`

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Session   SessionConfig   `mapstructure:"session"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	AI        AIConfig        `mapstructure:"ai"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
	Secure     bool          `mapstructure:"secure"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type AIConfig struct {
	Timeout     time.Duration    `mapstructure:"timeout"`
	StreamDelay time.Duration    `mapstructure:"stream_delay"`
	TitlePrompt string           `mapstructure:"title_prompt"`
	Providers   []ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig describes one AI backend as declared in configuration.
type ProviderConfig struct {
	ID       string `mapstructure:"id" json:"id" validate:"required"`
	Name     string `mapstructure:"name" json:"name"`
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	APIKey   string `mapstructure:"api_key" json:"-"`
	BaseURL  string `mapstructure:"base_url" json:"base_url" validate:"required,url"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	Method   string `mapstructure:"method" json:"method" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	Model    string `mapstructure:"model" json:"model,omitempty"`
	Family   string `mapstructure:"family" json:"family,omitempty"`
}

// URL joins base_url and endpoint.
func (p ProviderConfig) URL() string {
	return p.BaseURL + p.Endpoint
}

var validate = validator.New()

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	cfg, _, err := load()
	return cfg, err
}

func newViper() *viper.Viper {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.dsn", "chat.db")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("session.ttl", "168h")
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("tracing.service_name", "chat-router")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.stream_delay", "50ms")
	v.SetDefault("ai.title_prompt", DefaultTitlePrompt)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func load() (*Config, *viper.Viper, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.AI.Providers = normalizeProviders(v, cfg.AI.Providers)
	return &cfg, nil
}

// normalizeProviders resolves ENV: key references, upper-cases methods and
// disables entries that fail validation.
func normalizeProviders(v *viper.Viper, providers []ProviderConfig) []ProviderConfig {
	for i := range providers {
		p := &providers[i]
		if strings.HasPrefix(p.APIKey, "ENV:") {
			envVar := strings.TrimPrefix(p.APIKey, "ENV:")
			// process environment wins over viper sources
			val := os.Getenv(envVar)
			if val == "" {
				val = v.GetString(envVar)
			}
			p.APIKey = val
		}
		p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
		if p.Method == "" {
			p.Method = "POST"
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		if err := ValidateProvider(*p); err != nil && p.Enabled {
			p.Enabled = false
			warnInvalid(p.ID, err)
		}
	}
	return providers
}

// ValidateProvider checks the declarative constraints of a provider entry.
func ValidateProvider(p ProviderConfig) error {
	return validate.Struct(p)
}
