package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/emergency-notifier/pkg/validator"
)

// EnvPrefix prefixes every environment override, e.g. NOTIFIER_PUSH_DRIVER.
const EnvPrefix = "NOTIFIER"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Roster    RosterConfig    `mapstructure:"roster"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Datastore DatastoreConfig `mapstructure:"datastore"`
	Bus       BusConfig       `mapstructure:"bus"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Push      PushConfig      `mapstructure:"push"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Format is "json" or "console"
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type RosterConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres datastore memory"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
	AutoMigrate     bool          `mapstructure:"auto_migrate" split_words:"true"`
}

type DatastoreConfig struct {
	ProjectID       string `mapstructure:"project_id" split_words:"true"`
	CredentialsFile string `mapstructure:"credentials_file" split_words:"true"`
}

type BusConfig struct {
	Driver        string `mapstructure:"driver" validate:"oneof=redis nats memory"`
	ChannelPrefix string `mapstructure:"channel_prefix" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type NATSConfig struct {
	URL  string `mapstructure:"url"`
	Name string `mapstructure:"name"`
}

type PushConfig struct {
	Driver               string        `mapstructure:"driver" validate:"oneof=fcm log"`
	CredentialsFile      string        `mapstructure:"credentials_file" split_words:"true"`
	ProjectID            string        `mapstructure:"project_id" split_words:"true"`
	BatchSize            int           `mapstructure:"batch_size" split_words:"true" validate:"min=1,max=500"`
	MaxConcurrentBatches int           `mapstructure:"max_concurrent_batches" split_words:"true" validate:"min=1"`
	BatchesPerSecond     float64       `mapstructure:"batches_per_second" split_words:"true" validate:"min=0"`
	RateBurst            int           `mapstructure:"rate_burst" split_words:"true"`
	BreakerMaxFailures   int           `mapstructure:"breaker_max_failures" split_words:"true"`
	BreakerTimeout       time.Duration `mapstructure:"breaker_timeout" split_words:"true"`
}

// IdentityConfig selects where auth identities of deleted users are removed.
// An empty driver follows the push driver: firebase with fcm, memory
// otherwise. The Firebase project comes from PushConfig.
type IdentityConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=firebase memory"`
}

type AuthConfig struct {
	// JWTSecret signs bearer tokens accepted by the ingest endpoint. Empty
	// disables the endpoint.
	JWTSecret string `mapstructure:"jwt_secret" split_words:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("roster.driver", "memory")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "emergency")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("bus.driver", "memory")
	v.SetDefault("bus.channel_prefix", "events.")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 500*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "emergency-notifier")

	v.SetDefault("push.driver", "log")
	v.SetDefault("push.batch_size", 500)
	v.SetDefault("push.max_concurrent_batches", 1)
	v.SetDefault("push.breaker_max_failures", 5)
	v.SetDefault("push.breaker_timeout", 30*time.Second)
}

// Load reads config.yml when present, applies defaults, then environment
// overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	v.AddConfigPath("/app/config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.normalize()
	if err := validator.New().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Roster.Driver = strings.ToLower(strings.TrimSpace(c.Roster.Driver))
	c.Bus.Driver = strings.ToLower(strings.TrimSpace(c.Bus.Driver))
	c.Push.Driver = strings.ToLower(strings.TrimSpace(c.Push.Driver))
	c.Identity.Driver = strings.ToLower(strings.TrimSpace(c.Identity.Driver))
	if c.Identity.Driver == "" {
		c.Identity.Driver = "memory"
		if c.Push.Driver == "fcm" {
			c.Identity.Driver = "firebase"
		}
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}
