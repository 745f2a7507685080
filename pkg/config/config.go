// Package config loads service configuration from the environment (and
// an optional config file) into an explicit Config struct that is
// constructed once at process start and injected into each component.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig holds the HTTP server configuration
type APIConfig struct {
	ListenAddress string        `mapstructure:"listen_address"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds the Postgres connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds the lib/pq connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// QueueConfig holds the Redis Streams ingestion queue configuration
type QueueConfig struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	Stream        string        `mapstructure:"stream"`
	Group         string        `mapstructure:"group"`
	BlockTimeout  time.Duration `mapstructure:"block_timeout"`
	ReclaimIdle   time.Duration `mapstructure:"reclaim_idle"`
	PoolSize      int           `mapstructure:"pool_size"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// EmbeddingConfig holds the embedding gateway configuration
type EmbeddingConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// GenerationConfig holds the generation gateway configuration
type GenerationConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the complete service configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	API         APIConfig        `mapstructure:"api"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Queue       QueueConfig      `mapstructure:"queue"`
	Embedding   EmbeddingConfig  `mapstructure:"embedding"`
	Generation  GenerationConfig `mapstructure:"generation"`
}

// Load reads configuration from environment variables, with an optional
// config.yaml next to the binary. Environment keys use underscores,
// e.g. DATABASE_HOST, QUEUE_STREAM, EMBEDDING_API_KEY.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; environment alone is a valid setup.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy environment names kept from the first deployment
	bindLegacyEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("api.listen_address", ":8080")
	v.SetDefault("api.read_timeout", 30*time.Second)
	v.SetDefault("api.write_timeout", 90*time.Second)
	v.SetDefault("api.idle_timeout", 120*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "ragdb")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("queue.addr", "localhost:6379")
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 0)
	v.SetDefault("queue.stream", "document-ingest")
	v.SetDefault("queue.group", "embedding-workers")
	v.SetDefault("queue.block_timeout", 5*time.Second)
	v.SetDefault("queue.reclaim_idle", 60*time.Second)
	v.SetDefault("queue.pool_size", 10)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.retry_backoff", 100*time.Millisecond)
	v.SetDefault("queue.dial_timeout", 5*time.Second)
	v.SetDefault("queue.read_timeout", 10*time.Second)
	v.SetDefault("queue.write_timeout", 10*time.Second)

	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("generation.base_url", "https://api.openai.com/v1")
	v.SetDefault("generation.model", "gpt-3.5-turbo")
	v.SetDefault("generation.timeout", 60*time.Second)
}

// bindLegacyEnv maps the variable names the original deployment used
// onto the structured keys so existing environments keep working.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"database.host":       "POSTGRES_HOST",
		"database.port":       "POSTGRES_PORT",
		"database.user":       "POSTGRES_USER",
		"database.password":   "POSTGRES_PASSWORD",
		"database.database":   "POSTGRES_DB",
		"queue.addr":          "REDIS_ADDR",
		"queue.password":      "REDIS_PASSWORD",
		"queue.stream":        "QUEUE_STREAM",
		"queue.group":         "QUEUE_GROUP",
		"embedding.api_key":   "OPENAI_API_KEY",
		"embedding.model":     "EMBEDDING_MODEL",
		"embedding.dimension": "EMBEDDING_DIMENSION",
		"generation.api_key":  "OPENROUTER_API_KEY",
		"generation.model":    "CHAT_MODEL",
	}
	for key, env := range legacy {
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
}
