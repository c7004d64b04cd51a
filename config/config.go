package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Feeds         FeedsConfig         `mapstructure:"feeds"`
	Search        SearchConfig        `mapstructure:"search"`
	Rewriter      RewriterConfig      `mapstructure:"rewriter"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// FeedsConfig holds feed ingestion configuration
type FeedsConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	CacheDir        string        `mapstructure:"cache_dir"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	BatchSize       int           `mapstructure:"batch_size"`
}

// SearchConfig holds search engine configuration
type SearchConfig struct {
	MaxCandidates  int `mapstructure:"max_candidates"`
	DefaultPerPage int `mapstructure:"default_per_page"`
	MaxPerPage     int `mapstructure:"max_per_page"`
}

// RewriterConfig holds query rewriter configuration
type RewriterConfig struct {
	LLMAPIKey   string        `mapstructure:"llm_api_key"`
	LLMEndpoint string        `mapstructure:"llm_endpoint"`
	LLMModel    string        `mapstructure:"llm_model"`
	LLMTimeout  time.Duration `mapstructure:"llm_timeout"`
}

// ElasticsearchConfig holds the optional external index configuration
type ElasticsearchConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	Burst             int `mapstructure:"burst"`
	MaxRetries        int `mapstructure:"max_retries"`
	InitialBackoffMs  int `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int `mapstructure:"max_backoff_ms"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// AdminConfig holds the admin surface configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// Load .env file (optional)
	if err := loadEnvFile(); err != nil {
		log.Warn().Err(err).Msg("Warning: .env file not loaded")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("CATALOG_SERVICE")

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// loadEnvFile loads a .env file by parsing KEY=VALUE lines and setting them as environment variables
func loadEnvFile() error {
	envPaths := []string{".", "./config"}

	for _, path := range envPaths {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			if err := loadDotEnvFile(envFile); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			value = strings.Trim(value, "\"'")
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", "DATABASE_URL")

	v.BindEnv("server.port", "API_PORT")
	v.BindEnv("server.host", "API_HOST")

	v.BindEnv("logging.level", "LOG_LEVEL")

	v.BindEnv("feeds.cache_dir", "CACHE_DIR")
	v.BindEnv("feeds.refresh_interval", "FEED_REFRESH_INTERVAL")
	v.BindEnv("feeds.fetch_timeout", "FEED_TIMEOUT")
	v.BindEnv("feeds.cache_ttl", "CACHE_TTL")

	v.BindEnv("admin.api_key", "ADMIN_API_KEY")

	v.BindEnv("telemetry.enabled", "OTEL_ENABLED")
	v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	v.BindEnv("rewriter.llm_api_key", "LLM_API_KEY")

	v.BindEnv("elasticsearch.enabled", "ELASTICSEARCH_ENABLED")
	v.BindEnv("elasticsearch.host", "ELASTICSEARCH_HOST")
	v.BindEnv("elasticsearch.port", "ELASTICSEARCH_PORT")
	v.BindEnv("elasticsearch.username", "ELASTICSEARCH_USERNAME")
	v.BindEnv("elasticsearch.password", "ELASTICSEARCH_PASSWORD")
	v.BindEnv("elasticsearch.use_ssl", "ELASTICSEARCH_USE_SSL")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	// Feed defaults
	v.SetDefault("feeds.refresh_interval", 24*time.Hour)
	v.SetDefault("feeds.fetch_timeout", 300*time.Second)
	v.SetDefault("feeds.cache_dir", "./cache")
	v.SetDefault("feeds.cache_ttl", 1*time.Hour)
	v.SetDefault("feeds.max_concurrent", 4)
	v.SetDefault("feeds.batch_size", 500)

	// Search defaults
	v.SetDefault("search.max_candidates", 1000)
	v.SetDefault("search.default_per_page", 20)
	v.SetDefault("search.max_per_page", 100)

	// Rewriter defaults
	v.SetDefault("rewriter.llm_endpoint", "https://api.openai.com/v1")
	v.SetDefault("rewriter.llm_model", "gpt-4o-mini")
	v.SetDefault("rewriter.llm_timeout", 2*time.Second)

	// Elasticsearch defaults
	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.host", "localhost")
	v.SetDefault("elasticsearch.port", 9200)
	v.SetDefault("elasticsearch.use_ssl", false)

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("rate_limit.initial_backoff_ms", 100)
	v.SetDefault("rate_limit.max_backoff_ms", 30000)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// GetDatabaseURL returns the database URL from config or environment
func GetDatabaseURL() string {
	if cfg := Get(); cfg != nil && cfg.Database.URL != "" {
		return cfg.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
