package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

const (
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"

	TruncateChars  = "chars"
	TruncateTokens = "tokens"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Log      LogConfig      `toml:"log"`
	LLM      LLMConfig      `toml:"llm"`
	Storage  StorageConfig  `toml:"storage"`
	MySQL    MySQLConfig    `toml:"mysql"`
	Postgres PostgresConfig `toml:"postgres"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type LLMConfig struct {
	APIType       string `toml:"api_type"`
	APIVersion    string `toml:"api_version"`
	BaseURL       string `toml:"base_url"`
	APIKey        string `toml:"api_key"`
	Model         string `toml:"model"`
	MaxTokens     int    `toml:"max_tokens"`
	TruncateMode  string `toml:"truncate_mode"`
	AutoSummarize bool   `toml:"auto_summarize"`
}

type StorageConfig struct {
	Driver string `toml:"driver"`
}

type MySQLConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DB       string `toml:"db"`
	Params   string `toml:"params"`
}

type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

type RabbitMQConfig struct {
	URL        string `toml:"url"`
	UsageQueue string `toml:"usage_queue"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMySQL, StoragePostgres, StorageSQLite, StorageRedis:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	switch c.LLM.TruncateMode {
	case TruncateChars, TruncateTokens:
	default:
		return fmt.Errorf("unsupported truncate mode %q", c.LLM.TruncateMode)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	return nil
}

// Relational reports whether the configured storage driver is a SQL database.
func (c *Config) Relational() bool {
	return c.Storage.Driver != StorageRedis
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.MySQL.User,
		c.MySQL.Password,
		c.MySQL.Host,
		c.MySQL.Port,
		c.MySQL.DB,
		c.MySQL.Params,
	)
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "gopherai-chat",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8080,
			GinMode: "debug",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		LLM: LLMConfig{
			APIType:       "openai",
			BaseURL:       "https://api.openai.com/v1",
			Model:         "gpt-3.5-turbo",
			MaxTokens:     4000,
			TruncateMode:  TruncateChars,
			AutoSummarize: true,
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
		},
		MySQL: MySQLConfig{
			Host:   "127.0.0.1",
			Port:   3306,
			User:   "root",
			DB:     "gopherai_chat",
			Params: "parseTime=true&loc=UTC&charset=utf8mb4",
		},
		Postgres: PostgresConfig{
			DSN: "host=127.0.0.1 user=postgres dbname=gopherai_chat port=5432 sslmode=disable TimeZone=UTC",
		},
		SQLite: SQLiteConfig{
			Path: "data/chat.db",
		},
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			KeyPrefix: "chat",
		},
		RabbitMQ: RabbitMQConfig{
			UsageQueue: "chat.token.usage",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.LLM.APIType = getEnv("LLM_API_TYPE", cfg.LLM.APIType)
	cfg.LLM.APIVersion = getEnv("LLM_API_VERSION", cfg.LLM.APIVersion)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.MaxTokens = getEnvAsInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.TruncateMode = getEnv("LLM_TRUNCATE_MODE", cfg.LLM.TruncateMode)
	cfg.LLM.AutoSummarize = getEnvAsBool("LLM_AUTO_SUMMARIZE", cfg.LLM.AutoSummarize)

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)

	cfg.MySQL.Host = getEnv("MYSQL_HOST", cfg.MySQL.Host)
	cfg.MySQL.Port = getEnvAsInt("MYSQL_PORT", cfg.MySQL.Port)
	cfg.MySQL.User = getEnv("MYSQL_USER", cfg.MySQL.User)
	cfg.MySQL.Password = getEnv("MYSQL_PASSWORD", cfg.MySQL.Password)
	cfg.MySQL.DB = getEnv("MYSQL_DB", cfg.MySQL.DB)
	cfg.MySQL.Params = getEnv("MYSQL_PARAMS", cfg.MySQL.Params)

	cfg.Postgres.DSN = getEnv("POSTGRES_DSN", cfg.Postgres.DSN)
	cfg.SQLite.Path = getEnv("SQLITE_PATH", cfg.SQLite.Path)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", cfg.Redis.KeyPrefix)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.UsageQueue = getEnv("RABBITMQ_USAGE_QUEUE", cfg.RabbitMQ.UsageQueue)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
