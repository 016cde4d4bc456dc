// Package config loads runtime settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
	SessionMongo  = "mongo"
)

type Config struct {
	HTTPPort       string        `yaml:"http_port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	AdminIDs   []int64 `yaml:"admin_ids"`
	AdminPhone string  `yaml:"admin_phone"`

	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Delivery DeliveryConfig `yaml:"delivery"`

	KafkaBrokers []string `yaml:"kafka_brokers"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

type DatabaseConfig struct {
	Driver         string `yaml:"driver"`
	Path           string `yaml:"path"`
	Host           string `yaml:"host"`
	Port           string `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	MigrationsPath string `yaml:"migrations_path"`
}

type SessionConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	MongoURI      string        `yaml:"mongo_uri"`
	MongoDBName   string        `yaml:"mongo_db_name"`
}

type DeliveryConfig struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	BroadcastRate float64       `yaml:"broadcast_rate"`
}

func Default() *Config {
	return &Config{
		HTTPPort:       "8080",
		RequestTimeout: 30 * time.Second,
		Database: DatabaseConfig{
			Driver:         "sqlite",
			Path:           "shopbot.db",
			Host:           "localhost",
			Port:           "5432",
			User:           "postgres",
			Name:           "shopbot",
			MigrationsPath: "internal/repository/migrations",
		},
		Session: SessionConfig{
			Backend:     SessionMemory,
			TTL:         24 * time.Hour,
			RedisAddr:   "localhost:6379",
			MongoURI:    "mongodb://localhost:27017",
			MongoDBName: "shopbot",
		},
		Delivery: DeliveryConfig{
			Timeout:       5 * time.Second,
			BroadcastRate: 20,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an
// error; environment variables win over both.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.AdminPhone = getEnv("ADMIN_PHONE", c.AdminPhone)

	if v := os.Getenv("ADMIN_IDS"); v != "" {
		ids, err := ParseAdminIDs(v)
		if err != nil {
			return err
		}
		c.AdminIDs = ids
	}

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.MigrationsPath = getEnv("MIGRATIONS_PATH", c.Database.MigrationsPath)

	c.Session.Backend = getEnv("SESSION_BACKEND", c.Session.Backend)
	c.Session.RedisAddr = getEnv("REDIS_ADDR", c.Session.RedisAddr)
	c.Session.RedisPassword = getEnv("REDIS_PASSWORD", c.Session.RedisPassword)
	c.Session.MongoURI = getEnv("MONGO_URI", c.Session.MongoURI)
	c.Session.MongoDBName = getEnv("MONGO_DB_NAME", c.Session.MongoDBName)

	c.Delivery.URL = getEnv("DELIVERY_URL", c.Delivery.URL)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitList(v)
	}

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	var err error
	if c.Session.TTL, err = getDuration("SESSION_TTL", c.Session.TTL); err != nil {
		return err
	}
	if c.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if v := os.Getenv("BROADCAST_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BROADCAST_RATE: %w", err)
		}
		c.Delivery.BroadcastRate = rate
	}
	return nil
}

// Validate reports settings the process cannot start with.
func (c *Config) Validate() error {
	if len(c.AdminIDs) == 0 {
		return errors.New("ADMIN_IDS must list at least one administrator")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Session.Backend {
	case SessionMemory, SessionRedis, SessionMongo:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.Session.Backend)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// ParseAdminIDs reads a comma-separated list of positive user ids.
func ParseAdminIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("ADMIN_IDS: invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
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

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
