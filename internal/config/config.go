package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "taskhub.yaml"

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverCache  = "ristretto"
	DriverNATS   = "nats"
)

type Config struct {
	Session  string         `yaml:"session"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`
}

type StorageConfig struct {
	Driver     string        `yaml:"driver"`
	SQLitePath string        `yaml:"sqlite_path"`
	CacheBytes int64         `yaml:"cache_bytes"`
	TTL        time.Duration `yaml:"ttl"`
	NATSURL    string        `yaml:"nats_url"`
	NATSBucket string        `yaml:"nats_bucket"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	Debug bool   `yaml:"debug"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Defaults() Config {
	return Config{
		Session: "default",
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			SQLitePath: "data/taskhub.db",
			CacheBytes: 8 << 20,
			TTL:        12 * time.Hour,
			NATSURL:    "nats://127.0.0.1:4222",
			NATSBucket: "taskhub_sessions",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom is Load with an explicit YAML path. The file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	setString(&cfg.Session, "TASKHUB_SESSION")
	setString(&cfg.Storage.Driver, "TASKHUB_STORAGE")
	setString(&cfg.Storage.SQLitePath, "TASKHUB_SQLITE_PATH")
	setString(&cfg.Storage.NATSURL, "NATS_URL")
	setString(&cfg.Storage.NATSBucket, "TASKHUB_NATS_BUCKET")
	setString(&cfg.HTTP.Addr, "TASKHUB_ADDR")
	setString(&cfg.Telegram.Token, "TASKHUB_TELEGRAM_TOKEN")
	setString(&cfg.Log.Level, "TASKHUB_LOG_LEVEL")

	if err := setInt64(&cfg.Storage.CacheBytes, "TASKHUB_CACHE_BYTES"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Storage.TTL, "TASKHUB_STORAGE_TTL"); err != nil {
		return err
	}
	return setDuration(&cfg.HTTP.ShutdownTimeout, "TASKHUB_SHUTDOWN_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

var sessionName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidSession reports whether name can be used as a session key prefix.
func ValidSession(name string) bool {
	return sessionName.MatchString(name)
}

func validate(cfg *Config) error {
	if !ValidSession(cfg.Session) {
		return fmt.Errorf("session %q: only letters, digits, '-' and '_' are allowed", cfg.Session)
	}

	switch cfg.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if cfg.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverCache:
		if cfg.Storage.CacheBytes <= 0 {
			return errors.New("storage.cache_bytes must be positive")
		}
	case DriverNATS:
		if cfg.Storage.NATSURL == "" || cfg.Storage.NATSBucket == "" {
			return errors.New("storage.nats_url and storage.nats_bucket are required for the nats driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Storage.TTL < 0 {
		return errors.New("storage.ttl must not be negative")
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		return errors.New("http.shutdown_timeout must be positive")
	}
	return nil
}
