package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SCHEDULER"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the persistence backend for the event repository.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // file | postgres | memory
	Path   string `mapstructure:"path"`
}

type ScannerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Window   time.Duration `mapstructure:"window"`
}

type QueueConfig struct {
	Driver string `mapstructure:"driver"` // memory | redis
	Buffer int    `mapstructure:"buffer"`
	Stream string `mapstructure:"stream"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads defaults, then the optional YAML file, then SCHEDULER_* environment variables.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error loading configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "127.0.0.1:0",
			Mode:            "test",
			ShutdownTimeout: time.Second,
		},
		Store: StoreConfig{
			Driver: "file",
			Path:   "events_test.json",
		},
		Scanner: ScannerConfig{
			Enabled:  true,
			Interval: time.Minute,
			Window:   time.Hour,
		},
		Queue: QueueConfig{
			Driver: "memory",
			Buffer: 10,
			Stream: "events:alerts:test",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5433", // test database runs on 5433
			User:     "postgres",
			Password: "postgres",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     "6380", // test redis runs on 6380
			Password: "",
			DB:       1,
		},
		Log: LogConfig{Level: "debug"},
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "file":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the file driver")
		}
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Queue.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown queue.driver %q", c.Queue.Driver)
	}

	if c.Scanner.Interval <= 0 {
		return errors.New("scanner.interval must be positive")
	}
	if c.Scanner.Window <= 0 {
		return errors.New("scanner.window must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "events.json")

	v.SetDefault("scanner.enabled", true)
	v.SetDefault("scanner.interval", "60s")
	v.SetDefault("scanner.window", "60m")

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.buffer", 100)
	v.SetDefault("queue.stream", "events:alerts")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "postgres")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
}
