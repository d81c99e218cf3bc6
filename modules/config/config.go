package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Deepreo/gorev/modules/queue"
	"github.com/Deepreo/gorev/modules/servers"
	"github.com/spf13/viper"
)

const (
	BackendInMemory = "inmemory"
	BackendGocron   = "gocron"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type SchedulerConfig struct {
	// Backend selects the scheduler implementation: inmemory or gocron.
	Backend string `mapstructure:"backend"`
	// DrainInterval is the wait between automatic queue drains. Zero disables
	// the built-in drain task.
	DrainInterval time.Duration `mapstructure:"drain_interval"`
}

type QueueConfig struct {
	// Backend selects the queue implementation: inmemory, redis or postgres.
	Backend  string               `mapstructure:"backend"`
	Redis    queue.RedisConfig    `mapstructure:"redis"`
	Postgres queue.PostgresConfig `mapstructure:"postgres"`
}

type ServerConfig struct {
	Enabled bool                     `mapstructure:"enabled"`
	Http    servers.HttpServerConfig `mapstructure:"http"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// Load reads configuration from the given file (yaml) and the GOREV_*
// environment variables, environment taking precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("GOREV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; unmarshal cannot fail on them.
		panic(err)
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.backend", BackendInMemory)
	v.SetDefault("scheduler.drain_interval", "30s")
	v.SetDefault("queue.backend", BackendInMemory)
	v.SetDefault("queue.redis.prefix", "gorev:")
	v.SetDefault("queue.postgres.sslmode", "disable")
	v.SetDefault("server.enabled", false)
	v.SetDefault("log.level", "info")
}

func (c *Config) Validate() error {
	switch c.Scheduler.Backend {
	case BackendInMemory, BackendGocron:
	default:
		return fmt.Errorf("unknown scheduler backend: %s", c.Scheduler.Backend)
	}
	switch c.Queue.Backend {
	case BackendInMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown queue backend: %s", c.Queue.Backend)
	}
	if c.Scheduler.DrainInterval < 0 {
		return fmt.Errorf("drain_interval must be >= 0")
	}
	return nil
}
