// Package config loads goalmesh runtime configuration from YAML files and
// environment variables. File values override defaults; environment
// variables override both.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/goalmesh/logging"
)

// Memory driver names accepted by Config.Memory.Driver.
const (
	MemoryDriverInMemory = "memory"
	MemoryDriverSQLite   = "sqlite"
	MemoryDriverRedis    = "redis"
)

// Model provider names accepted by Config.Model.Provider.
const (
	ModelProviderNone      = "none"
	ModelProviderOpenAI    = "openai"
	ModelProviderAnthropic = "anthropic"
)

// Config is the root configuration document.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Memory   MemoryConfig   `yaml:"memory"`
	Model    ModelConfig    `yaml:"model"`
	Executor ExecutorConfig `yaml:"executor"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Logger builds a structured logger from the logging section.
func (c LoggingConfig) Logger() *logging.GoalMeshLogger {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = parseLevel(c.Level)
	cfg.Format = c.Format
	return logging.NewLogger(cfg)
}

func parseLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}

// MemoryConfig selects and parameterizes the memory backend.
type MemoryConfig struct {
	// Driver is memory, sqlite or redis.
	Driver string `yaml:"driver"`
	// Path is the SQLite database file; ":memory:" keeps it in process.
	Path string `yaml:"path"`
	// RedisURL is a redis:// connection URL for the redis driver.
	RedisURL string `yaml:"redis_url"`
}

// ModelConfig selects and parameterizes the planning model. With provider
// none the planner relies on its rule-based fallback only.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	// APIKey is usually left empty here and supplied via the provider's own
	// environment variable instead.
	APIKey string `yaml:"api_key"`
}

// ExecutorConfig tunes step execution.
type ExecutorConfig struct {
	Retries     int           `yaml:"retries"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	Simulate    bool          `yaml:"simulate"`
}

// UnmarshalYAML accepts the timeout as a Go duration string ("30s", "1m")
// since the yaml package has no native time.Duration support. Absent keys
// keep their current values.
func (e *ExecutorConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		Retries     int    `yaml:"retries"`
		Timeout     string `yaml:"timeout"`
		Concurrency int    `yaml:"concurrency"`
		Simulate    bool   `yaml:"simulate"`
	}{
		Retries:     e.Retries,
		Timeout:     e.Timeout.String(),
		Concurrency: e.Concurrency,
		Simulate:    e.Simulate,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	timeout, err := time.ParseDuration(raw.Timeout)
	if err != nil {
		return fmt.Errorf("invalid executor timeout %q: %w", raw.Timeout, err)
	}

	e.Retries = raw.Retries
	e.Timeout = timeout
	e.Concurrency = raw.Concurrency
	e.Simulate = raw.Simulate
	return nil
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Memory: MemoryConfig{
			Driver: MemoryDriverInMemory,
			Path:   ":memory:",
		},
		Model: ModelConfig{
			Provider:    ModelProviderNone,
			Temperature: 0.7,
		},
		Executor: ExecutorConfig{
			Retries:     3,
			Timeout:     30 * time.Second,
			Concurrency: 3,
		},
	}
}

// LoadFile reads a YAML file on top of the defaults, applies environment
// overrides and validates the result. A missing file is not an error; the
// defaults plus environment apply.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load is LoadFile with the path taken from GOALMESH_CONFIG.
func Load() (Config, error) {
	return LoadFile(os.Getenv("GOALMESH_CONFIG"))
}

// applyEnv overlays GOALMESH_* environment variables onto the config.
func (c *Config) applyEnv() {
	setString(&c.Logging.Level, "GOALMESH_LOG_LEVEL")
	setString(&c.Logging.Format, "GOALMESH_LOG_FORMAT")
	setString(&c.Memory.Driver, "GOALMESH_MEMORY_DRIVER")
	setString(&c.Memory.Path, "GOALMESH_MEMORY_PATH")
	setString(&c.Memory.RedisURL, "GOALMESH_REDIS_URL")
	setString(&c.Model.Provider, "GOALMESH_MODEL_PROVIDER")
	setString(&c.Model.Name, "GOALMESH_MODEL_NAME")
	setString(&c.Model.APIKey, "GOALMESH_MODEL_API_KEY")
	setInt(&c.Executor.Retries, "GOALMESH_EXECUTOR_RETRIES")
	setInt(&c.Executor.Concurrency, "GOALMESH_EXECUTOR_CONCURRENCY")
	setBool(&c.Executor.Simulate, "GOALMESH_EXECUTOR_SIMULATE")
	setDuration(&c.Executor.Timeout, "GOALMESH_EXECUTOR_TIMEOUT")
}

// Validate reports the first invalid field, if any.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}

	switch c.Memory.Driver {
	case MemoryDriverInMemory:
	case MemoryDriverSQLite:
		if c.Memory.Path == "" {
			return fmt.Errorf("memory driver sqlite requires a path")
		}
	case MemoryDriverRedis:
		if c.Memory.RedisURL == "" {
			return fmt.Errorf("memory driver redis requires a redis_url")
		}
	default:
		return fmt.Errorf("invalid memory driver %q", c.Memory.Driver)
	}

	switch c.Model.Provider {
	case ModelProviderNone, ModelProviderOpenAI, ModelProviderAnthropic:
	default:
		return fmt.Errorf("invalid model provider %q", c.Model.Provider)
	}

	if c.Executor.Retries < 1 {
		return fmt.Errorf("executor retries must be at least 1, got %d", c.Executor.Retries)
	}
	if c.Executor.Timeout <= 0 {
		return fmt.Errorf("executor timeout must be positive, got %s", c.Executor.Timeout)
	}
	if c.Executor.Concurrency < 1 {
		return fmt.Errorf("executor concurrency must be at least 1, got %d", c.Executor.Concurrency)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
