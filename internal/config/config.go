package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SHIFTOPT_SOLVER_BACKEND
const EnvPrefix = "SHIFTOPT_"

// ErrConfigNotFound is returned by findConfigFile when no config file exists
var ErrConfigNotFound = errors.New("config file not found in current directory or home directory")

// SolverConfig selects and configures the ILP backend
type SolverConfig struct {
	Backend   string        `yaml:"backend" env:"BACKEND" validate:"required,oneof=glpk cbc remote amqp"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gt=0"`
	CBCPath   string        `yaml:"cbcPath" env:"CBC_PATH" validate:"required_if=Backend cbc"`
	RemoteURL string        `yaml:"remoteURL" env:"REMOTE_URL" validate:"required_if=Backend remote,omitempty,url"`
	AMQPURL   string        `yaml:"amqpURL" env:"AMQP_URL" validate:"required_if=Backend amqp,omitempty,url"`
	Queue     string        `yaml:"queue" env:"QUEUE" validate:"required"`
}

// RedisConfig configures the shared intensity cache
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR" validate:"required"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB" validate:"gte=0"`
	Prefix   string `yaml:"prefix" env:"PREFIX" validate:"required"`
}

// CacheConfig selects where intensity results are memoised
type CacheConfig struct {
	Backend string      `yaml:"backend" env:"BACKEND" validate:"required,oneof=memory redis"`
	Redis   RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"readTimeout" env:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" env:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// DatabaseConfig is optional; without a URL runs are kept in memory
type DatabaseConfig struct {
	URL string `yaml:"url" env:"URL"`
}

// LegacyConfig points at a remote optimiser speaking the optimizeShift protocol
type LegacyConfig struct {
	URL     string        `yaml:"url" env:"URL" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gt=0"`
}

// IntensityConfig lists the rest-time candidates explored per parameter set
type IntensityConfig struct {
	Candidates []int `yaml:"candidates" env:"CANDIDATES" envSeparator:"," validate:"min=1,dive,gte=0"`
}

// Config represents the application configuration
type Config struct {
	Env       string          `yaml:"env" env:"ENV" validate:"required"`
	LogLevel  string          `yaml:"logLevel" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Solver    SolverConfig    `yaml:"solver" envPrefix:"SOLVER_"`
	Cache     CacheConfig     `yaml:"cache" envPrefix:"CACHE_"`
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DATABASE_"`
	Legacy    LegacyConfig    `yaml:"legacy" envPrefix:"LEGACY_"`
	Intensity IntensityConfig `yaml:"intensity" envPrefix:"INTENSITY_"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the configuration used when no file sets a value
func Default() *Config {
	return &Config{
		Env:      "dev",
		LogLevel: "info",
		Solver: SolverConfig{
			Backend: "glpk",
			Timeout: 30 * time.Second,
			CBCPath: "cbc",
			Queue:   "shift-optimizer.solve",
		},
		Cache: CacheConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "shiftopt:intensity:",
			},
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Legacy: LegacyConfig{
			Timeout: 3 * time.Second,
		},
		Intensity: IntensityConfig{
			Candidates: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	}
}

// Load loads and validates the configuration for env. It looks for
// shift_optimizer.<env>.yaml then shift_optimizer.yaml in the current directory,
// then the user's home directory. Without a file the defaults are used.
// Environment variables override file values in every case.
func Load(envName string) (*Config, error) {
	configPath, err := findConfigFile(envName)
	if errors.Is(err, ErrConfigNotFound) {
		cfg := Default()
		if envName != "" {
			cfg.Env = envName
		}
		return finish(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// findConfigFile searches the current directory and then the home directory
func findConfigFile(envName string) (string, error) {
	var names []string
	if envName != "" {
		names = append(names, fmt.Sprintf("shift_optimizer.%s.yaml", envName))
	}
	names = append(names, "shift_optimizer.yaml")

	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, name := range names {
		homeConfigPath := filepath.Join(homeDir, name)
		if _, err := os.Stat(homeConfigPath); err == nil {
			return homeConfigPath, nil
		}
	}

	return "", ErrConfigNotFound
}
