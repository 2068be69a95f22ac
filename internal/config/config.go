// Package config loads the bluegreen configuration from bluegreen.yaml,
// optional .env files and BLUEGREEN_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	envparse "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/priming"
)

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "bluegreen.yaml"

// Supported store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSSM    = "ssm"
)

// Config is the full tool configuration.
type Config struct {
	// Key is the well-known key of the rotation record.
	Key string `yaml:"key" env:"BLUEGREEN_STATE_KEY"`
	// Service is the base name of the slot services; slots become <service>-blue and <service>-green.
	Service string `yaml:"service" env:"BLUEGREEN_SERVICE"`
	// Image is the image reference template; "{version}" is replaced with the slot version.
	Image string `yaml:"image" env:"BLUEGREEN_IMAGE"`
	// Hook is a command run once per slot after its manifest is rendered, e.g. ["./deploy.sh", "--apply"].
	// It receives BLUEGREEN_SLOT, BLUEGREEN_VERSION, BLUEGREEN_SERVICE and BLUEGREEN_IMAGE.
	Hook []string `yaml:"hook" env:"BLUEGREEN_HOOK" envSeparator:" "`
	// Policy is the priming policy for an unreachable store (strict or lenient).
	Policy string `yaml:"policy" env:"BLUEGREEN_POLICY"`
	// CompareAndSwap rejects commits when the record changed since priming.
	CompareAndSwap bool `yaml:"compareAndSwap" env:"BLUEGREEN_COMPARE_AND_SWAP"`
	// Timeout bounds the retrieval call during priming. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout" env:"BLUEGREEN_TIMEOUT"`
	// Override is a JSON rotation record used instead of fetching from the store.
	Override string `yaml:"override" env:"BLUEGREEN_STATE_OVERRIDE"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel" env:"BLUEGREEN_LOG_LEVEL"`
	// LogFormat is text or json.
	LogFormat string `yaml:"logFormat" env:"BLUEGREEN_LOG_FORMAT"`
	// Store selects and configures the state backend.
	Store StoreConfig `yaml:"store"`
	// Lock configures run serialization.
	Lock LockConfig `yaml:"lock"`
}

// StoreConfig selects the backend. Options are backend specific and decoded with DecodeOptions.
type StoreConfig struct {
	Backend string         `yaml:"backend" env:"BLUEGREEN_BACKEND"`
	Options map[string]any `yaml:"options"`
}

// LockConfig configures the distributed lock held for the duration of a run.
type LockConfig struct {
	Enabled bool          `yaml:"enabled" env:"BLUEGREEN_LOCK"`
	TTL     time.Duration `yaml:"ttl" env:"BLUEGREEN_LOCK_TTL"`
}

// FileOptions configures the file backend.
type FileOptions struct {
	Dir string `mapstructure:"dir"`
}

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// SSMOptions configures the ssm backend.
type SSMOptions struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
	Prefix  string `mapstructure:"prefix"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Key:            domain.DefaultStateKey,
		Service:        "app",
		Image:          "app:{version}",
		Policy:         priming.PolicyStrict.String(),
		CompareAndSwap: true,
		LogLevel:       "info",
		LogFormat:      "text",
		Store: StoreConfig{
			Backend: BackendFile,
			Options: map[string]any{},
		},
		Lock: LockConfig{
			TTL: 5 * time.Minute,
		},
	}
}

// Load reads the configuration.
// A missing file is an error only when required is set (an explicit --config).
func Load(path string, required bool, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %q: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	if err := envparse.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse BLUEGREEN_* environment: %w", err)
	}

	if cfg.Store.Options == nil {
		cfg.Store.Options = map[string]any{}
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for unsupported values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("key must not be empty")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSSM:
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}
	if _, err := priming.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if c.Override != "" {
		if _, err := c.OverrideState(); err != nil {
			return err
		}
	}
	return nil
}

// PrimingPolicy returns the parsed priming policy.
func (c *Config) PrimingPolicy() priming.Policy {
	p, _ := priming.ParsePolicy(c.Policy)
	return p
}

// OverrideState parses Override. It returns nil when no override is set.
func (c *Config) OverrideState() (*domain.RotationState, error) {
	if strings.TrimSpace(c.Override) == "" {
		return nil, nil
	}
	state, err := domain.DecodeState([]byte(c.Override))
	if err != nil {
		return nil, fmt.Errorf("state override: %w", err)
	}
	return &state, nil
}

// SetOption sets a single backend option from a "name=value" pair.
func (s *StoreConfig) SetOption(pair string) error {
	name, value, ok := strings.Cut(pair, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("store option %q must be name=value", pair)
	}
	if s.Options == nil {
		s.Options = map[string]any{}
	}
	s.Options[strings.TrimSpace(name)] = value
	return nil
}

// DecodeOptions decodes the backend options into target (e.g. *RedisOptions).
// String values are converted to the target field types.
func (s StoreConfig) DecodeOptions(target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(s.Options); err != nil {
		return fmt.Errorf("decode %s store options: %w", s.Backend, err)
	}
	return nil
}
