package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/onisimchukv/ksql/internal/log"
)

// EnvPrefix prefixes the environment variables that override file settings,
// e.g. KSQL_CLIENT_EXECUTE_QUERY_MAX_RESULT_ROWS.
const EnvPrefix = "KSQL"

// Config represents the complete tool configuration.
type Config struct {
	// Logging configuration
	Log log.Config `json:"log" mapstructure:"log"`

	// Planner configuration
	Planner PlannerConfig `json:"planner" mapstructure:"planner"`

	// Client configuration
	Client ClientConfig `json:"client" mapstructure:"client"`
}

// PlannerConfig represents type system and planning configuration.
type PlannerConfig struct {
	// Reject STRUCT values carrying fields their type does not declare.
	StrictStructValidation bool `json:"strict_struct_validation" mapstructure:"strict_struct_validation"`

	// How long parsed type strings stay cached. Zero keeps them forever.
	TypeCacheTTL time.Duration `json:"type_cache_ttl" mapstructure:"type_cache_ttl"`
}

// ClientConfig represents query result decoding configuration.
type ClientConfig struct {
	ExecuteQueryMaxResultRows int `json:"execute_query_max_result_rows" mapstructure:"execute_query_max_result_rows"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: log.DefaultConfig(),
		Planner: PlannerConfig{
			StrictStructValidation: false,
			TypeCacheTTL:           0,
		},
		Client: ClientConfig{
			ExecuteQueryMaxResultRows: 10000,
		},
	}
}

// Load reads the configuration from path, if set, on top of the defaults.
// Environment variables prefixed with KSQL_ take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key, which also makes each one visible to
// AutomaticEnv when unmarshalling.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.add_source", cfg.Log.AddSource)
	v.SetDefault("planner.strict_struct_validation", cfg.Planner.StrictStructValidation)
	v.SetDefault("planner.type_cache_ttl", cfg.Planner.TypeCacheTTL)
	v.SetDefault("client.execute_query_max_result_rows", cfg.Client.ExecuteQueryMaxResultRows)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Validate log level
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
		// Valid
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
		// Valid
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if c.Planner.TypeCacheTTL < 0 {
		return fmt.Errorf("type cache TTL cannot be negative")
	}

	if c.Client.ExecuteQueryMaxResultRows < 1 {
		return fmt.Errorf("execute query max result rows must be at least 1")
	}

	return nil
}
