package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
)

// Config represents the neogm configuration
type Config struct {
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	Mapping   MappingConfig   `mapstructure:"mapping"`
	Log       LogConfig       `mapstructure:"log"`
	Schema    SchemaConfig    `mapstructure:"schema"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// Neo4jConfig represents the connection settings
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// MappingConfig represents hydration and naming settings
type MappingConfig struct {
	DatabaseCase   string `mapstructure:"database_case"`
	CodeCase       string `mapstructure:"code_case"`
	AcceptBigInt   bool   `mapstructure:"accept_big_int"`
	PartialResults bool   `mapstructure:"partial_results"`
	MaxDepth       int    `mapstructure:"max_depth"`
}

// LogConfig represents logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// SchemaConfig lists the schema definition files
type SchemaConfig struct {
	Files []string `mapstructure:"files"`
}

// TelemetryConfig represents tracing export settings. An empty endpoint
// disables export.
type TelemetryConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

// FileName is the configuration file name without extension
const FileName = "neogm"

// EnvPrefix prefixes every environment override, e.g. NEOGM_NEO4J_URI
const EnvPrefix = "NEOGM"

// Load loads the configuration from neogm.yml or neogm.yaml in the current
// directory
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads the configuration from path, or searches the current
// directory when path is empty
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("mapping.database_case", "")
	v.SetDefault("mapping.code_case", "")
	v.SetDefault("mapping.accept_big_int", false)
	v.SetDefault("mapping.partial_results", false)
	v.SetDefault("mapping.max_depth", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("schema.files", []string{})
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service", "neogm")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Translator returns the naming translator the mapping settings describe, or
// nil when field names are used as property keys unchanged
func (c *Config) Translator() (mapping.Translator, error) {
	if c.Mapping.DatabaseCase == "" && c.Mapping.CodeCase == "" {
		return nil, nil
	}
	return mapping.CaseTranslator(c.Mapping.DatabaseCase, c.Mapping.CodeCase)
}

// FindConfigFile walks up from the working directory looking for neogm.yml
// or neogm.yaml
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yml", ".yaml"} {
			candidate := filepath.Join(dir, FileName+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yml found in this directory or any parent", FileName)
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	// naming conventions come as a pair
	if (cfg.Mapping.DatabaseCase == "") != (cfg.Mapping.CodeCase == "") {
		return fmt.Errorf("mapping.database_case and mapping.code_case must be set together")
	}
	if cfg.Mapping.DatabaseCase != "" {
		if _, err := cfg.Translator(); err != nil {
			return fmt.Errorf("mapping: %w (known: %s)", err, strings.Join(mapping.Conventions(), ", "))
		}
	}

	if cfg.Mapping.MaxDepth < 1 {
		return fmt.Errorf("mapping.max_depth must be at least 1, got: %d", cfg.Mapping.MaxDepth)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", cfg.Log.Level)
	}

	if cfg.Neo4j.URI != "" && !strings.Contains(cfg.Neo4j.URI, "://") {
		return fmt.Errorf("neo4j.uri must include a scheme such as neo4j:// or bolt://, got: %s", cfg.Neo4j.URI)
	}
	return nil
}
