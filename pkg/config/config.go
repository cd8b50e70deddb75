// Package config loads the store's configuration from a YAML file (via
// Viper) with documented defaults, the same layered approach the
// retrieved assistant product used for its own config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the complete store configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Search  SearchConfig  `mapstructure:"search"`
	RestAPI RestAPIConfig `mapstructure:"rest_api"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig holds the options recognized at store-creation time.
type StoreConfig struct {
	Path              string `mapstructure:"path"`
	VectorDimension   int    `mapstructure:"vector_dimension"`
	MaxANNCandidates  int    `mapstructure:"max_ann_candidates"`
	DefaultBatchSize  int    `mapstructure:"default_batch_size"`
	MaxTraversalDepth int    `mapstructure:"max_traversal_depth"`
}

// SearchConfig holds the default per-query hybrid search weights and
// bounds; any field may be overridden by a caller-supplied query config.
type SearchConfig struct {
	SemanticWeight         float64 `mapstructure:"semantic_weight"`
	StructuralWeight       float64 `mapstructure:"structural_weight"`
	TemporalWeight         float64 `mapstructure:"temporal_weight"`
	MaxResults             int     `mapstructure:"max_results"`
	MinSimilarityThreshold float64 `mapstructure:"min_similarity_threshold"`
	EnableCrossModal       bool    `mapstructure:"enable_cross_modal"`
	SearchTimeoutMS        int     `mapstructure:"search_timeout_ms"`
}

// RestAPIConfig holds the optional HTTP surface over the store facade.
type RestAPIConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	AutoPort bool   `mapstructure:"auto_port"`
	CORS     bool   `mapstructure:"cors"`
	APIKey   string `mapstructure:"api_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// DefaultConfig returns configuration with the store's documented
// defaults (spec.md §6).
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	configDir := filepath.Join(homeDir, ".docstore")

	return &Config{
		Store: StoreConfig{
			Path:              filepath.Join(configDir, "data"),
			VectorDimension:   384,
			MaxANNCandidates:  10000,
			DefaultBatchSize:  1000,
			MaxTraversalDepth: 1024,
		},
		Search: SearchConfig{
			SemanticWeight:         0.6,
			StructuralWeight:       0.2,
			TemporalWeight:         0.2,
			MaxResults:             20,
			MinSimilarityThreshold: 0.0,
			EnableCrossModal:       false,
			SearchTimeoutMS:        2000,
		},
		RestAPI: RestAPIConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     8085,
			AutoPort: true,
			CORS:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file with fallback to defaults.
// With an explicit path it reads only that file; otherwise it searches,
// in order: ./config.yaml, ~/.docstore/config.yaml, /etc/docstore/config.yaml.
func Load(path ...string) (*Config, error) {
	v := viper.New()

	if len(path) > 0 && path[0] != "" {
		v.SetConfigFile(path[0])
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".docstore"))
		v.AddConfigPath("/etc/docstore")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()
	configDir := filepath.Join(homeDir, ".docstore")

	v.SetDefault("store.path", filepath.Join(configDir, "data"))
	v.SetDefault("store.vector_dimension", 384)
	v.SetDefault("store.max_ann_candidates", 10000)
	v.SetDefault("store.default_batch_size", 1000)
	v.SetDefault("store.max_traversal_depth", 1024)

	v.SetDefault("search.semantic_weight", 0.6)
	v.SetDefault("search.structural_weight", 0.2)
	v.SetDefault("search.temporal_weight", 0.2)
	v.SetDefault("search.max_results", 20)
	v.SetDefault("search.min_similarity_threshold", 0.0)
	v.SetDefault("search.enable_cross_modal", false)
	v.SetDefault("search.search_timeout_ms", 2000)

	v.SetDefault("rest_api.enabled", false)
	v.SetDefault("rest_api.host", "localhost")
	v.SetDefault("rest_api.port", 8085)
	v.SetDefault("rest_api.auto_port", true)
	v.SetDefault("rest_api.cors", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Store.VectorDimension <= 0 {
		return fmt.Errorf("store.vector_dimension must be > 0")
	}
	if c.Store.MaxANNCandidates <= 0 {
		return fmt.Errorf("store.max_ann_candidates must be > 0")
	}
	if c.Store.DefaultBatchSize <= 0 {
		return fmt.Errorf("store.default_batch_size must be > 0")
	}

	if err := validWeight("search.semantic_weight", c.Search.SemanticWeight); err != nil {
		return err
	}
	if err := validWeight("search.structural_weight", c.Search.StructuralWeight); err != nil {
		return err
	}
	if err := validWeight("search.temporal_weight", c.Search.TemporalWeight); err != nil {
		return err
	}
	if err := validWeight("search.min_similarity_threshold", c.Search.MinSimilarityThreshold); err != nil {
		return err
	}

	if c.RestAPI.Enabled && c.RestAPI.Port <= 0 {
		return fmt.Errorf("rest_api.port must be > 0 when rest_api.enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	return nil
}

func validWeight(name string, w float64) error {
	if w < 0 || w > 1 {
		return fmt.Errorf("%s must be in [0,1], got %v", name, w)
	}
	return nil
}

// EnsureStoreDir creates the store's directory if it doesn't exist.
func (c *Config) EnsureStoreDir() error {
	if err := os.MkdirAll(c.Store.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// ConfigPath returns the path to the configuration directory.
func ConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".docstore")
}
