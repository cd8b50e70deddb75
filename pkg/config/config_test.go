package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Store.VectorDimension != 384 {
		t.Errorf("expected VectorDimension=384, got %d", cfg.Store.VectorDimension)
	}
	if cfg.Store.MaxANNCandidates != 10000 {
		t.Errorf("expected MaxANNCandidates=10000, got %d", cfg.Store.MaxANNCandidates)
	}

	if cfg.Search.SemanticWeight != 0.6 {
		t.Errorf("expected SemanticWeight=0.6, got %v", cfg.Search.SemanticWeight)
	}
	if cfg.Search.MaxResults != 20 {
		t.Errorf("expected MaxResults=20, got %d", cfg.Search.MaxResults)
	}

	if cfg.RestAPI.Enabled {
		t.Error("expected RestAPI.Enabled=false by default")
	}
	if cfg.RestAPI.Port != 8085 {
		t.Errorf("expected Port=8085, got %d", cfg.RestAPI.Port)
	}
	if cfg.RestAPI.Host != "localhost" {
		t.Errorf("expected Host=localhost, got %s", cfg.RestAPI.Host)
	}
	if !cfg.RestAPI.CORS {
		t.Error("expected CORS=true")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected Level=info, got %s", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		expectErr bool
	}{
		{name: "valid config", modify: func(c *Config) {}, expectErr: false},
		{name: "empty store path", modify: func(c *Config) { c.Store.Path = "" }, expectErr: true},
		{name: "zero vector dimension", modify: func(c *Config) { c.Store.VectorDimension = 0 }, expectErr: true},
		{name: "zero max ann candidates", modify: func(c *Config) { c.Store.MaxANNCandidates = 0 }, expectErr: true},
		{name: "weight out of range", modify: func(c *Config) { c.Search.SemanticWeight = 1.5 }, expectErr: true},
		{name: "negative weight", modify: func(c *Config) { c.Search.TemporalWeight = -0.1 }, expectErr: true},
		{name: "rest api enabled with no port", modify: func(c *Config) { c.RestAPI.Enabled = true; c.RestAPI.Port = 0 }, expectErr: true},
		{name: "invalid logging level", modify: func(c *Config) { c.Logging.Level = "verbose" }, expectErr: true},
		{name: "invalid logging format", modify: func(c *Config) { c.Logging.Format = "xml" }, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd) //nolint:errcheck
	_ = os.Chdir(tmpDir)

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", oldHome)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error with missing config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}
	if cfg.Store.VectorDimension != 384 {
		t.Errorf("expected default vector dimension 384, got %d", cfg.Store.VectorDimension)
	}
}

func TestLoadConfig_WithExplicitPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")

	configContent := `
store:
  path: /tmp/docstore-test
  vector_dimension: 128
  max_ann_candidates: 500
rest_api:
  enabled: true
  port: 4000
  host: 127.0.0.1
  cors: false
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Store.Path != "/tmp/docstore-test" {
		t.Errorf("expected store path override, got %s", cfg.Store.Path)
	}
	if cfg.Store.VectorDimension != 128 {
		t.Errorf("expected vector_dimension=128, got %d", cfg.Store.VectorDimension)
	}
	if cfg.RestAPI.Port != 4000 {
		t.Errorf("expected port=4000, got %d", cfg.RestAPI.Port)
	}
	if cfg.RestAPI.CORS {
		t.Error("expected CORS=false, got true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level=debug, got %s", cfg.Logging.Level)
	}
}

func TestEnsureStoreDir(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{Store: StoreConfig{Path: filepath.Join(tmpDir, "subdir", "data")}}

	if err := cfg.EnsureStoreDir(); err != nil {
		t.Fatalf("EnsureStoreDir failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "subdir", "data")); os.IsNotExist(err) {
		t.Error("store directory was not created")
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if path == "" {
		t.Error("ConfigPath returned empty string")
	}
	homeDir, _ := os.UserHomeDir()
	expected := filepath.Join(homeDir, ".docstore")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}
