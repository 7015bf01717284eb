package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, env, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "config", env+".yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)
}

const minimalConfig = `
http:
  port: 8080
embedding:
  model: test-model
  dimensions: 3
`

func TestLoad_Minimal(t *testing.T) {
	writeConfig(t, "testenv", minimalConfig)

	cfg, err := Load("testenv")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("port %d, want 8080", cfg.HTTP.Port)
	}
	// Defaults
	if cfg.Database.Path != "paperdex.db" {
		t.Errorf("db path %q, want default", cfg.Database.Path)
	}
	if cfg.VectorIndex.Driver != "builtin" {
		t.Errorf("driver %q, want builtin", cfg.VectorIndex.Driver)
	}
	if cfg.Search.RRFK != 60 {
		t.Errorf("rrf_k %d, want 60", cfg.Search.RRFK)
	}
	if cfg.Embedding.MaxInputChars != 8192 {
		t.Errorf("max input %d, want 8192", cfg.Embedding.MaxInputChars)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_PAPERDEX_MODEL", "env-model")

	writeConfig(t, "testenv", `
http:
  port: 8080
embedding:
  model: ${TEST_PAPERDEX_MODEL}
  dimensions: ${TEST_PAPERDEX_DIMS:-3}
`)

	cfg, err := Load("testenv")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Embedding.Model != "env-model" {
		t.Errorf("model %q, want env-model", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 3 {
		t.Errorf("dimensions %d, want default 3", cfg.Embedding.Dimensions)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := Load("nonexistent-env"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{}
		c.HTTP.Port = 8080
		c.Embedding.Model = "m"
		c.Embedding.Dimensions = 3
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, false},
		{"port too high", func(c *Config) { c.HTTP.Port = 70000 }, false},
		{"missing model", func(c *Config) { c.Embedding.Model = "" }, false},
		{"bad dimensions", func(c *Config) { c.Embedding.Dimensions = -1 }, false},
		{"unknown driver", func(c *Config) { c.VectorIndex.Driver = "etcd" }, false},
		{"redis without addrs", func(c *Config) { c.VectorIndex.Driver = "redis" }, false},
		{"redis with addrs", func(c *Config) {
			c.VectorIndex.Driver = "redis"
			c.VectorIndex.Addrs = []string{"localhost:6379"}
		}, true},
		{"principal without token", func(c *Config) {
			c.Auth.Principals = []PrincipalKey{{Token: "", Principal: 1}}
		}, false},
		{"principal non-positive", func(c *Config) {
			c.Auth.Principals = []PrincipalKey{{Token: "t", Principal: 0}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_SET", "value")

	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"${TEST_EXPAND_SET}", "value"},
		{"${TEST_EXPAND_UNSET}", ""},
		{"${TEST_EXPAND_UNSET:-fallback}", "fallback"},
		{"${TEST_EXPAND_SET:-fallback}", "value"},
		{"pre-${TEST_EXPAND_SET}-post", "pre-value-post"},
	}
	for _, tt := range tests {
		if got := string(expandEnvVars([]byte(tt.in))); got != tt.want {
			t.Errorf("expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("default env %q, want local", got)
	}

	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("env %q, want prod", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	writeConfig(t, "testenv", "http: [not: a: map")

	if _, err := Load("testenv"); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
