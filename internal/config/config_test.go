package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Port != 8080 || cfg.Backlog != 5 || cfg.DocumentRoot != "." || cfg.Concurrency != 1 {
		t.Errorf("Default() = %+v", cfg)
	}
	if got := cfg.Addr(); got != ":8080" {
		t.Errorf("Addr() = %q, want %q", got, ":8080")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "TOML",
			file: "statichttp.toml",
			body: `
port = 9090
document_root = "public"
read_timeout = "5s"
allow_traversal = true

[mime_types]
svg = "image/svg+xml"
`,
		},
		{
			name: "YAML",
			file: "statichttp.yaml",
			body: `
port: 9090
document_root: public
read_timeout: 5s
allow_traversal: true
mime_types:
  svg: image/svg+xml
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.body))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Port != 9090 {
				t.Errorf("Port = %d, want 9090", cfg.Port)
			}
			if cfg.DocumentRoot != "public" {
				t.Errorf("DocumentRoot = %q, want public", cfg.DocumentRoot)
			}
			if cfg.ReadTimeout != 5*time.Second {
				t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
			}
			if !cfg.AllowTraversal {
				t.Error("AllowTraversal should be true")
			}
			if cfg.MIMETypes["svg"] != "image/svg+xml" {
				t.Errorf("MIMETypes = %v", cfg.MIMETypes)
			}
			// Unset keys keep their defaults.
			if cfg.Backlog != 5 || cfg.IndexFile != "index.html" {
				t.Errorf("defaults lost: %+v", cfg)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "Unknown TOML key", path: writeConfig(t, "c.toml", "prot = 1\n"), wantErr: "unknown keys"},
		{name: "Bad TOML", path: writeConfig(t, "c.toml", "port = \n"), wantErr: "parse"},
		{name: "Bad YAML", path: writeConfig(t, "c.yml", "port: [\n"), wantErr: "parse"},
		{name: "Unsupported format", path: writeConfig(t, "c.ini", "port=1\n"), wantErr: "unsupported config format"},
		{name: "Missing file", path: filepath.Join(t.TempDir(), "nope.toml"), wantErr: "read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != Default().Port || cfg.DocumentRoot != Default().DocumentRoot {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"STATICHTTP_PORT":            "8181",
		"STATICHTTP_DOCUMENT_ROOT":   "/srv/www",
		"STATICHTTP_CONCURRENCY":     "4",
		"STATICHTTP_WRITE_TIMEOUT":   "250ms",
		"STATICHTTP_ALLOW_TRAVERSAL": "true",
		"STATICHTTP_LOG_FORMAT":      "json",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Port != 8181 || cfg.DocumentRoot != "/srv/www" || cfg.Concurrency != 4 {
		t.Errorf("ApplyEnv() = %+v", cfg)
	}
	if cfg.WriteTimeout != 250*time.Millisecond || !cfg.AllowTraversal || cfg.LogFormat != "json" {
		t.Errorf("ApplyEnv() = %+v", cfg)
	}
	if cfg.Backlog != 5 {
		t.Errorf("unset variable changed Backlog to %d", cfg.Backlog)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	env := map[string]string{
		"STATICHTTP_PORT":            "eighty",
		"STATICHTTP_READ_TIMEOUT":    "soon",
		"STATICHTTP_ALLOW_TRAVERSAL": "maybe",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err == nil {
		t.Fatal("ApplyEnv() should fail")
	}
	for _, name := range []string{"STATICHTTP_PORT", "STATICHTTP_READ_TIMEOUT", "STATICHTTP_ALLOW_TRAVERSAL"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
	if cfg.Port != 8080 {
		t.Errorf("invalid value changed Port to %d", cfg.Port)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}

	const key = "STATICHTTP_TEST_DOTENV_BACKLOG"
	t.Cleanup(func() { os.Unsetenv(key) })
	p := writeConfig(t, ".env", key+"=7\n")
	if err := LoadDotEnv(p); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv(key); got != "7" {
		t.Errorf("%s = %q, want 7", key, got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "Port too large", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "port"},
		{name: "Zero backlog", mutate: func(c *Config) { c.Backlog = 0 }, wantErr: "backlog"},
		{name: "No root", mutate: func(c *Config) { c.DocumentRoot = "" }, wantErr: "document_root"},
		{name: "No index", mutate: func(c *Config) { c.IndexFile = "" }, wantErr: "index_file"},
		{name: "Tiny buffer", mutate: func(c *Config) { c.MaxRequestBytes = 3 }, wantErr: "max_request_bytes"},
		{name: "Zero chunk", mutate: func(c *Config) { c.ChunkSize = 0 }, wantErr: "chunk_size"},
		{name: "Zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: "concurrency"},
		{name: "Negative timeout", mutate: func(c *Config) { c.ReadTimeout = -time.Second }, wantErr: "timeouts"},
		{name: "Bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
