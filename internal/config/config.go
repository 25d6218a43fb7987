// Package config holds the server settings and loads them from TOML or YAML
// files, a .env file and STATICHTTP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "STATICHTTP_"

// Config is the complete server configuration.
type Config struct {
	// Host to bind. Empty binds all interfaces.
	Host string `toml:"host" yaml:"host"`
	// Port to listen on. 0 picks a free port.
	Port int `toml:"port" yaml:"port"`
	// Backlog is the listen(2) queue length.
	Backlog int `toml:"backlog" yaml:"backlog"`
	// DocumentRoot is prefixed to every resolved path.
	DocumentRoot string `toml:"document_root" yaml:"document_root"`
	// IndexFile answers the target "/".
	IndexFile string `toml:"index_file" yaml:"index_file"`
	// MaxRequestBytes bounds the buffered request head.
	MaxRequestBytes int `toml:"max_request_bytes" yaml:"max_request_bytes"`
	// ChunkSize is the buffer used to stream file bodies.
	ChunkSize int `toml:"chunk_size" yaml:"chunk_size"`
	// Concurrency is the number of connections handled at once. 1 serves
	// connections strictly one after another.
	Concurrency int `toml:"concurrency" yaml:"concurrency"`
	// ReadTimeout and WriteTimeout set per-connection deadlines. Zero means
	// a silent client can hold the connection forever.
	ReadTimeout  time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	// AllowTraversal disables the check that keeps resolved paths inside
	// DocumentRoot.
	AllowTraversal bool `toml:"allow_traversal" yaml:"allow_traversal"`
	// NormalizeUnicode applies NFC to decoded paths.
	NormalizeUnicode bool `toml:"normalize_unicode" yaml:"normalize_unicode"`
	// NotFoundText is the heading of the 404 page.
	NotFoundText string `toml:"not_found_text" yaml:"not_found_text"`
	// MIMETypes extends or overrides the built-in extension table.
	MIMETypes map[string]string `toml:"mime_types" yaml:"mime_types"`
	// OpenPath, when set, is opened in the default browser after startup.
	OpenPath string `toml:"open_path" yaml:"open_path"`
	// LogLevel is a zerolog level name.
	LogLevel string `toml:"log_level" yaml:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// Default returns the settings the server runs with when nothing is configured.
func Default() Config {
	return Config{
		Host:            "",
		Port:            8080,
		Backlog:         5,
		DocumentRoot:    ".",
		IndexFile:       "index.html",
		MaxRequestBytes: 4095,
		ChunkSize:       4096,
		Concurrency:     1,
		NotFoundText:    "404 Not Found",
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Load returns Default overlaid with the file at path. The format is chosen
// by extension: .toml, .yaml or .yml. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("parse %s: unknown keys %v", path, undecoded)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format %q", ext)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from STATICHTTP_* variables found by lookup,
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("HOST", &c.Host)
	num("PORT", &c.Port)
	num("BACKLOG", &c.Backlog)
	str("DOCUMENT_ROOT", &c.DocumentRoot)
	str("INDEX_FILE", &c.IndexFile)
	num("MAX_REQUEST_BYTES", &c.MaxRequestBytes)
	num("CHUNK_SIZE", &c.ChunkSize)
	num("CONCURRENCY", &c.Concurrency)
	dur("READ_TIMEOUT", &c.ReadTimeout)
	dur("WRITE_TIMEOUT", &c.WriteTimeout)
	flag("ALLOW_TRAVERSAL", &c.AllowTraversal)
	flag("NORMALIZE_UNICODE", &c.NormalizeUnicode)
	str("NOT_FOUND_TEXT", &c.NotFoundText)
	str("OPEN_PATH", &c.OpenPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	return errors.Join(errs...)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Backlog < 1 {
		errs = append(errs, fmt.Errorf("backlog must be at least 1, got %d", c.Backlog))
	}
	if c.DocumentRoot == "" {
		errs = append(errs, errors.New("document_root is required"))
	}
	if c.IndexFile == "" {
		errs = append(errs, errors.New("index_file is required"))
	}
	if c.MaxRequestBytes < 16 {
		errs = append(errs, fmt.Errorf("max_request_bytes must be at least 16, got %d", c.MaxRequestBytes))
	}
	if c.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Addr returns the host:port string to listen on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
