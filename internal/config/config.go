// ABOUTME: Configuration loading and parsing for the deflink server
// ABOUTME: Supports YAML and TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config represents the complete deflink configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Directory DirectoryConfig `yaml:"directory" toml:"directory"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr     string        `yaml:"http_addr" toml:"http_addr"`
	ReadTimeout  time.Duration `yaml:"-" toml:"-"`
	WriteTimeout time.Duration `yaml:"-" toml:"-"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" toml:"max_body_bytes"`

	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy" toml:"trust_proxy"`

	// CORSOrigins lists front end origins allowed to call the API with
	// credentials. Empty disables CORS.
	CORSOrigins []string `yaml:"cors_origins" toml:"cors_origins"`

	// Raw string values for unmarshaling
	ReadTimeoutRaw  string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeoutRaw string `yaml:"write_timeout" toml:"write_timeout"`
}

// DatabaseConfig selects and configures the key-value backend
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// AuthConfig holds session and password configuration
type AuthConfig struct {
	// SessionSecret signs session tokens. Empty means a random secret per
	// process, which logs everyone out on restart.
	SessionSecret string        `yaml:"session_secret" toml:"session_secret"`
	SessionTTL    time.Duration `yaml:"-" toml:"-"`
	SessionTTLRaw string        `yaml:"session_ttl" toml:"session_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure" toml:"cookie_secure"`
	// DefaultPassword is stored on first start when no password exists.
	DefaultPassword    string `yaml:"default_password" toml:"default_password"`
	LoginRatePerMinute int    `yaml:"login_rate_per_minute" toml:"login_rate_per_minute"`
	LoginBurst         int    `yaml:"login_burst" toml:"login_burst"`
}

// DirectoryConfig holds directory behavior settings
type DirectoryConfig struct {
	// ProviderDefaultStatus is "draft" or "freigeschaltet".
	ProviderDefaultStatus string `yaml:"provider_default_status" toml:"provider_default_status"`
	Seed                  bool   `yaml:"seed" toml:"seed"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        "127.0.0.1:8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ReadTimeoutRaw:  "15s",
			WriteTimeoutRaw: "30s",
			MaxBodyBytes:    1 << 20,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(DataPath(), "deflink.db"),
		},
		Auth: AuthConfig{
			SessionTTL:         24 * time.Hour,
			SessionTTLRaw:      "24h",
			CookieSecure:       true,
			DefaultPassword:    "oem123",
			LoginRatePerMinute: 10,
			LoginBurst:         5,
		},
		Directory: DirectoryConfig{
			ProviderDefaultStatus: "draft",
			Seed:                  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Path returns the path to the config file.
// Priority: DEFLINK_CONFIG env var > XDG_CONFIG_HOME/deflink/deflink.yaml > ~/.config/deflink/deflink.yaml
func Path() string {
	if envPath := os.Getenv("DEFLINK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "deflink.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "deflink", "deflink.yaml")
}

// DataPath returns the deflink data directory.
// Priority: XDG_DATA_HOME/deflink > ~/.local/share/deflink
func DataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "deflink")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Keys missing from the file keep their Default values.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist.
func LoadOrDefault(path string) (*Config, bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), false, nil
	}
	cfg, err := Load(path)
	return cfg, err == nil, err
}

// Write saves cfg to path as YAML, creating parent directories. An
// existing file is never overwritten.
func Write(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of sqlite, postgres, memory (got %q)", c.Database.Driver)
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.DefaultPassword == "" {
		return fmt.Errorf("auth.default_password is required")
	}
	if c.Auth.LoginRatePerMinute < 0 {
		return fmt.Errorf("auth.login_rate_per_minute must not be negative")
	}
	if c.Auth.LoginRatePerMinute > 0 && c.Auth.LoginBurst < 1 {
		return fmt.Errorf("auth.login_burst must be at least 1 when rate limiting is enabled")
	}

	switch c.Directory.ProviderDefaultStatus {
	case "draft", "freigeschaltet":
	default:
		return fmt.Errorf("directory.provider_default_status must be draft or freigeschaltet (got %q)", c.Directory.ProviderDefaultStatus)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Server.ReadTimeoutRaw != "" {
		cfg.Server.ReadTimeout, err = time.ParseDuration(cfg.Server.ReadTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing read_timeout %q: %w", cfg.Server.ReadTimeoutRaw, err)
		}
	}

	if cfg.Server.WriteTimeoutRaw != "" {
		cfg.Server.WriteTimeout, err = time.ParseDuration(cfg.Server.WriteTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing write_timeout %q: %w", cfg.Server.WriteTimeoutRaw, err)
		}
	}

	if cfg.Auth.SessionTTLRaw != "" {
		cfg.Auth.SessionTTL, err = time.ParseDuration(cfg.Auth.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Auth.SessionTTLRaw, err)
		}
	}

	return nil
}
