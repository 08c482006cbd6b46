package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys: MSSQL_TRUST_SERVER_CERTIFICATE -> trust_server_certificate.
const EnvPrefix = "MSSQL_"

const (
	DefaultPort           = 1433
	DefaultCommand        = "execute_sql"
	DefaultAppName        = "mssql-mcp-server"
	DefaultQueryTimeout   = 30 * time.Second
	DefaultConnectTimeout = 15 * time.Second
	DefaultHTTPAddr       = "127.0.0.1:8080"
	DefaultLogLevel       = "info"
	DefaultLogMaxSizeMB   = 10
	DefaultEnvFile        = ".env"
)

var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type Config struct {
	Server                 string        `koanf:"server"`
	Port                   int           `koanf:"port"`
	Database               string        `koanf:"database"`
	User                   string        `koanf:"user"`
	Password               string        `koanf:"password"`
	Encrypt                bool          `koanf:"encrypt"`
	TrustServerCertificate bool          `koanf:"trust_server_certificate"`
	AppName                string        `koanf:"app_name"`
	ConnectTimeout         time.Duration `koanf:"connect_timeout"`
	QueryTimeout           time.Duration `koanf:"query_timeout"`
	Command                string        `koanf:"command"`
	HTTPAddr               string        `koanf:"http_addr"`
	LogLevel               string        `koanf:"log_level"`
	LogFile                string        `koanf:"log_file"`
	LogMaxSizeMB           int64         `koanf:"log_max_size_mb"`
	LogConsole             bool          `koanf:"log_console"`
}

type LoggingConfig struct {
	Level      string
	OutputFile string
	MaxSizeMB  int64
	Console    bool
}

func (c *Config) Logging() LoggingConfig {
	return LoggingConfig{
		Level:      c.LogLevel,
		OutputFile: c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		Console:    c.LogConsole,
	}
}

// Target is a short "server:port/database" label used in logs and tool output.
func (c *Config) Target() string {
	return fmt.Sprintf("%s:%d/%s", c.Server, c.Port, c.Database)
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":                     DefaultPort,
		"encrypt":                  true,
		"trust_server_certificate": false,
		"app_name":                 DefaultAppName,
		"connect_timeout":          DefaultConnectTimeout.String(),
		"query_timeout":            DefaultQueryTimeout.String(),
		"command":                  DefaultCommand,
		"http_addr":                DefaultHTTPAddr,
		"log_level":                DefaultLogLevel,
		"log_max_size_mb":          DefaultLogMaxSizeMB,
		"log_console":              true,
	}
}

// BindFlags registers every configuration flag on fs. Flag values only win
// over the environment when they were set explicitly.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("env-file", DefaultEnvFile, "Path to a .env file loaded before reading MSSQL_* variables")
	fs.String("server", "", "SQL Server host or IP (MSSQL_SERVER)")
	fs.Int("port", DefaultPort, "SQL Server TCP port (MSSQL_PORT)")
	fs.String("database", "", "Database name (MSSQL_DATABASE)")
	fs.String("user", "", "SQL login (MSSQL_USER)")
	fs.String("password", "", "SQL login password (MSSQL_PASSWORD)")
	fs.Bool("encrypt", true, "Encrypt the connection (MSSQL_ENCRYPT)")
	fs.Bool("trust-server-certificate", false, "Skip server certificate validation (MSSQL_TRUST_SERVER_CERTIFICATE)")
	fs.String("command", DefaultCommand, "Name of the query tool (MSSQL_COMMAND)")
	fs.Duration("query-timeout", DefaultQueryTimeout, "Per-query timeout (MSSQL_QUERY_TIMEOUT)")
	fs.Duration("connect-timeout", DefaultConnectTimeout, "Connection timeout (MSSQL_CONNECT_TIMEOUT)")
	fs.String("addr", DefaultHTTPAddr, "Listen address for the http transport (MSSQL_HTTP_ADDR)")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warn, error (MSSQL_LOG_LEVEL)")
	fs.String("log-file", "", "Also write logs to this file (MSSQL_LOG_FILE)")
}

// LoadConfig builds the configuration once at startup.
// Precedence (highest to lowest): flags > environment > .env file > defaults.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(flags); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "env-file" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "addr" {
				return "http_addr", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing required key at once so a misconfigured
// process fails with one descriptive message.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Server) == "" {
		missing = append(missing, EnvPrefix+"SERVER")
	}
	if strings.TrimSpace(c.Database) == "" {
		missing = append(missing, EnvPrefix+"DATABASE")
	}
	if strings.TrimSpace(c.User) == "" {
		missing = append(missing, EnvPrefix+"USER")
	}
	if c.Password == "" {
		missing = append(missing, EnvPrefix+"PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive, got %s", c.QueryTimeout)
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("connect timeout must not be negative, got %s", c.ConnectTimeout)
	}
	if !toolNamePattern.MatchString(c.Command) {
		return fmt.Errorf("invalid command %q: tool names may only contain letters, digits, '_' and '-'", c.Command)
	}
	return nil
}

// loadEnvFile loads an explicit --env-file, or the first .env found in the
// usual places. Variables already present in the environment are kept.
func loadEnvFile(flags *pflag.FlagSet) error {
	if flags != nil && flags.Changed("env-file") {
		path, _ := flags.GetString("env-file")
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}

	for _, path := range getEnvFilePaths() {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", path, err)
			}
			return nil
		}
	}
	return nil
}

func getEnvFilePaths() []string {
	var paths []string

	if pwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(pwd, DefaultEnvFile))
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			paths = append(paths, filepath.Join(appData, "mssql-mcp", DefaultEnvFile))
		}
	default:
		homeDir := os.Getenv("HOME")
		if homeDir != "" {
			paths = append(paths, filepath.Join(homeDir, ".config", "mssql-mcp", DefaultEnvFile))
		}
	}

	return paths
}
