package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. CODEPAD_WEB_PORT for web.port.
const EnvPrefix = "CODEPAD"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Web      WebConfig      `mapstructure:"web" yaml:"web"`
	Piston   PistonConfig   `mapstructure:"piston" yaml:"piston"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
	Editor   EditorConfig   `mapstructure:"editor" yaml:"editor"`
	View     ViewConfig     `mapstructure:"view" yaml:"view"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds the MCP server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport" yaml:"transport"`
	HTTPPort  int    `mapstructure:"http_port" yaml:"http_port"`
}

// WebConfig holds the browser front end configuration
type WebConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MonacoURL      string   `mapstructure:"monaco_url" yaml:"monaco_url"`
}

// PistonConfig holds the remote execution API endpoints.
// A zero TimeoutSec leaves the HTTP transport default in place.
type PistonConfig struct {
	RuntimesURL string `mapstructure:"runtimes_url" yaml:"runtimes_url"`
	ExecuteURL  string `mapstructure:"execute_url" yaml:"execute_url"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// RegistryConfig holds language registry configuration
type RegistryConfig struct {
	DefaultLanguage string `mapstructure:"default_language" yaml:"default_language"`
}

// EditorConfig holds the editor widget configuration
type EditorConfig struct {
	DefaultMode       string            `mapstructure:"default_mode" yaml:"default_mode"`
	Placeholder       string            `mapstructure:"placeholder" yaml:"placeholder"`
	EagerSyncLanguage string            `mapstructure:"eager_sync_language" yaml:"eager_sync_language"`
	ModeOverrides     map[string]string `mapstructure:"mode_overrides" yaml:"mode_overrides"`
}

// ViewConfig holds view state configuration
type ViewConfig struct {
	DiscardStaleResults bool `mapstructure:"discard_stale_results" yaml:"discard_stale_results"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode        string   `mapstructure:"mode" yaml:"mode"`
	Level       string   `mapstructure:"level" yaml:"level"`
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths"`
}

// New loads and validates the application configuration from the default
// locations.
func New() (*Config, error) {
	return Load("")
}

// Load reads the configuration from path, or from config.yaml in "." and
// "./config" when path is empty. Missing default files are not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.http_port", 8081)

	v.SetDefault("web.port", 8080)
	v.SetDefault("web.allowed_origins", []string{"*"})
	v.SetDefault("web.monaco_url", "https://cdn.jsdelivr.net/npm/monaco-editor@0.52.2/min/vs")

	v.SetDefault("piston.runtimes_url", "https://emkc.org/api/v2/piston/runtimes")
	v.SetDefault("piston.execute_url", "https://emkc.org/api/v2/piston/execute")
	v.SetDefault("piston.timeout_sec", 0)

	v.SetDefault("registry.default_language", "javascript")

	v.SetDefault("editor.default_mode", "javascript")
	v.SetDefault("editor.placeholder", "// some comment")
	v.SetDefault("editor.eager_sync_language", "javascript")
	v.SetDefault("editor.mode_overrides", map[string]string{})

	v.SetDefault("view.discard_stale_results", true)

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output_paths", []string{"stderr"})
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if err := validatePort("server.http_port", c.Server.HTTPPort); err != nil {
		return err
	}

	if err := validatePort("web.port", c.Web.Port); err != nil {
		return err
	}

	if err := validateEndpoint("piston.runtimes_url", c.Piston.RuntimesURL); err != nil {
		return err
	}

	if err := validateEndpoint("piston.execute_url", c.Piston.ExecuteURL); err != nil {
		return err
	}

	if c.Piston.TimeoutSec < 0 {
		return fmt.Errorf("piston.timeout_sec must not be negative, got: %d", c.Piston.TimeoutSec)
	}

	if c.Registry.DefaultLanguage == "" {
		return fmt.Errorf("registry.default_language must not be empty")
	}

	if c.Editor.DefaultMode == "" {
		return fmt.Errorf("editor.default_mode must not be empty")
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

func validatePort(key string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got: %d", key, port)
	}
	return nil
}

func validateEndpoint(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got: %q", key, raw)
	}
	return nil
}

// GetTimeout returns the remote API request timeout. Zero means no override.
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Piston.TimeoutSec) * time.Second
}
