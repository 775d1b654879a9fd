package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Dir is the per-project config directory.
const Dir = ".repoedit"

// Config represents the complete repoedit configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version" yaml:"version"`

	Server   ServerConfig   `json:"server" mapstructure:"server" toml:"server" yaml:"server"`
	GitHub   GitHubConfig   `json:"github" mapstructure:"github" toml:"github" yaml:"github"`
	AI       AIConfig       `json:"ai" mapstructure:"ai" toml:"ai" yaml:"ai"`
	Apply    ApplyConfig    `json:"apply" mapstructure:"apply" toml:"apply" yaml:"apply"`
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions" toml:"sessions" yaml:"sessions"`
	Journal  JournalConfig  `json:"journal" mapstructure:"journal" toml:"journal" yaml:"journal"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging" toml:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Host is empty to listen on all interfaces.
	Host string `json:"host" mapstructure:"host" toml:"host" yaml:"host"`
	Port int    `json:"port" mapstructure:"port" toml:"port" yaml:"port"`
	// WriteTimeoutSeconds bounds a whole request, including AI calls.
	WriteTimeoutSeconds int  `json:"writeTimeoutSeconds" mapstructure:"writeTimeoutSeconds" toml:"writeTimeoutSeconds" yaml:"writeTimeoutSeconds"`
	Compress            bool `json:"compress" mapstructure:"compress" toml:"compress" yaml:"compress"`
}

// GitHubConfig identifies the repository edits are committed to
type GitHubConfig struct {
	Host           string `json:"host" mapstructure:"host" toml:"host" yaml:"host"`
	Owner          string `json:"owner" mapstructure:"owner" toml:"owner" yaml:"owner"`
	Repo           string `json:"repo" mapstructure:"repo" toml:"repo" yaml:"repo"`
	Branch         string `json:"branch" mapstructure:"branch" toml:"branch" yaml:"branch"`
	Token          string `json:"token" mapstructure:"token" toml:"token" yaml:"token"`
	TimeoutSeconds int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds" toml:"timeoutSeconds" yaml:"timeoutSeconds"`
}

// AIConfig selects and configures the suggestion provider
type AIConfig struct {
	// Provider is "deepseek", "openai", "gemini" or "none".
	Provider       string `json:"provider" mapstructure:"provider" toml:"provider" yaml:"provider"`
	BaseURL        string `json:"baseUrl" mapstructure:"baseUrl" toml:"baseUrl" yaml:"baseUrl"`
	APIKey         string `json:"apiKey" mapstructure:"apiKey" toml:"apiKey" yaml:"apiKey"`
	Model          string `json:"model" mapstructure:"model" toml:"model" yaml:"model"`
	GeminiAPIKey   string `json:"geminiApiKey" mapstructure:"geminiApiKey" toml:"geminiApiKey" yaml:"geminiApiKey"`
	PromptFile     string `json:"promptFile" mapstructure:"promptFile" toml:"promptFile" yaml:"promptFile"`
	TimeoutSeconds int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds" toml:"timeoutSeconds" yaml:"timeoutSeconds"`
}

// ApplyConfig tunes the reconciler
type ApplyConfig struct {
	RetryOnConflict bool `json:"retryOnConflict" mapstructure:"retryOnConflict" toml:"retryOnConflict" yaml:"retryOnConflict"`
}

// SessionsConfig bounds chat session memory
type SessionsConfig struct {
	MaxSessions int `json:"maxSessions" mapstructure:"maxSessions" toml:"maxSessions" yaml:"maxSessions"`
}

// JournalConfig controls the apply journal
type JournalConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled" toml:"enabled" yaml:"enabled"`
	Path    string `json:"path" mapstructure:"path" toml:"path" yaml:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level" toml:"level" yaml:"level"`
	// File adds a file sink next to stderr when set.
	File       string `json:"file" mapstructure:"file" toml:"file" yaml:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize" toml:"maxSize" yaml:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" toml:"maxBackups" yaml:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Port:                3000,
			WriteTimeoutSeconds: 180,
			Compress:            true,
		},
		GitHub: GitHubConfig{
			Host:           "github.com",
			TimeoutSeconds: 30,
		},
		AI: AIConfig{
			Provider:       "deepseek",
			TimeoutSeconds: 120,
		},
		Apply: ApplyConfig{
			RetryOnConflict: false,
		},
		Sessions: SessionsConfig{
			MaxSessions: 1000,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(Dir, "journal.db"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// envAliases binds the bare variable names used by existing deployments.
var envAliases = map[string][]string{
	"server.port":     {"PORT"},
	"github.token":    {"GITHUB_ACCESS_TOKEN", "GITHUB_TOKEN"},
	"github.owner":    {"GITHUB_REPO_OWNER"},
	"github.repo":     {"GITHUB_REPO_NAME"},
	"ai.apiKey":       {"DEEPSEEK_API_KEY"},
	"ai.geminiApiKey": {"GEMINI_API_KEY"},
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.writeTimeoutSeconds", d.Server.WriteTimeoutSeconds)
	v.SetDefault("server.compress", d.Server.Compress)
	v.SetDefault("github.host", d.GitHub.Host)
	v.SetDefault("github.owner", d.GitHub.Owner)
	v.SetDefault("github.repo", d.GitHub.Repo)
	v.SetDefault("github.branch", d.GitHub.Branch)
	v.SetDefault("github.token", d.GitHub.Token)
	v.SetDefault("github.timeoutSeconds", d.GitHub.TimeoutSeconds)
	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.baseUrl", d.AI.BaseURL)
	v.SetDefault("ai.apiKey", d.AI.APIKey)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.geminiApiKey", d.AI.GeminiAPIKey)
	v.SetDefault("ai.promptFile", d.AI.PromptFile)
	v.SetDefault("ai.timeoutSeconds", d.AI.TimeoutSeconds)
	v.SetDefault("apply.retryOnConflict", d.Apply.RetryOnConflict)
	v.SetDefault("sessions.maxSessions", d.Sessions.MaxSessions)
	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// LoadConfig loads configuration. With an empty path it looks for
// config.{json,yaml,toml} under .repoedit in the working directory and
// falls back to defaults when none exists. Environment variables prefixed
// REPOEDIT_ override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("REPOEDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		prefixed := "REPOEDIT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(Dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration, choosing the format from the extension.
// .toml and .yaml/.yml are supported; anything else is written as JSON.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(c)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.GitHub.Token = mask(c.GitHub.Token)
	out.AI.APIKey = mask(c.AI.APIKey)
	out.AI.GeminiAPIKey = mask(c.AI.GeminiAPIKey)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if (c.GitHub.Owner == "") != (c.GitHub.Repo == "") {
		return &ConfigError{Field: "github", Message: "owner and repo must be set together"}
	}
	switch c.AI.Provider {
	case "deepseek", "openai", "gemini", "none":
	default:
		return &ConfigError{Field: "ai.provider", Message: fmt.Sprintf("unknown provider %q", c.AI.Provider)}
	}
	if c.Sessions.MaxSessions < 1 {
		return &ConfigError{Field: "sessions.maxSessions", Message: "must be at least 1"}
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return &ConfigError{Field: "journal.path", Message: "required when the journal is enabled"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
