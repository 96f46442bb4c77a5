package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/clintrovert/scrummaster/internal/apperr"
)

// Config holds all application configuration. It is resolved once at
// startup and passed down explicitly.
type Config struct {
	GitHub        GitHubConfig        `toml:"github"`
	Invoker       InvokerConfig       `toml:"invoker"`
	Notifications NotificationsConfig `toml:"notifications"`
	Health        HealthConfig        `toml:"health"`
	Jira          JiraConfig          `toml:"jira"`
	OpenAI        OpenAIConfig        `toml:"openai"`
	Server        ServerConfig        `toml:"server"`
	Logging       LoggingConfig       `toml:"logging"`
}

// GitHubConfig holds GitHub API settings
type GitHubConfig struct {
	Token   string `toml:"token"`
	BaseURL string `toml:"base_url"`
}

// InvokerConfig holds command execution settings
type InvokerConfig struct {
	CommandDelay Duration `toml:"command_delay"`
	MaxRetries   int      `toml:"max_retries"`
	RetryDelay   Duration `toml:"retry_delay"`
}

// NotificationsConfig holds observer settings
type NotificationsConfig struct {
	LogFile         string      `toml:"log_file"`
	SlackWebhook    string      `toml:"slack_webhook"`
	SlackChannel    string      `toml:"slack_channel"`
	SlackUsername   string      `toml:"slack_username"`
	DashboardURL    string      `toml:"dashboard_url"`
	DashboardAPIKey string      `toml:"dashboard_api_key"`
	WebhookURL      string      `toml:"webhook_url"`
	WebhookRetries  int         `toml:"webhook_retries"`
	WebhookTimeout  Duration    `toml:"webhook_timeout"`
	Email           EmailConfig `toml:"email"`
}

// EmailConfig holds email notification settings
type EmailConfig struct {
	SMTPHost   string   `toml:"smtp_host"`
	SMTPPort   int      `toml:"smtp_port"`
	From       string   `toml:"from"`
	Recipients []string `toml:"recipients"`
}

// HealthConfig holds health monitor thresholds
type HealthConfig struct {
	MaxErrorRate     float64  `toml:"max_error_rate"`
	AlertOnError     bool     `toml:"alert_on_error"`
	MaxExecutionTime Duration `toml:"max_execution_time"`
}

// JiraConfig holds the optional Jira mirror settings
type JiraConfig struct {
	BaseURL         string `toml:"base_url"`
	Username        string `toml:"username"`
	Token           string `toml:"token"`
	Ticket          string `toml:"ticket"`
	RepositoryField string `toml:"repository_field"`
}

// OpenAIConfig holds the optional backlog refinement settings
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// ServerConfig holds status server settings
type ServerConfig struct {
	Listen string `toml:"listen"`
	APIKey string `toml:"api_key"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration that decodes from strings like "500ms"
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Invoker: InvokerConfig{
			CommandDelay: Duration(500 * time.Millisecond),
			MaxRetries:   3,
			RetryDelay:   Duration(time.Second),
		},
		Notifications: NotificationsConfig{
			SlackChannel:   "#scrum-updates",
			SlackUsername:  "Scrum Master Bot",
			WebhookRetries: 1,
			WebhookTimeout: Duration(10 * time.Second),
			Email: EmailConfig{
				SMTPPort: 587,
			},
		},
		Health: HealthConfig{
			MaxErrorRate:     10,
			AlertOnError:     true,
			MaxExecutionTime: Duration(5 * time.Minute),
		},
		Server: ServerConfig{
			Listen: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		if err != nil && !os.IsNotExist(err) {
			return nil, apperr.ErrConfigRead.WithError(err).WithContext("path", path)
		}
		if err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, apperr.ErrConfigParse.WithError(err).WithContext("path", path)
			}
		}
	}

	cfg.applyEnv()
	cfg.Notifications.LogFile = ExpandPath(cfg.Notifications.LogFile)

	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.GitHub.Token, "GITHUB_TOKEN")
	setFromEnv(&c.GitHub.BaseURL, "GITHUB_API_URL")
	setFromEnv(&c.Notifications.SlackWebhook, "SLACK_WEBHOOK_URL")
	setFromEnv(&c.Notifications.DashboardURL, "DASHBOARD_URL")
	setFromEnv(&c.Notifications.DashboardAPIKey, "DASHBOARD_API_KEY")
	setFromEnv(&c.Jira.BaseURL, "JIRA_BASE_URL")
	setFromEnv(&c.Jira.Username, "JIRA_USERNAME")
	setFromEnv(&c.Jira.Token, "JIRA_TOKEN")
	setFromEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.OpenAI.Model, "OPENAI_MODEL")
}

// Validate checks the settings every GitHub facing command needs
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GitHub.Token) == "" {
		return apperr.ErrTokenMissing
	}
	return nil
}

// JiraEnabled reports whether the Jira mirror is fully configured
func (c *Config) JiraEnabled() bool {
	return c.Jira.BaseURL != "" && c.Jira.Username != "" && c.Jira.Token != "" && c.Jira.Ticket != ""
}

func setFromEnv(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".scrummaster", "config.toml")
}
