package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clintrovert/scrummaster/internal/apperr"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"GITHUB_TOKEN", "GITHUB_API_URL", "SLACK_WEBHOOK_URL", "DASHBOARD_URL",
		"DASHBOARD_API_KEY", "JIRA_BASE_URL", "JIRA_USERNAME", "JIRA_TOKEN",
		"OPENAI_API_KEY", "OPENAI_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Invoker.CommandDelay.Std())
	assert.Equal(t, 3, cfg.Invoker.MaxRetries)
	assert.Equal(t, "#scrum-updates", cfg.Notifications.SlackChannel)
	assert.Equal(t, "Scrum Master Bot", cfg.Notifications.SlackUsername)
	assert.Equal(t, 10.0, cfg.Health.MaxErrorRate)
	assert.True(t, cfg.Health.AlertOnError)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[github]
token = "from-file"

[invoker]
command_delay = "50ms"
retry_delay = "2s"

[notifications]
slack_webhook = "https://hooks.example.com/x"

[notifications.email]
smtp_host = "smtp.example.com"
from = "bot@example.com"
recipients = ["a@example.com", "b@example.com"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("GITHUB_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.GitHub.Token)
	assert.Equal(t, 50*time.Millisecond, cfg.Invoker.CommandDelay.Std())
	assert.Equal(t, 2*time.Second, cfg.Invoker.RetryDelay.Std())
	assert.Equal(t, "https://hooks.example.com/x", cfg.Notifications.SlackWebhook)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notifications.Email.Recipients)
	assert.Equal(t, 587, cfg.Notifications.Email.SMTPPort)
}

func TestLoad_InvalidTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[github\ntoken="), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConfigParse))
}

func TestValidate_RequiresToken(t *testing.T) {
	cfg := Default()
	assert.True(t, errors.Is(cfg.Validate(), apperr.ErrTokenMissing))

	cfg.GitHub.Token = "ghp_x"
	assert.NoError(t, cfg.Validate())
}

func TestJiraEnabled(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.JiraEnabled())

	cfg.Jira = JiraConfig{BaseURL: "https://jira.example.com", Username: "u", Token: "t", Ticket: "OPS-1"}
	assert.True(t, cfg.JiraEnabled())
}
