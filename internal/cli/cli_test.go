package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/apperr"
	"github.com/clintrovert/scrummaster/internal/config"
	"github.com/clintrovert/scrummaster/pkg/types"
)

type fakeGitHub struct {
	mu     sync.Mutex
	issues int
	orgs   []string
}

func (f *fakeGitHub) AuthenticatedUser(context.Context) (string, error) { return "octocat", nil }

func (f *fakeGitHub) FetchRepository(_ context.Context, owner, repo string) (*types.Repository, error) {
	return &types.Repository{
		Owner:       owner,
		Name:        repo,
		FullName:    owner + "/" + repo,
		Language:    "TypeScript",
		Size:        2048,
		PackageJSON: &types.PackageManifest{Dependencies: map[string]string{"react": "^18.2.0"}},
	}, nil
}

func (f *fakeGitHub) CreateProject(_ context.Context, plan types.ProjectPlan) (*types.GitHubProject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs = append(f.orgs, plan.Organization)
	return &types.GitHubProject{ID: 7, Number: 1, URL: "https://github.com/orgs/acme/projects/1", Title: plan.Name}, nil
}

func (f *fakeGitHub) CreateIssue(_ context.Context, d types.IssueDraft) (*types.GitHubIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issues++
	return &types.GitHubIssue{ID: int64(f.issues), Number: f.issues, Title: d.Title, Kind: d.Kind, Priority: d.Priority, StoryPoints: d.StoryPoints}, nil
}

func (f *fakeGitHub) EnsureLabel(context.Context, string, string, string, string, string) error {
	return nil
}

func (f *fakeGitHub) CreateMilestone(context.Context, string, string, string, string, time.Time) (int, error) {
	return 1, nil
}

func (f *fakeGitHub) AssignIssueToSprint(context.Context, string, string, int, int, string) error {
	return nil
}

func (f *fakeGitHub) CreateProjectColumn(_ context.Context, _ int64, name string) (int64, error) {
	return int64(len(name)), nil
}

func (f *fakeGitHub) AddIssueCard(context.Context, int64, int64) error { return nil }

// syncBuffer is written by observers running concurrently
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	app     *App
	out     *syncBuffer
	api     *fakeGitHub
	apiUsed bool
	config  string
}

func newHarness(t *testing.T, token string) *harness {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", token)
	for _, key := range []string{"SLACK_WEBHOOK_URL", "DASHBOARD_URL", "DASHBOARD_API_KEY", "JIRA_BASE_URL", "JIRA_USERNAME", "JIRA_TOKEN", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[invoker]\ncommand_delay = \"0s\"\nretry_delay = \"1ms\"\n"), 0o600))

	h := &harness{out: &syncBuffer{}, api: &fakeGitHub{}, config: path}
	h.app = &App{
		In:     strings.NewReader(""),
		Out:    h.out,
		Err:    &bytes.Buffer{},
		Logger: zap.NewNop(),
		NewAPI: func(*config.Config, *zap.Logger) (GitHubAPI, error) {
			h.apiUsed = true
			return h.api, nil
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	root := NewRootCommand(h.app)
	root.SetArgs(append([]string{"--config", h.config}, args...))
	return root.ExecuteContext(context.Background())
}

func TestSetup_MissingTokenFailsBeforeNetwork(t *testing.T) {
	h := newHarness(t, "")

	err := h.run("setup", "--repository", "https://github.com/acme/shop", "--organization", "acme")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTokenMissing))
	assert.False(t, h.apiUsed)
}

func TestSetup_RequiresOrganization(t *testing.T) {
	h := newHarness(t, "tok")

	err := h.run("setup", "--repository", "https://github.com/acme/shop")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization")
	assert.False(t, h.apiUsed)
}

func TestSetup_Success(t *testing.T) {
	h := newHarness(t, "tok")

	err := h.run("setup", "--repository", "https://github.com/acme/shop", "--organization", "acme")

	require.NoError(t, err)
	out := h.out.String()
	assert.Contains(t, out, "Project: shop")
	assert.Contains(t, out, "[PROJECT_SETUP_STARTED] Initialization - Starting project setup for shop (0%)")
	assert.Contains(t, out, "[COMPLETION] Completion - Project setup completed successfully for shop (100%)")
	assert.Contains(t, out, "Project setup completed successfully!")
	assert.Contains(t, out, "Sprint Configured: Yes")
	assert.Contains(t, out, "METRICS REPORT")
	assert.Equal(t, []string{"acme"}, h.api.orgs)
	assert.Positive(t, h.api.issues)
}

func TestSetup_EmailIsDryRun(t *testing.T) {
	h := newHarness(t, "tok")

	err := h.run("setup", "-r", "https://github.com/acme/shop", "-o", "acme", "--email", "a@x.io, b@x.io")

	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Email would be sent: Scrum Master: Project setup completed successfully for shop")
}

func TestInteractive(t *testing.T) {
	h := newHarness(t, "tok")
	h.app.In = strings.NewReader("https://github.com/acme/shop\nacme\nStorefront\n\n\n\n")

	err := h.run("interactive")

	require.NoError(t, err)
	out := h.out.String()
	assert.Contains(t, out, "Enter GitHub repository URL: ")
	assert.Contains(t, out, "Project: Storefront")
	assert.Contains(t, out, "Project setup completed successfully!")
}

func TestInteractive_MissingTokenDoesNotPrompt(t *testing.T) {
	h := newHarness(t, "")

	err := h.run("interactive")

	assert.ErrorIs(t, err, apperr.ErrTokenMissing)
	assert.NotContains(t, h.out.String(), "Enter GitHub repository URL")
}

func TestPromptSetup_ShortInput(t *testing.T) {
	_, err := promptSetup(bufio.NewScanner(strings.NewReader("https://github.com/acme/shop\n")), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, "tok")

	require.NoError(t, h.run("health"))

	out := h.out.String()
	assert.Contains(t, out, "Overall Health: Healthy")
	assert.Contains(t, out, "Last Activity: None")
	assert.Contains(t, out, "Authenticated as octocat")
}

func TestStatus(t *testing.T) {
	h := newHarness(t, "tok")

	require.NoError(t, h.run("status"))

	out := h.out.String()
	assert.Contains(t, out, "Processing: Idle")
	assert.Contains(t, out, "Current Repository: None")
	assert.Contains(t, out, "Active Observers: 0")
}

func TestStatus_MissingToken(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorIs(t, h.run("status"), apperr.ErrTokenMissing)
	assert.ErrorIs(t, h.run("health"), apperr.ErrTokenMissing)
	assert.ErrorIs(t, h.run("monitor"), apperr.ErrTokenMissing)
	assert.False(t, h.apiUsed)
}

func TestAnalyze_Remote(t *testing.T) {
	h := newHarness(t, "tok")

	require.NoError(t, h.run("analyze", "--repository", "https://github.com/acme/shop"))

	out := h.out.String()
	assert.Contains(t, out, "project_type: web-application")
	assert.Contains(t, out, "variant: react-application")
	assert.Contains(t, out, "backlog:")
	assert.Contains(t, out, "EPIC-1")
}

func TestAnalyze_FlagValidation(t *testing.T) {
	h := newHarness(t, "tok")

	assert.ErrorIs(t, h.run("analyze"), apperr.ErrMissingFlag)
	assert.ErrorIs(t, h.run("analyze", "-r", "https://github.com/a/b", "--local", "."), apperr.ErrMissingFlag)
	assert.ErrorIs(t, h.run("analyze", "-r", "notaurl"), apperr.ErrInvalidRepositoryURL)
	assert.False(t, h.apiUsed)
}

func TestExtractRepoName(t *testing.T) {
	tests := map[string]string{
		"https://github.com/acme/shop":     "shop",
		"https://github.com/acme/shop.git": "shop",
		"git@github.com:acme/tools.git":    "tools",
		"https://gitlab.com/acme/shop":     unknownProject,
		"":                                 unknownProject,
	}
	for url, want := range tests {
		assert.Equal(t, want, extractRepoName(url), url)
	}
}

func TestBuildObservers(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.SlackWebhook = "https://hooks.slack.test/config"

	s := buildObservers(cfg, setupOptions{}, nil, &bytes.Buffer{}, zap.NewNop())
	assert.NotNil(t, s.slack)
	assert.Nil(t, s.email)
	assert.Nil(t, s.dashboard)
	assert.Nil(t, s.webhook)
	assert.Nil(t, s.jira)
	assert.Len(t, s.all(), 4)

	s = buildObservers(cfg, setupOptions{
		email:        "a@x.io, ,b@x.io",
		dashboardURL: "https://dash.test",
		dashboardKey: "key",
		webhook:      "https://hook.test",
	}, nil, &bytes.Buffer{}, zap.NewNop())
	require.NotNil(t, s.email)
	assert.True(t, s.email.Enabled())
	assert.True(t, s.dashboard.Enabled())
	assert.NotNil(t, s.webhook)
	assert.Len(t, s.all(), 7)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a,, b ,"))
	assert.Nil(t, splitList(""))
}
