// Package github talks to the GitHub REST API and reads local clones.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/clintrovert/scrummaster/internal/apperr"
	"github.com/clintrovert/scrummaster/pkg/types"
)

// Option configures a Client
type Option func(*Client) error

// WithBaseURL points the client at another API root, e.g. GitHub
// Enterprise or a test server
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		if raw == "" {
			return nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("failed to parse base url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.api.BaseURL = u
		return nil
	}
}

// Client wraps the GitHub API calls the scrum pipeline needs
type Client struct {
	api    *github.Client
	logger *zap.Logger
}

// NewClient creates a new GitHub client authenticated with token
func NewClient(token string, logger *zap.Logger, opts ...Option) (*Client, error) {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		api:    github.NewClient(tc),
		logger: logger,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AuthenticatedUser returns the login the token belongs to
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	user, _, err := c.api.Users.Get(ctx, "")
	if err != nil {
		return "", mapError(err, "get authenticated user", false)
	}
	return user.GetLogin(), nil
}

// FetchRepository collects the metadata, layout and manifests of a
// repository
func (c *Client) FetchRepository(ctx context.Context, owner, repo string) (*types.Repository, error) {
	r, _, err := c.api.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, mapError(err, "get repository", false)
	}

	out := &types.Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		URL:           r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Language:      r.GetLanguage(),
		Size:          r.GetSize(),
		Stargazers:    r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		IsPrivate:     r.GetPrivate(),
		HasIssues:     r.GetHasIssues(),
		HasProjects:   r.GetHasProjects(),
		HasWiki:       r.GetHasWiki(),
		CreatedAt:     r.GetCreatedAt().Time,
		UpdatedAt:     r.GetUpdatedAt().Time,
		PushedAt:      r.GetPushedAt().Time,
		Description:   r.GetDescription(),
		Topics:        r.Topics,
		License:       r.GetLicense().GetName(),
	}

	languages, _, err := c.api.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		return nil, mapError(err, "list languages", false)
	}
	out.Languages = languages

	_, root, _, err := c.api.Repositories.GetContents(ctx, owner, repo, "", nil)
	if err != nil {
		return nil, mapError(err, "list repository contents", false)
	}

	l := layout{}
	for _, item := range root {
		l.entries = append(l.entries, entry{name: item.GetName(), dir: item.GetType() == "dir"})
	}
	if l.has(".github", true) {
		l.workflows = c.listNames(ctx, owner, repo, ".github/workflows")
	}
	l.apply(out)

	if out.HasReadme {
		readme, _, err := c.api.Repositories.GetReadme(ctx, owner, repo, nil)
		if err == nil {
			out.Readme, _ = readme.GetContent()
		} else {
			c.logger.Warn("failed to fetch readme", zap.String("repo", out.FullName), zap.Error(err))
		}
	}

	if l.has("package.json", false) {
		content, err := c.fileContent(ctx, owner, repo, "package.json")
		if err != nil {
			c.logger.Warn("failed to fetch package.json", zap.String("repo", out.FullName), zap.Error(err))
		} else if out.PackageJSON, err = ParsePackageJSON(content); err != nil {
			c.logger.Warn("failed to parse package.json", zap.String("repo", out.FullName), zap.Error(err))
		}
	}

	if l.has("requirements.txt", false) {
		content, err := c.fileContent(ctx, owner, repo, "requirements.txt")
		if err == nil {
			out.Requirements = ParseRequirements(content)
		}
	}

	c.logger.Info("fetched repository",
		zap.String("repo", out.FullName),
		zap.String("language", out.Language),
		zap.Int("size", out.Size),
	)
	return out, nil
}

func (c *Client) listNames(ctx context.Context, owner, repo, path string) []string {
	_, dir, _, err := c.api.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(dir))
	for _, item := range dir {
		names = append(names, item.GetName())
	}
	return names
}

func (c *Client) fileContent(ctx context.Context, owner, repo, path string) (string, error) {
	file, _, _, err := c.api.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		return "", mapError(err, "get "+path, false)
	}
	if file == nil {
		return "", fmt.Errorf("failed to get %s: not a file", path)
	}
	return file.GetContent()
}

// CreateProject creates an organization project board
func (c *Client) CreateProject(ctx context.Context, plan types.ProjectPlan) (*types.GitHubProject, error) {
	p, _, err := c.api.Organizations.CreateProject(ctx, plan.Organization, &github.ProjectOptions{
		Name: github.String(plan.Name),
		Body: github.String(plan.Description),
	})
	if err != nil {
		return nil, mapError(err, "create project", true)
	}

	project := &types.GitHubProject{
		ID:          p.GetID(),
		Number:      p.GetNumber(),
		URL:         p.GetHTMLURL(),
		Title:       p.GetName(),
		Description: p.GetBody(),
	}

	c.logger.Info("created project",
		zap.String("organization", plan.Organization),
		zap.Int64("project_id", project.ID),
		zap.String("project_url", project.URL),
	)
	return project, nil
}

// CreateProjectColumn adds a column to a project board and returns its id
func (c *Client) CreateProjectColumn(ctx context.Context, projectID int64, name string) (int64, error) {
	col, _, err := c.api.Projects.CreateProjectColumn(ctx, projectID, &github.ProjectColumnOptions{Name: name})
	if err != nil {
		return 0, mapError(err, "create project column", true)
	}
	return col.GetID(), nil
}

// AddIssueCard puts an issue on a board column
func (c *Client) AddIssueCard(ctx context.Context, columnID, issueID int64) error {
	_, _, err := c.api.Projects.CreateProjectCard(ctx, columnID, &github.ProjectCardOptions{
		ContentID:   issueID,
		ContentType: "Issue",
	})
	if err != nil {
		return mapError(err, "create project card", true)
	}
	return nil
}

// CreateIssue opens an issue from a draft
func (c *Client) CreateIssue(ctx context.Context, draft types.IssueDraft) (*types.GitHubIssue, error) {
	labels := append([]string(nil), draft.Labels...)
	issue, _, err := c.api.Issues.Create(ctx, draft.Owner, draft.Repo, &github.IssueRequest{
		Title:  github.String(draft.Title),
		Body:   github.String(draft.Body),
		Labels: &labels,
	})
	if err != nil {
		return nil, mapError(err, "create issue", false)
	}

	c.logger.Debug("created issue",
		zap.String("repo", draft.Owner+"/"+draft.Repo),
		zap.Int("number", issue.GetNumber()),
		zap.String("kind", string(draft.Kind)),
	)

	return &types.GitHubIssue{
		ID:          issue.GetID(),
		Number:      issue.GetNumber(),
		Title:       issue.GetTitle(),
		URL:         issue.GetHTMLURL(),
		Kind:        draft.Kind,
		Priority:    draft.Priority,
		StoryPoints: draft.StoryPoints,
		Labels:      labels,
	}, nil
}

// EnsureLabel creates a label, treating an existing one as success
func (c *Client) EnsureLabel(ctx context.Context, owner, repo, name, color, description string) error {
	label := &github.Label{Name: github.String(name), Color: github.String(color)}
	if description != "" {
		label.Description = github.String(description)
	}
	_, _, err := c.api.Issues.CreateLabel(ctx, owner, repo, label)
	if err == nil {
		return nil
	}
	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil && resp.Response.StatusCode == http.StatusUnprocessableEntity {
		return nil
	}
	return mapError(err, "create label", false)
}

// CreateMilestone creates a milestone due at due and returns its number
func (c *Client) CreateMilestone(ctx context.Context, owner, repo, title, description string, due time.Time) (int, error) {
	m, _, err := c.api.Issues.CreateMilestone(ctx, owner, repo, &github.Milestone{
		Title:       github.String(title),
		Description: github.String(description),
		DueOn:       &github.Timestamp{Time: due},
	})
	if err != nil {
		return 0, mapError(err, "create milestone", false)
	}
	return m.GetNumber(), nil
}

// AssignIssueToSprint sets the issue milestone and adds the sprint label
func (c *Client) AssignIssueToSprint(ctx context.Context, owner, repo string, number, milestone int, label string) error {
	if _, _, err := c.api.Issues.Edit(ctx, owner, repo, number, &github.IssueRequest{Milestone: &milestone}); err != nil {
		return mapError(err, "set issue milestone", false)
	}
	if _, _, err := c.api.Issues.AddLabelsToIssue(ctx, owner, repo, number, []string{label}); err != nil {
		return mapError(err, "add sprint label", false)
	}
	return nil
}

// mapError converts go-github errors into application errors. The messages
// carry the phrases batch execution treats as critical.
func mapError(err error, action string, project bool) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("failed to %s: %w", action, apperr.ErrRateLimited.WithError(err))
	}

	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		switch resp.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("failed to %s: %w", action, apperr.ErrAuthentication.WithError(err))
		case http.StatusForbidden:
			return fmt.Errorf("failed to %s: %w", action, apperr.ErrPermissions.WithError(err))
		case http.StatusNotFound:
			if project {
				return fmt.Errorf("failed to %s: %w", action, apperr.ErrProjectNotFound.WithError(err))
			}
			return fmt.Errorf("failed to %s: %w", action, apperr.ErrNotFound.WithError(err))
		}
	}
	return fmt.Errorf("failed to %s: %w", action, apperr.ErrRequest.WithError(err))
}

// ParsePackageJSON decodes the fields of package.json used for analysis
func ParsePackageJSON(content string) (*types.PackageManifest, error) {
	var m types.PackageManifest
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return nil, fmt.Errorf("failed to decode package.json: %w", err)
	}
	return &m, nil
}

// ParseRequirements returns the package names listed in requirements.txt
func ParseRequirements(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if idx := strings.IndexAny(line, "=<>~![; "); idx > 0 {
			line = line[:idx]
		}
		out = append(out, line)
	}
	return out
}
