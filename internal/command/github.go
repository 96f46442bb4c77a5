package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clintrovert/scrummaster/pkg/types"
)

// BoardColumns are created in order on every new board
var BoardColumns = []string{"To Do", "In Progress", "Review", "Done"}

// GitHub is the set of API calls the commands need
type GitHub interface {
	CreateProject(ctx context.Context, plan types.ProjectPlan) (*types.GitHubProject, error)
	CreateIssue(ctx context.Context, draft types.IssueDraft) (*types.GitHubIssue, error)
	EnsureLabel(ctx context.Context, owner, repo, name, color, description string) error
	CreateMilestone(ctx context.Context, owner, repo, title, description string, due time.Time) (int, error)
	AssignIssueToSprint(ctx context.Context, owner, repo string, number, milestone int, label string) error
	CreateProjectColumn(ctx context.Context, projectID int64, name string) (int64, error)
	AddIssueCard(ctx context.Context, columnID, issueID int64) error
}

// CreateProjectCommand creates an organization project board
type CreateProjectCommand struct {
	api  GitHub
	plan types.ProjectPlan
}

// NewCreateProjectCommand creates the command
func NewCreateProjectCommand(api GitHub, plan types.ProjectPlan) *CreateProjectCommand {
	return &CreateProjectCommand{api: api, plan: plan}
}

// Execute creates the project. Data is a *types.GitHubProject.
func (c *CreateProjectCommand) Execute(ctx context.Context) Result {
	project, err := c.api.CreateProject(ctx, c.plan)
	if err != nil {
		return Failed(err)
	}
	return Succeeded(project)
}

func (c *CreateProjectCommand) Description() string { return "Create Project: " + c.plan.Name }
func (c *CreateProjectCommand) Type() Type          { return TypeCreateProject }

func (c *CreateProjectCommand) Metadata() map[string]any {
	return map[string]any{
		"organization": c.plan.Organization,
		"name":         c.plan.Name,
	}
}

// CreateIssuesCommand creates a list of issues, making sure their labels
// exist first
type CreateIssuesCommand struct {
	api    GitHub
	drafts []types.IssueDraft
	label  string
}

// NewCreateIssuesCommand creates the command. label names the group in
// descriptions, e.g. "Epic".
func NewCreateIssuesCommand(api GitHub, label string, drafts []types.IssueDraft) *CreateIssuesCommand {
	return &CreateIssuesCommand{api: api, label: label, drafts: drafts}
}

// Execute creates the issues in order and stops at the first failure.
// Data is the []types.GitHubIssue created so far, also on failure.
func (c *CreateIssuesCommand) Execute(ctx context.Context) Result {
	created := make([]types.GitHubIssue, 0, len(c.drafts))

	ensured := make(map[string]bool)
	for _, d := range c.drafts {
		for _, l := range d.Labels {
			if ensured[d.Owner+"/"+d.Repo+":"+l] {
				continue
			}
			if err := c.api.EnsureLabel(ctx, d.Owner, d.Repo, l, LabelColor(l), ""); err != nil {
				return FailedWith(fmt.Errorf("failed to ensure label %q: %w", l, err), created)
			}
			ensured[d.Owner+"/"+d.Repo+":"+l] = true
		}
	}

	for _, d := range c.drafts {
		issue, err := c.api.CreateIssue(ctx, d)
		if err != nil {
			return FailedWith(fmt.Errorf("failed to create issue %q: %w", d.Title, err), created)
		}
		created = append(created, *issue)
	}
	return Succeeded(created)
}

func (c *CreateIssuesCommand) Description() string {
	if c.label == "" {
		return fmt.Sprintf("Create %d Issues", len(c.drafts))
	}
	return fmt.Sprintf("Create %d %s Issues", len(c.drafts), c.label)
}

func (c *CreateIssuesCommand) Type() Type { return TypeCreateIssues }

func (c *CreateIssuesCommand) Metadata() map[string]any {
	return map[string]any{
		"count": len(c.drafts),
		"group": c.label,
	}
}

// SetupSprintCommand creates a sprint label and milestone and assigns the
// most urgent issues that fit the sprint capacity
type SetupSprintCommand struct {
	api    GitHub
	plan   types.SprintPlan
	issues []types.GitHubIssue
}

// NewSetupSprintCommand creates the command
func NewSetupSprintCommand(api GitHub, plan types.SprintPlan, issues []types.GitHubIssue) *SetupSprintCommand {
	return &SetupSprintCommand{api: api, plan: plan, issues: issues}
}

// Execute configures the sprint. Data is a types.SprintSetup.
func (c *SetupSprintCommand) Execute(ctx context.Context) Result {
	p := c.plan
	label := SprintLabel(p.Number)
	title := fmt.Sprintf("Sprint %d: %s", p.Number, p.Name)
	end := p.StartDate.Add(p.Duration)

	if err := c.api.EnsureLabel(ctx, p.Owner, p.Repo, label, LabelColor(label), title); err != nil {
		return Failed(fmt.Errorf("failed to create sprint label: %w", err))
	}

	description := fmt.Sprintf("%s, %s to %s", title, p.StartDate.Format(time.DateOnly), end.Format(time.DateOnly))
	milestone, err := c.api.CreateMilestone(ctx, p.Owner, p.Repo, title, description, end)
	if err != nil {
		return Failed(fmt.Errorf("failed to create sprint milestone: %w", err))
	}

	setup := types.SprintSetup{
		Number:          p.Number,
		Name:            p.Name,
		StartDate:       p.StartDate,
		EndDate:         end,
		SprintLabel:     label,
		MilestoneNumber: milestone,
	}

	for _, issue := range SelectSprintIssues(c.issues, p.Capacity) {
		if err := c.api.AssignIssueToSprint(ctx, p.Owner, p.Repo, issue.Number, milestone, label); err != nil {
			return FailedWith(fmt.Errorf("failed to assign issue #%d: %w", issue.Number, err), setup)
		}
		setup.IssuesAssigned++
		setup.StoryPoints += issue.StoryPoints
	}
	return Succeeded(setup)
}

func (c *SetupSprintCommand) Description() string { return "Setup Sprint: " + c.plan.Name }
func (c *SetupSprintCommand) Type() Type          { return TypeSetupSprint }

func (c *SetupSprintCommand) Metadata() map[string]any {
	return map[string]any{
		"number":   c.plan.Number,
		"capacity": c.plan.Capacity,
		"issues":   len(c.issues),
	}
}

// UpdateBoardCommand creates the board columns and puts every issue in
// the first one
type UpdateBoardCommand struct {
	api     GitHub
	project types.GitHubProject
	issues  []types.GitHubIssue
}

// NewUpdateBoardCommand creates the command
func NewUpdateBoardCommand(api GitHub, project types.GitHubProject, issues []types.GitHubIssue) *UpdateBoardCommand {
	return &UpdateBoardCommand{api: api, project: project, issues: issues}
}

// Execute configures the board. Data is a types.BoardSetup.
func (c *UpdateBoardCommand) Execute(ctx context.Context) Result {
	board := types.BoardSetup{Columns: make(map[string]int64, len(BoardColumns))}

	for _, name := range BoardColumns {
		id, err := c.api.CreateProjectColumn(ctx, c.project.ID, name)
		if err != nil {
			return FailedWith(fmt.Errorf("failed to create column %q: %w", name, err), board)
		}
		board.Columns[name] = id
	}

	todo := board.Columns[BoardColumns[0]]
	for _, issue := range c.issues {
		if err := c.api.AddIssueCard(ctx, todo, issue.ID); err != nil {
			return FailedWith(fmt.Errorf("failed to add issue #%d to board: %w", issue.Number, err), board)
		}
		board.ItemsUpdated++
	}
	return Succeeded(board)
}

func (c *UpdateBoardCommand) Description() string { return "Update Board: " + c.project.Title }
func (c *UpdateBoardCommand) Type() Type          { return TypeUpdateBoard }

func (c *UpdateBoardCommand) Metadata() map[string]any {
	return map[string]any{
		"project_id": c.project.ID,
		"items":      len(c.issues),
	}
}

// SprintLabel returns the label used for sprint n
func SprintLabel(n int) string {
	return fmt.Sprintf("sprint-%d", n)
}

// SelectSprintIssues picks stories and tasks in priority order until the
// capacity in story points is used up. Epics span sprints and are never
// selected. A non-positive capacity selects everything.
func SelectSprintIssues(issues []types.GitHubIssue, capacity int) []types.GitHubIssue {
	candidates := make([]types.GitHubIssue, 0, len(issues))
	for _, issue := range issues {
		if issue.Kind != types.IssueKindEpic {
			candidates = append(candidates, issue)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority.Rank() < candidates[j].Priority.Rank()
	})
	if capacity <= 0 {
		return candidates
	}

	var selected []types.GitHubIssue
	used := 0
	for _, issue := range candidates {
		if used+issue.StoryPoints > capacity {
			continue
		}
		used += issue.StoryPoints
		selected = append(selected, issue)
	}
	return selected
}

// LabelColor returns the hex color for a managed label
func LabelColor(name string) string {
	switch name {
	case "epic":
		return "3E4B9E"
	case "user-story":
		return "0E8A16"
	case "task":
		return "C5DEF5"
	case "priority-critical":
		return "B60205"
	case "priority-high":
		return "D93F0B"
	case "priority-medium":
		return "FBCA04"
	case "priority-low":
		return "BFD4F2"
	}
	if strings.HasPrefix(name, "sprint-") {
		return "1D76DB"
	}
	return "EDEDED"
}
