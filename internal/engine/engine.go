// Package engine drives the project setup pipeline: analyse a repository,
// create a project board, turn the backlog into issues, plan the first
// sprint and configure the board. Every step is announced on the embedded
// event bus.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/analysis"
	"github.com/clintrovert/scrummaster/internal/command"
	"github.com/clintrovert/scrummaster/internal/events"
	"github.com/clintrovert/scrummaster/internal/github"
	"github.com/clintrovert/scrummaster/internal/planner"
	"github.com/clintrovert/scrummaster/pkg/types"
)

const (
	// SprintName is the name of the first sprint of every project
	SprintName     = "Foundation Sprint"
	SprintDuration = 14 * 24 * time.Hour

	recentWindow = 10
)

// API is what the engine needs from GitHub
type API interface {
	command.GitHub
	FetchRepository(ctx context.Context, owner, repo string) (*types.Repository, error)
}

// SetupRequest describes the project to set up
type SetupRequest struct {
	RepositoryURL string
	Title         string
	Description   string
	Organization  string
}

// SetupResult is the outcome of SetupProject. Failures are reported here,
// never as a returned error.
type SetupResult struct {
	Success          bool                 `json:"success"`
	Project          *types.GitHubProject `json:"project,omitempty"`
	Repository       *types.Repository    `json:"repository,omitempty"`
	Model            *types.ProjectModel  `json:"-"`
	Sprint           *types.SprintSetup   `json:"sprint,omitempty"`
	IssuesCreated    int                  `json:"issues_created"`
	SprintConfigured bool                 `json:"sprint_configured"`
	ProjectURL       string               `json:"project_url,omitempty"`
	Error            string               `json:"error,omitempty"`
	Message          string               `json:"message"`
}

// HealthReport combines invoker health with recent event activity
type HealthReport struct {
	Overall        bool                 `json:"overall"`
	CommandInvoker command.HealthStatus `json:"command_invoker"`
	RecentEvents   int                  `json:"recent_events"`
	ErrorEvents    int                  `json:"error_events"`
	IsProcessing   bool                 `json:"is_processing"`
	LastActivity   *time.Time           `json:"last_activity,omitempty"`
}

// ProcessingStatus is a snapshot of what the engine is doing
type ProcessingStatus struct {
	IsProcessing      bool              `json:"is_processing"`
	CurrentRepository string            `json:"current_repository,omitempty"`
	CurrentProject    types.ProjectType `json:"current_project,omitempty"`
	LastEvent         *events.Event     `json:"last_event,omitempty"`
	TotalObservers    int               `json:"total_observers"`
}

// Option configures an Engine
type Option func(*Engine)

// WithPlanner replaces the planner that turns a model into a backlog
func WithPlanner(p planner.Planner) Option {
	return func(e *Engine) { e.planner = p }
}

// WithClock sets the time source used for analysis and sprint dates
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRetry sets the retry policy for project creation
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(e *Engine) {
		e.maxRetries = maxRetries
		e.retryDelay = delay
	}
}

// WithSummary sets where the completion summary is printed
func WithSummary(w io.Writer) Option {
	return func(e *Engine) { e.summary = w }
}

// Engine is the facade over analysis, planning and the GitHub commands
type Engine struct {
	*events.Bus

	api        API
	invoker    *command.Invoker
	factory    *analysis.Factory
	planner    planner.Planner
	logger     *zap.Logger
	now        func() time.Time
	summary    io.Writer
	maxRetries int
	retryDelay time.Duration

	processing atomic.Bool

	mu         sync.Mutex
	repository *types.Repository
	model      *types.ProjectModel
}

// New creates an engine. Batch progress from invoker is republished as
// progress events.
func New(api API, invoker *command.Invoker, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if invoker == nil {
		invoker = command.NewInvoker(logger)
	}

	e := &Engine{
		Bus:        events.NewBus(logger),
		api:        api,
		invoker:    invoker,
		planner:    planner.RecommendationPlanner{},
		logger:     logger,
		now:        time.Now,
		summary:    io.Discard,
		maxRetries: command.DefaultMaxRetries,
		retryDelay: command.DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.factory = analysis.NewFactory(e.now)

	invoker.AddProgressListener(func(p command.Progress) {
		e.Notify(context.Background(), events.Event{
			Type:     events.Progress,
			Data:     p,
			Phase:    "Command Execution",
			Progress: float64(p.CurrentStep) / float64(p.TotalSteps) * 100,
			Message:  "Executing: " + p.CurrentCommand,
		})
	})

	return e
}

// Invoker returns the command invoker used by the engine
func (e *Engine) Invoker() *command.Invoker {
	return e.invoker
}

// SetupProject runs the whole pipeline. Steps already executed are left in
// place when a later step fails.
func (e *Engine) SetupProject(ctx context.Context, req SetupRequest) SetupResult {
	e.processing.Store(true)
	defer e.processing.Store(false)

	log := e.logger.With(
		zap.String("repository_url", req.RepositoryURL),
		zap.String("project", req.Title),
	)
	log.Info("starting project setup")

	e.Notify(ctx, events.Event{
		Type:     events.ProjectSetupStarted,
		Data:     map[string]any{"repository_url": req.RepositoryURL, "project_title": req.Title},
		Phase:    "Initialization",
		Progress: 0,
		Message:  "Starting project setup for " + req.Title,
	})

	result, err := e.setup(ctx, req)
	if err != nil {
		log.Error("project setup failed", zap.Error(err))
		e.Notify(ctx, events.Event{
			Type:     events.Error,
			Data:     map[string]any{"error": err.Error()},
			Phase:    "Error",
			Progress: 0,
			Message:  "Project setup failed: " + err.Error(),
		})
		result.Success = false
		result.Error = err.Error()
		result.Message = "Project setup failed"
		return result
	}

	e.Notify(ctx, events.Event{
		Type:     events.Completion,
		Data:     map[string]any{"project": result.Project, "issues": result.IssuesCreated, "sprint": result.Sprint},
		Phase:    "Completion",
		Progress: 100,
		Message:  "Project setup completed successfully for " + req.Title,
	})

	log.Info("project setup completed",
		zap.String("project_url", result.ProjectURL),
		zap.Int("issues", result.IssuesCreated),
	)

	result.Success = true
	result.Message = "Project setup completed successfully"
	return result
}

func (e *Engine) setup(ctx context.Context, req SetupRequest) (SetupResult, error) {
	var result SetupResult

	repo, model, err := e.analyze(ctx, req.RepositoryURL)
	if err != nil {
		return result, err
	}
	result.Repository = repo
	result.Model = model

	project, err := e.createProject(ctx, req)
	if err != nil {
		return result, err
	}
	result.Project = project
	result.ProjectURL = project.URL

	issues, err := e.createIssues(ctx, repo, model)
	if err != nil {
		return result, err
	}
	result.IssuesCreated = len(issues)

	sprint, err := e.setupSprint(ctx, repo, model, issues)
	if err != nil {
		return result, err
	}
	result.Sprint = sprint
	result.SprintConfigured = true

	if err := e.configureBoard(ctx, project, issues); err != nil {
		return result, err
	}

	e.printSummary(project, len(issues), sprint)
	return result, nil
}

func (e *Engine) analyze(ctx context.Context, url string) (*types.Repository, *types.ProjectModel, error) {
	e.Notify(ctx, events.Event{
		Type:     events.RepositoryAnalysisStarted,
		Data:     map[string]any{"repository_url": url},
		Phase:    "Repository Analysis",
		Progress: 10,
		Message:  "Analyzing repository structure and content",
	})

	owner, name, err := github.ParseRepositoryURL(url)
	if err != nil {
		return nil, nil, err
	}

	repo, err := e.api.FetchRepository(ctx, owner, name)
	if err != nil {
		return nil, nil, err
	}
	e.mu.Lock()
	e.repository = repo
	e.mu.Unlock()

	strategy := e.factory.Create(analysis.DetectProjectType(repo))
	model, err := strategy.Analyze(ctx, repo)
	if err != nil {
		return repo, nil, err
	}
	e.mu.Lock()
	e.model = model
	e.mu.Unlock()

	e.Notify(ctx, events.Event{
		Type:     events.RepositoryAnalysisDone,
		Data:     map[string]any{"repository": repo.FullName, "project_type": model.ProjectType},
		Phase:    "Repository Analysis",
		Progress: 20,
		Message:  fmt.Sprintf("Repository analysis completed: %s", model.ProjectType),
	})
	return repo, model, nil
}

func (e *Engine) createProject(ctx context.Context, req SetupRequest) (*types.GitHubProject, error) {
	e.Notify(ctx, events.Event{
		Type:     events.ProjectCreationStarted,
		Data:     map[string]any{"organization": req.Organization, "title": req.Title},
		Phase:    "Project Creation",
		Progress: 25,
		Message:  "Creating GitHub project: " + req.Title,
	})

	cmd := command.NewCreateProjectCommand(e.api, types.ProjectPlan{
		Organization: req.Organization,
		Name:         req.Title,
		Description:  req.Description,
	})
	res := e.invoker.ExecuteWithRetry(ctx, cmd, e.maxRetries, e.retryDelay)
	if !res.Success {
		return nil, fmt.Errorf("failed to create project: %s", res.Error)
	}

	project, ok := res.Data.(*types.GitHubProject)
	if !ok || project == nil {
		return nil, fmt.Errorf("failed to create project: unexpected result %T", res.Data)
	}

	e.Notify(ctx, events.Event{
		Type:     events.ProjectCreated,
		Data:     project,
		Phase:    "Project Creation",
		Progress: 30,
		Message:  "GitHub project created: " + req.Title,
	})
	return project, nil
}

func (e *Engine) createIssues(ctx context.Context, repo *types.Repository, model *types.ProjectModel) ([]types.GitHubIssue, error) {
	e.Notify(ctx, events.Event{
		Type:     events.IssueGenerationStarted,
		Data:     map[string]any{"repository": repo.Name},
		Phase:    "Issue Generation",
		Progress: 40,
		Message:  "Generating issues based on repository analysis",
	})

	backlog, err := e.planner.Plan(ctx, model)
	if err != nil {
		return nil, err
	}

	commands := issueCommands(e.api, repo, backlog)
	batch := e.invoker.ExecuteBatch(ctx, commands)

	var issues []types.GitHubIssue
	var firstErr string
	for _, res := range batch.Results {
		if created, ok := res.Data.([]types.GitHubIssue); ok {
			issues = append(issues, created...)
		}
		if !res.Success && firstErr == "" {
			firstErr = res.Error
		}
	}
	if batch.FailedCommands > 0 {
		return issues, fmt.Errorf("failed to create issues: %s", firstErr)
	}
	if batch.Stopped {
		return issues, fmt.Errorf("failed to create issues: %w", ctx.Err())
	}

	e.Notify(ctx, events.Event{
		Type:     events.IssuesCreated,
		Data:     map[string]any{"issues": issues},
		Phase:    "Issue Generation",
		Progress: 60,
		Message:  fmt.Sprintf("Created %d issues", len(issues)),
	})
	return issues, nil
}

// issueCommands groups the backlog into one command per artifact kind,
// epics first. Empty groups are skipped.
func issueCommands(api command.GitHub, repo *types.Repository, backlog *types.Backlog) []command.Command {
	if backlog == nil {
		return nil
	}

	var epics, stories, tasks []types.IssueDraft
	for _, epic := range backlog.Epics {
		epics = append(epics, github.EpicDraft(repo.Owner, repo.Name, epic))
	}
	for _, story := range backlog.Stories {
		stories = append(stories, github.StoryDraft(repo.Owner, repo.Name, story))
	}
	for _, task := range backlog.Tasks {
		tasks = append(tasks, github.TaskDraft(repo.Owner, repo.Name, task))
	}

	var commands []command.Command
	if len(epics) > 0 {
		commands = append(commands, command.NewCreateIssuesCommand(api, "Epic", epics))
	}
	if len(stories) > 0 {
		commands = append(commands, command.NewCreateIssuesCommand(api, "User Story", stories))
	}
	if len(tasks) > 0 {
		commands = append(commands, command.NewCreateIssuesCommand(api, "Task", tasks))
	}
	return commands
}

func (e *Engine) setupSprint(ctx context.Context, repo *types.Repository, model *types.ProjectModel, issues []types.GitHubIssue) (*types.SprintSetup, error) {
	e.Notify(ctx, events.Event{
		Type:     events.SprintSetupStarted,
		Data:     map[string]any{"issue_count": len(issues)},
		Phase:    "Sprint Setup",
		Progress: 70,
		Message:  "Setting up initial sprint",
	})

	now := e.now().UTC()
	plan := types.SprintPlan{
		Owner:     repo.Owner,
		Repo:      repo.Name,
		Number:    1,
		Name:      SprintName,
		StartDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Duration:  SprintDuration,
		Capacity:  model.Recommendations.Velocity,
	}

	res := e.invoker.ExecuteCommand(ctx, command.NewSetupSprintCommand(e.api, plan, issues))
	if !res.Success {
		return nil, fmt.Errorf("failed to setup sprint: %s", res.Error)
	}
	sprint, ok := res.Data.(types.SprintSetup)
	if !ok {
		return nil, fmt.Errorf("failed to setup sprint: unexpected result %T", res.Data)
	}

	e.Notify(ctx, events.Event{
		Type:     events.SprintSetup,
		Data:     sprint,
		Phase:    "Sprint Setup",
		Progress: 80,
		Message:  "Sprint setup completed: " + sprint.Name,
	})
	return &sprint, nil
}

func (e *Engine) configureBoard(ctx context.Context, project *types.GitHubProject, issues []types.GitHubIssue) error {
	e.Notify(ctx, events.Event{
		Type:     events.BoardConfigurationStarted,
		Data:     map[string]any{"project_id": project.ID},
		Phase:    "Board Configuration",
		Progress: 90,
		Message:  "Configuring project board views and automation",
	})

	res := e.invoker.ExecuteCommand(ctx, command.NewUpdateBoardCommand(e.api, *project, issues))
	if !res.Success {
		return fmt.Errorf("failed to configure board: %s", res.Error)
	}

	e.Notify(ctx, events.Event{
		Type:     events.BoardUpdated,
		Data:     res.Data,
		Phase:    "Board Configuration",
		Progress: 95,
		Message:  "Board configuration completed",
	})
	return nil
}

func (e *Engine) printSummary(project *types.GitHubProject, issues int, sprint *types.SprintSetup) {
	fmt.Fprintln(e.summary, "Project Setup Complete!")
	fmt.Fprintln(e.summary, "========================")
	fmt.Fprintf(e.summary, "Project: %s\n", project.Title)
	fmt.Fprintf(e.summary, "URL: %s\n", project.URL)
	fmt.Fprintf(e.summary, "Issues Created: %d\n", issues)
	fmt.Fprintf(e.summary, "Sprint: %s\n", sprint.Name)
	fmt.Fprintln(e.summary)
	fmt.Fprintln(e.summary, "Next Steps:")
	fmt.Fprintln(e.summary, "1. Review project board and customize views")
	fmt.Fprintln(e.summary, "2. Assign team members to issues")
	fmt.Fprintln(e.summary, "3. Begin sprint planning")
	fmt.Fprintln(e.summary, "4. Start development workflow")
}

// HealthCheck is healthy when the invoker is healthy and none of the last
// 10 events is an error
func (e *Engine) HealthCheck() HealthReport {
	history := e.History()
	if len(history) > recentWindow {
		history = history[len(history)-recentWindow:]
	}

	report := HealthReport{
		CommandInvoker: e.invoker.HealthCheck(),
		RecentEvents:   len(history),
		IsProcessing:   e.processing.Load(),
	}
	for _, ev := range history {
		if ev.Type == events.Error {
			report.ErrorEvents++
		}
	}
	if last, ok := e.LastEvent(); ok {
		ts := last.Timestamp
		report.LastActivity = &ts
	}
	report.Overall = report.CommandInvoker.Healthy && report.ErrorEvents == 0
	return report
}

// ProcessingStatus reports the flag and the current repository and model
func (e *Engine) ProcessingStatus() ProcessingStatus {
	status := ProcessingStatus{
		IsProcessing:   e.processing.Load(),
		TotalObservers: e.ObserverCount(),
	}

	e.mu.Lock()
	if e.repository != nil {
		status.CurrentRepository = e.repository.Name
	}
	if e.model != nil {
		status.CurrentProject = e.model.ProjectType
	}
	e.mu.Unlock()

	if last, ok := e.LastEvent(); ok {
		status.LastEvent = &last
	}
	return status
}

// CurrentModel returns the model from the most recent analysis
func (e *Engine) CurrentModel() *types.ProjectModel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}
