// Package cli builds the scrummaster command tree
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/command"
	"github.com/clintrovert/scrummaster/internal/config"
	"github.com/clintrovert/scrummaster/internal/engine"
	"github.com/clintrovert/scrummaster/internal/github"
	"github.com/clintrovert/scrummaster/internal/planner"
)

// Version of the command line tool
const Version = "1.0.0"

// GitHubAPI is the GitHub client used by the commands
type GitHubAPI interface {
	engine.API
	AuthenticatedUser(ctx context.Context) (string, error)
}

// App carries the process wiring. Zero fields select the real
// implementations.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// NewAPI builds the GitHub client once the configuration is resolved
	NewAPI func(cfg *config.Config, logger *zap.Logger) (GitHubAPI, error)
	// Logger replaces the logger built from --log-level
	Logger *zap.Logger
	// InvokerOptions are appended to the options derived from the config
	InvokerOptions []command.Option

	configPath string
	logLevel   string
}

// NewRootCommand creates the command tree
func NewRootCommand(app *App) *cobra.Command {
	if app.In == nil {
		app.In = os.Stdin
	}
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.Err == nil {
		app.Err = os.Stderr
	}
	if app.NewAPI == nil {
		app.NewAPI = newGitHubAPI
	}

	root := &cobra.Command{
		Use:           "scrummaster",
		Short:         "Semi-Autonomous Scrum Master CLI",
		Long:          "scrummaster analyses a GitHub repository and sets up a scrum project board, backlog issues and a first sprint for it.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file path (default ~/.scrummaster/config.toml)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		app.newSetupCommand(),
		app.newInteractiveCommand(),
		app.newHealthCommand(),
		app.newStatusCommand(),
		app.newMonitorCommand(),
		app.newAnalyzeCommand(),
		app.newServeCommand(),
	)
	return root
}

func (a *App) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	return cfg, nil
}

func (a *App) logger(cfg *config.Config) (*zap.Logger, error) {
	if a.Logger != nil {
		return a.Logger, nil
	}
	return newLogger(cfg.Logging.Level)
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level: %w", err)
		}
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func newGitHubAPI(cfg *config.Config, logger *zap.Logger) (GitHubAPI, error) {
	return github.NewClient(cfg.GitHub.Token, logger, github.WithBaseURL(cfg.GitHub.BaseURL))
}

// session is the resolved configuration plus the objects built from it
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	api    GitHubAPI
	engine *engine.Engine
}

// newSession resolves config, validates the token and builds the engine.
// Nothing touches the network before validation passes.
func (a *App) newSession() (*session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := a.logger(cfg)
	if err != nil {
		return nil, err
	}

	api, err := a.NewAPI(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	invokerOpts := append([]command.Option{
		command.WithCommandDelay(cfg.Invoker.CommandDelay.Std()),
	}, a.InvokerOptions...)
	invoker := command.NewInvoker(logger, invokerOpts...)

	opts := []engine.Option{
		engine.WithRetry(cfg.Invoker.MaxRetries, cfg.Invoker.RetryDelay.Std()),
		engine.WithSummary(a.Out),
	}
	if cfg.OpenAI.APIKey != "" {
		var aiOpts []planner.AIOption
		if cfg.OpenAI.BaseURL != "" {
			aiOpts = append(aiOpts, planner.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		opts = append(opts, engine.WithPlanner(planner.NewAIPlanner(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger, aiOpts...)))
	}

	return &session{
		cfg:    cfg,
		logger: logger,
		api:    api,
		engine: engine.New(api, invoker, logger, opts...),
	}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}
