package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/apperr"
	"github.com/clintrovert/scrummaster/internal/engine"
	"github.com/clintrovert/scrummaster/internal/github"
	"github.com/clintrovert/scrummaster/internal/jira"
)

const unknownProject = "unknown-project"

// setupOptions are the flags of the setup command
type setupOptions struct {
	repository   string
	organization string
	title        string
	description  string
	slackWebhook string
	email        string
	dashboardURL string
	dashboardKey string
	webhook      string
	jiraTicket   string
	logFile      string
}

func (a *App) newSetupCommand() *cobra.Command {
	var opts setupOptions
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Setup a new GitHub project with scrum methodology",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSetup(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.repository, "repository", "r", "", "GitHub repository URL")
	f.StringVarP(&opts.organization, "organization", "o", "", "GitHub organization ID")
	f.StringVarP(&opts.title, "title", "t", "", "project title (defaults to repository name)")
	f.StringVarP(&opts.description, "description", "d", "", "project description")
	f.StringVar(&opts.slackWebhook, "slack-webhook", "", "Slack webhook URL for notifications")
	f.StringVar(&opts.email, "email", "", "email addresses for notifications (comma-separated)")
	f.StringVar(&opts.dashboardURL, "dashboard-url", "", "dashboard service URL")
	f.StringVar(&opts.dashboardKey, "dashboard-key", "", "dashboard API key")
	f.StringVar(&opts.webhook, "webhook", "", "generic webhook URL")
	f.StringVar(&opts.jiraTicket, "jira-ticket", "", "Jira ticket to mirror progress to (also supplies the repository)")
	f.StringVar(&opts.logFile, "log-file", "", "append event log lines to this file")
	_ = cmd.MarkFlagRequired("organization")

	return cmd
}

func (a *App) newInteractiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start interactive mode for project setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			// fail before prompting when the token is missing
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			fmt.Fprintln(a.Out, titleStyle.Render("Interactive Project Setup"))
			fmt.Fprintln(a.Out, "============================")

			opts, err := promptSetup(bufio.NewScanner(a.In), a.Out)
			if err != nil {
				return fmt.Errorf("interactive setup failed: %w", err)
			}
			return a.runSetup(cmd, opts)
		},
	}
}

// promptSetup asks for the setup options one line at a time
func promptSetup(in *bufio.Scanner, out io.Writer) (setupOptions, error) {
	ask := func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimSpace(in.Text()), nil
	}

	var opts setupOptions
	var err error
	if opts.repository, err = ask("Enter GitHub repository URL: "); err != nil {
		return opts, err
	}
	if opts.organization, err = ask("Enter GitHub organization ID: "); err != nil {
		return opts, err
	}
	if opts.title, err = ask("Enter project title (or press Enter for default): "); err != nil {
		return opts, err
	}
	if opts.description, err = ask("Enter project description (optional): "); err != nil {
		return opts, err
	}
	if opts.slackWebhook, err = ask("Enter Slack webhook URL (optional): "); err != nil {
		return opts, err
	}
	if opts.email, err = ask("Enter email addresses for notifications (comma-separated, optional): "); err != nil {
		return opts, err
	}
	return opts, nil
}

func (a *App) runSetup(cmd *cobra.Command, opts setupOptions) error {
	s, err := a.newSession()
	if err != nil {
		return err
	}
	defer s.close()

	if opts.organization == "" {
		return apperr.ErrMissingFlag.WithContext("flag", "organization")
	}

	var tracker *jira.Client
	if opts.jiraTicket != "" {
		s.cfg.Jira.Ticket = opts.jiraTicket
	}
	if s.cfg.JiraEnabled() {
		if tracker, err = jira.NewClient(s.cfg.Jira.BaseURL, s.cfg.Jira.Username, s.cfg.Jira.Token, s.cfg.Jira.RepositoryField, s.logger); err != nil {
			return err
		}
		if opts.repository == "" {
			ticket, err := tracker.GetTicket(s.cfg.Jira.Ticket)
			if err != nil {
				return err
			}
			opts.repository = ticket.RepositoryURL
			s.logger.Info("using repository from jira ticket",
				zap.String("ticket", ticket.Key),
				zap.String("repository_url", ticket.RepositoryURL),
			)
		}
	}
	if opts.repository == "" {
		return apperr.ErrMissingFlag.WithContext("flag", "repository")
	}

	title := opts.title
	if title == "" {
		title = extractRepoName(opts.repository)
	}
	description := opts.description
	if description == "" {
		description = "Scrum project for " + title
	}

	sinks := buildObservers(s.cfg, opts, tracker, a.Out, s.logger)
	for _, o := range sinks.all() {
		s.engine.AddObserver(o)
	}

	fmt.Fprintln(a.Out, titleStyle.Render("Starting Semi-Autonomous Scrum Master..."))
	fmt.Fprintln(a.Out, "==========================================")
	fmt.Fprintf(a.Out, "Project: %s\n", title)
	fmt.Fprintf(a.Out, "Repository: %s\n", opts.repository)
	fmt.Fprintf(a.Out, "Organization: %s\n", opts.organization)
	fmt.Fprintln(a.Out)

	result := s.engine.SetupProject(cmd.Context(), engine.SetupRequest{
		RepositoryURL: opts.repository,
		Title:         title,
		Description:   description,
		Organization:  opts.organization,
	})

	if !result.Success {
		fmt.Fprintln(a.Out, badStyle.Render("Project setup failed:"))
		fmt.Fprintln(a.Out, result.Error)
		return fmt.Errorf("project setup failed: %s", result.Error)
	}

	fmt.Fprintln(a.Out, goodStyle.Render("Project setup completed successfully!"))
	fmt.Fprintf(a.Out, "Project URL: %s\n", result.ProjectURL)
	fmt.Fprintf(a.Out, "Issues Created: %d\n", result.IssuesCreated)
	fmt.Fprintf(a.Out, "Sprint Configured: %s\n", yesNo(result.SprintConfigured))
	fmt.Fprintln(a.Out)
	fmt.Fprintln(a.Out, sinks.metrics.Report())
	return nil
}

// extractRepoName returns the repository name of a GitHub URL
func extractRepoName(url string) string {
	_, repo, err := github.ParseRepositoryURL(url)
	if err != nil {
		return unknownProject
	}
	return repo
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
