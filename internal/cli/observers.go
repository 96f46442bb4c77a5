package cli

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/config"
	"github.com/clintrovert/scrummaster/internal/events"
	"github.com/clintrovert/scrummaster/internal/jira"
	"github.com/clintrovert/scrummaster/internal/observers"
)

const (
	defaultSMTPHost = "localhost"
	defaultFrom     = "scrum-master@localhost"
)

// sinks are the observers attached for one setup run
type sinks struct {
	log       *observers.LogWriter
	slack     *observers.SlackNotifier
	email     *observers.EmailNotifier
	dashboard *observers.DashboardUpdater
	webhook   *observers.WebhookNotifier
	health    *observers.HealthMonitor
	metrics   *observers.MetricsCollector
	jira      *observers.JiraNotifier
}

// all returns the configured observers in registration order
func (s sinks) all() []events.Observer {
	out := []events.Observer{s.log}
	if s.slack != nil {
		out = append(out, s.slack)
	}
	if s.email != nil {
		out = append(out, s.email)
	}
	if s.dashboard != nil {
		out = append(out, s.dashboard)
	}
	if s.webhook != nil {
		out = append(out, s.webhook)
	}
	if s.jira != nil {
		out = append(out, s.jira)
	}
	return append(out, s.health, s.metrics)
}

// buildObservers merges flag values over the config file. The log,
// health and metrics sinks are always attached.
func buildObservers(cfg *config.Config, opts setupOptions, tracker *jira.Client, out io.Writer, logger *zap.Logger) sinks {
	n := cfg.Notifications

	logFile := n.LogFile
	if opts.logFile != "" {
		logFile = config.ExpandPath(opts.logFile)
	}
	s := sinks{
		log: observers.NewLogWriter(out, logFile),
		health: observers.NewHealthMonitor(observers.AlertThresholds{
			MaxErrorRate:     cfg.Health.MaxErrorRate,
			AlertOnError:     cfg.Health.AlertOnError,
			MaxExecutionTime: cfg.Health.MaxExecutionTime.Std(),
		}, logger),
		metrics: observers.NewMetricsCollector(),
	}

	if url := firstNonEmpty(opts.slackWebhook, n.SlackWebhook); url != "" {
		s.slack = observers.NewSlackNotifier(url, n.SlackChannel, n.SlackUsername, logger)
	}

	recipients := n.Email.Recipients
	if opts.email != "" {
		recipients = splitList(opts.email)
	}
	if len(recipients) > 0 {
		s.email = observers.NewEmailNotifier(observers.EmailConfig{
			SMTPHost:   firstNonEmpty(n.Email.SMTPHost, defaultSMTPHost),
			SMTPPort:   n.Email.SMTPPort,
			From:       firstNonEmpty(n.Email.From, defaultFrom),
			Recipients: recipients,
		}, out, logger)
	}

	dashURL := firstNonEmpty(opts.dashboardURL, n.DashboardURL)
	dashKey := firstNonEmpty(opts.dashboardKey, n.DashboardAPIKey)
	if dashURL != "" && dashKey != "" {
		s.dashboard = observers.NewDashboardUpdater(dashURL, dashKey, logger)
	}

	if url := firstNonEmpty(opts.webhook, n.WebhookURL); url != "" {
		s.webhook = observers.NewWebhookNotifier(url, observers.WebhookConfig{
			Retries: n.WebhookRetries,
			Timeout: n.WebhookTimeout.Std(),
		}, logger)
	}

	if tracker != nil {
		s.jira = observers.NewJiraNotifier(tracker, cfg.Jira.Ticket, logger)
	}
	return s
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
