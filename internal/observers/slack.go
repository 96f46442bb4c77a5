package observers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/events"
)

const (
	defaultSlackChannel  = "#scrum-updates"
	defaultSlackUsername = "Scrum Master Bot"
)

// SlackNotifier posts events to a Slack incoming webhook
type SlackNotifier struct {
	switchable
	webhookURL string
	channel    string
	username   string
	client     *http.Client
	logger     *zap.Logger
}

// SlackMessage represents a Slack message payload
type SlackMessage struct {
	Channel     string            `json:"channel"`
	Username    string            `json:"username"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

// SlackAttachment represents a Slack message attachment
type SlackAttachment struct {
	Color  string       `json:"color"`
	Fields []SlackField `json:"fields"`
}

// SlackField is one short field of an attachment
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackNotifier creates a new Slack notifier. It is disabled when
// webhookURL is empty.
func NewSlackNotifier(webhookURL, channel, username string, logger *zap.Logger) *SlackNotifier {
	if channel == "" {
		channel = defaultSlackChannel
	}
	if username == "" {
		username = defaultSlackUsername
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		username:   username,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// EventEmoji returns the icon used for an event type
func EventEmoji(t events.Type) string {
	switch t {
	case events.ProjectCreated:
		return "🎯"
	case events.IssueCreated:
		return "📋"
	case events.SprintSetup:
		return "🏃"
	case events.BoardUpdated:
		return "📊"
	case events.Error:
		return "❌"
	case events.Completion:
		return "🎉"
	default:
		return "📢"
	}
}

// SlackColor returns the attachment color for an event type
func SlackColor(t events.Type) string {
	switch t {
	case events.ProjectCreated, events.IssueCreated, events.SprintSetup, events.BoardUpdated, events.Completion:
		return "good"
	case events.Error:
		return "danger"
	default:
		return "warning"
	}
}

// BuildMessage converts e to a Slack payload
func (s *SlackNotifier) BuildMessage(e events.Event) SlackMessage {
	return SlackMessage{
		Channel:  s.channel,
		Username: s.username,
		Text:     EventEmoji(e.Type) + " " + e.Message,
		Attachments: []SlackAttachment{
			{
				Color: SlackColor(e.Type),
				Fields: []SlackField{
					{Title: "Phase", Value: e.Phase, Short: true},
					{Title: "Progress", Value: formatProgress(e.Progress) + "%", Short: true},
					{Title: "Time", Value: e.Timestamp.Format("2006-01-02 15:04:05"), Short: true},
				},
			},
		},
	}
}

// Update sends e to Slack. Delivery failures are logged, not returned.
func (s *SlackNotifier) Update(ctx context.Context, e events.Event) error {
	if !s.Enabled() {
		return nil
	}

	if err := postJSON(ctx, s.client, s.webhookURL, nil, s.BuildMessage(e)); err != nil {
		s.logger.Error("failed to send slack notification",
			zap.String("event_type", string(e.Type)),
			zap.Error(err),
		)
	}
	return nil
}

func (s *SlackNotifier) Name() string      { return "SlackNotifier" }
func (s *SlackNotifier) Enabled() bool     { return s.webhookURL != "" && s.on() }
func (s *SlackNotifier) Kind() events.Kind { return events.KindChat }
