package observers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/events"
)

// Commenter adds a comment to an issue tracker ticket
type Commenter interface {
	AddComment(ticketID, comment string) error
}

// JiraNotifier mirrors milestone events onto a Jira tracking ticket
type JiraNotifier struct {
	switchable
	client   Commenter
	ticketID string
	logger   *zap.Logger
}

// NewJiraNotifier creates a Jira sink commenting on ticketID
func NewJiraNotifier(client Commenter, ticketID string, logger *zap.Logger) *JiraNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JiraNotifier{client: client, ticketID: ticketID, logger: logger}
}

// FormatJiraComment renders e in Jira wiki markup
func FormatJiraComment(e events.Event) string {
	return fmt.Sprintf("%s *%s*\n||Phase|%s|\n||Progress|%s%%|\n||Time|%s|",
		EventEmoji(e.Type), e.Message, e.Phase, formatProgress(e.Progress),
		e.Timestamp.Format("2006-01-02 15:04:05"))
}

// Update comments on the ticket for project_created, error and completion
func (j *JiraNotifier) Update(_ context.Context, e events.Event) error {
	if !j.Enabled() || !milestoneEvent(e.Type) {
		return nil
	}

	if err := j.client.AddComment(j.ticketID, FormatJiraComment(e)); err != nil {
		return fmt.Errorf("failed to mirror event to %s: %w", j.ticketID, err)
	}

	j.logger.Info("mirrored event to jira",
		zap.String("ticket", j.ticketID),
		zap.String("event_type", string(e.Type)),
	)
	return nil
}

func (j *JiraNotifier) Name() string      { return "JiraNotifier" }
func (j *JiraNotifier) Enabled() bool     { return j.client != nil && j.ticketID != "" && j.on() }
func (j *JiraNotifier) Kind() events.Kind { return events.KindTracker }
