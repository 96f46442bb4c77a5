package observers

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/events"
)

// EmailConfig holds the mail settings for the email sink
type EmailConfig struct {
	SMTPHost   string
	SMTPPort   int
	From       string
	Recipients []string
}

// EmailMessage is a composed notification
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
}

// EmailNotifier composes mails for important events. Delivery is a dry
// run: the subject is printed and the message kept in the outbox.
type EmailNotifier struct {
	switchable
	cfg    EmailConfig
	out    io.Writer
	logger *zap.Logger

	mu     sync.Mutex
	outbox []EmailMessage
}

// NewEmailNotifier creates an email sink. It is disabled unless the SMTP
// host and sender address are set.
func NewEmailNotifier(cfg EmailConfig, out io.Writer, logger *zap.Logger) *EmailNotifier {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{cfg: cfg, out: out, logger: logger}
}

func milestoneEvent(t events.Type) bool {
	switch t {
	case events.ProjectCreated, events.Error, events.Completion:
		return true
	}
	return false
}

// Compose builds the mail for e
func (n *EmailNotifier) Compose(e events.Event) EmailMessage {
	data, err := json.MarshalIndent(e.Data, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprint(e.Data))
	}

	var body strings.Builder
	body.WriteString("<h2>Scrum Master Notification</h2>\n")
	body.WriteString("<p><strong>Phase:</strong> " + html.EscapeString(e.Phase) + "</p>\n")
	body.WriteString("<p><strong>Progress:</strong> " + formatProgress(e.Progress) + "%</p>\n")
	body.WriteString("<p><strong>Message:</strong> " + html.EscapeString(e.Message) + "</p>\n")
	body.WriteString("<p><strong>Time:</strong> " + e.Timestamp.Format("2006-01-02 15:04:05") + "</p>\n")
	body.WriteString("<p><strong>Data:</strong> <pre>" + html.EscapeString(string(data)) + "</pre></p>\n")

	return EmailMessage{
		To:      append([]string(nil), n.cfg.Recipients...),
		Subject: "Scrum Master: " + e.Message,
		Body:    body.String(),
	}
}

// Update composes and records a mail for project_created, error and
// completion events
func (n *EmailNotifier) Update(_ context.Context, e events.Event) error {
	if !n.Enabled() || !milestoneEvent(e.Type) {
		return nil
	}

	msg := n.Compose(e)

	n.mu.Lock()
	n.outbox = append(n.outbox, msg)
	n.mu.Unlock()

	fmt.Fprintf(n.out, "📧 Email would be sent: %s\n", msg.Subject)
	n.logger.Info("composed email notification",
		zap.String("subject", msg.Subject),
		zap.Strings("to", msg.To),
		zap.String("smtp_host", n.cfg.SMTPHost),
	)
	return nil
}

// Outbox returns the composed messages
func (n *EmailNotifier) Outbox() []EmailMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]EmailMessage(nil), n.outbox...)
}

func (n *EmailNotifier) Name() string      { return "EmailNotifier" }
func (n *EmailNotifier) Enabled() bool     { return n.cfg.SMTPHost != "" && n.cfg.From != "" && n.on() }
func (n *EmailNotifier) Kind() events.Kind { return events.KindEmail }
