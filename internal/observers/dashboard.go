package observers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/events"
)

// DashboardSource identifies this tool in dashboard payloads
const DashboardSource = "scrum-master-bot"

// DashboardEvent is the payload posted to {url}/api/events
type DashboardEvent struct {
	ID        string            `json:"id"`
	Type      events.Type       `json:"type"`
	Phase     string            `json:"phase"`
	Progress  float64           `json:"progress"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Data      any               `json:"data,omitempty"`
	Metadata  DashboardMetadata `json:"metadata"`
}

// DashboardMetadata describes the sender
type DashboardMetadata struct {
	Source  string `json:"source"`
	Version string `json:"version"`
}

// DashboardUpdater forwards events to a dashboard service
type DashboardUpdater struct {
	switchable
	url    string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

// NewDashboardUpdater creates a dashboard sink. It is disabled unless both
// url and apiKey are set.
func NewDashboardUpdater(url, apiKey string, logger *zap.Logger) *DashboardUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardUpdater{
		url:    strings.TrimSuffix(url, "/"),
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// NewDashboardEvent converts e into a dashboard payload
func NewDashboardEvent(e events.Event) DashboardEvent {
	return DashboardEvent{
		ID:        fmt.Sprintf("%d-%s", time.Now().UnixMilli(), strings.SplitN(uuid.NewString(), "-", 2)[0]),
		Type:      e.Type,
		Phase:     e.Phase,
		Progress:  e.Progress,
		Message:   e.Message,
		Timestamp: e.Timestamp,
		Data:      e.Data,
		Metadata: DashboardMetadata{
			Source:  DashboardSource,
			Version: Version,
		},
	}
}

// Update posts e once. Failures are logged and never retried.
func (d *DashboardUpdater) Update(ctx context.Context, e events.Event) error {
	if !d.Enabled() {
		return nil
	}

	headers := map[string]string{"Authorization": "Bearer " + d.apiKey}
	if err := postJSON(ctx, d.client, d.url+"/api/events", headers, NewDashboardEvent(e)); err != nil {
		d.logger.Error("failed to update dashboard",
			zap.String("event_type", string(e.Type)),
			zap.Error(err),
		)
	}
	return nil
}

func (d *DashboardUpdater) Name() string      { return "DashboardUpdater" }
func (d *DashboardUpdater) Enabled() bool     { return d.url != "" && d.apiKey != "" && d.on() }
func (d *DashboardUpdater) Kind() events.Kind { return events.KindDashboard }
