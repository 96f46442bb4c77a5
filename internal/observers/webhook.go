package observers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/events"
)

// WebhookSource identifies this tool in generic webhook payloads
const WebhookSource = "semi-autonomous-scrum-master"

// WebhookConfig configures a WebhookNotifier
type WebhookConfig struct {
	Headers map[string]string
	// Timeout per attempt, defaults to 10s
	Timeout time.Duration
	// Retries is the number of attempts, defaults to 1
	Retries int
	// Backoff is the base delay between attempts, defaults to 1s.
	// Attempt n waits Backoff * 2^(n-1) before the next one.
	Backoff time.Duration
	// Transform replaces the default payload
	Transform func(events.Event) any
	// Filter drops events for which it returns false
	Filter func(events.Event) bool
}

// WebhookStats counts deliveries
type WebhookStats struct {
	SuccessCount int     `json:"success_count"`
	FailureCount int     `json:"failure_count"`
	SuccessRate  float64 `json:"success_rate"`
}

// WebhookPayload is the default body sent to generic webhooks
type WebhookPayload struct {
	Timestamp time.Time       `json:"timestamp"`
	Event     WebhookEvent    `json:"event"`
	Metadata  WebhookMetadata `json:"metadata"`
}

// WebhookEvent is the event section of WebhookPayload
type WebhookEvent struct {
	Type     events.Type `json:"type"`
	Phase    string      `json:"phase"`
	Progress float64     `json:"progress"`
	Message  string      `json:"message"`
	Data     any         `json:"data,omitempty"`
}

// WebhookMetadata describes the sender
type WebhookMetadata struct {
	Source  string `json:"source"`
	Version string `json:"version"`
}

// WebhookNotifier posts events to an arbitrary HTTP endpoint with retries
type WebhookNotifier struct {
	switchable
	url    string
	cfg    WebhookConfig
	client *http.Client
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	success int
	failure int
}

// NewWebhookNotifier creates a webhook sink
func NewWebhookNotifier(url string, cfg WebhookConfig, logger *zap.Logger) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		url:    url,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		sleep:  sleepContext,
	}
}

// DefaultWebhookPayload builds the payload used when no transform is set
func DefaultWebhookPayload(e events.Event) WebhookPayload {
	return WebhookPayload{
		Timestamp: e.Timestamp,
		Event: WebhookEvent{
			Type:     e.Type,
			Phase:    e.Phase,
			Progress: e.Progress,
			Message:  e.Message,
			Data:     e.Data,
		},
		Metadata: WebhookMetadata{
			Source:  WebhookSource,
			Version: Version,
		},
	}
}

// Update delivers e, retrying with exponential backoff. The final failure
// is counted and logged; it is not returned.
func (w *WebhookNotifier) Update(ctx context.Context, e events.Event) error {
	if !w.Enabled() {
		return nil
	}
	if w.cfg.Filter != nil && !w.cfg.Filter(e) {
		return nil
	}

	var payload any = DefaultWebhookPayload(e)
	if w.cfg.Transform != nil {
		payload = w.cfg.Transform(e)
	}

	headers := map[string]string{"User-Agent": userAgent}
	for k, v := range w.cfg.Headers {
		headers[k] = v
	}

	var lastErr error
	for attempt := 1; attempt <= w.cfg.Retries; attempt++ {
		lastErr = postJSON(ctx, w.client, w.url, headers, payload)
		if lastErr == nil {
			w.record(true)
			return nil
		}

		w.logger.Warn("webhook attempt failed",
			zap.String("url", w.url),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)

		if attempt < w.cfg.Retries {
			if err := w.sleep(ctx, w.cfg.Backoff*time.Duration(1<<(attempt-1))); err != nil {
				lastErr = err
				break
			}
		}
	}

	w.record(false)
	w.logger.Error("webhook delivery failed",
		zap.String("url", w.url),
		zap.Int("attempts", w.cfg.Retries),
		zap.Error(lastErr),
	)
	return nil
}

func (w *WebhookNotifier) record(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ok {
		w.success++
	} else {
		w.failure++
	}
}

// Stats returns delivery counters
func (w *WebhookNotifier) Stats() WebhookStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	stats := WebhookStats{SuccessCount: w.success, FailureCount: w.failure}
	if total := w.success + w.failure; total > 0 {
		stats.SuccessRate = float64(w.success) / float64(total) * 100
	}
	return stats
}

// Reset zeroes the delivery counters
func (w *WebhookNotifier) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.success, w.failure = 0, 0
}

func (w *WebhookNotifier) Name() string      { return "WebhookNotifier" }
func (w *WebhookNotifier) Enabled() bool     { return w.url != "" && w.on() }
func (w *WebhookNotifier) Kind() events.Kind { return events.KindWebhook }

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
