package observers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/events"
)

const (
	AlertHighErrorRate = "high_error_rate"
	AlertErrorOccurred = "error_occurred"
	AlertSlowExecution = "slow_execution"
)

// AlertThresholds configure when HealthMonitor raises alerts
type AlertThresholds struct {
	// MaxErrorRate in percent
	MaxErrorRate     float64
	AlertOnError     bool
	MaxExecutionTime time.Duration
}

// HealthMetrics are the running totals kept by HealthMonitor
type HealthMetrics struct {
	TotalEvents     int        `json:"total_events"`
	ErrorEvents     int        `json:"error_events"`
	LastErrorTime   *time.Time `json:"last_error_time,omitempty"`
	AverageProgress float64    `json:"average_progress"`
	ErrorRate       float64    `json:"error_rate"`
}

// Alert is a raised health alert
type Alert struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// HealthMonitor tracks error rates and raises alerts
type HealthMonitor struct {
	switchable
	thresholds AlertThresholds
	logger     *zap.Logger

	mu      sync.Mutex
	metrics HealthMetrics
	alerts  []Alert
	started time.Time
}

// NewHealthMonitor creates a health sink
func NewHealthMonitor(thresholds AlertThresholds, logger *zap.Logger) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthMonitor{thresholds: thresholds, logger: logger}
}

// Update folds e into the metrics and checks the thresholds
func (h *HealthMonitor) Update(_ context.Context, e events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started.IsZero() {
		h.started = e.Timestamp
	}

	m := &h.metrics
	m.TotalEvents++
	if e.Type == events.Error {
		m.ErrorEvents++
		ts := e.Timestamp
		m.LastErrorTime = &ts
	}
	m.ErrorRate = float64(m.ErrorEvents) / float64(m.TotalEvents) * 100
	m.AverageProgress = (m.AverageProgress*float64(m.TotalEvents-1) + e.Progress) / float64(m.TotalEvents)

	if m.ErrorRate > h.thresholds.MaxErrorRate {
		h.raise(AlertHighErrorRate, fmt.Sprintf("Error rate %.2f%% exceeds threshold", m.ErrorRate))
	}
	if e.Type == events.Error && h.thresholds.AlertOnError {
		h.raise(AlertErrorOccurred, e.Message)
	}
	if e.Type == events.Completion && h.thresholds.MaxExecutionTime > 0 {
		if took := e.Timestamp.Sub(h.started); took > h.thresholds.MaxExecutionTime {
			h.raise(AlertSlowExecution, fmt.Sprintf("Setup took %s, limit is %s", took.Round(time.Second), h.thresholds.MaxExecutionTime))
		}
	}
	return nil
}

func (h *HealthMonitor) raise(alertType, message string) {
	h.alerts = append(h.alerts, Alert{Type: alertType, Message: message, At: time.Now()})
	h.logger.Warn("🚨 ALERT",
		zap.String("alert", alertType),
		zap.String("message", message),
	)
}

// Metrics returns a snapshot of the running totals
func (h *HealthMonitor) Metrics() HealthMetrics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.metrics
}

// Alerts returns the alerts raised so far
func (h *HealthMonitor) Alerts() []Alert {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Alert(nil), h.alerts...)
}

func (h *HealthMonitor) Name() string      { return "HealthMonitor" }
func (h *HealthMonitor) Enabled() bool     { return h.on() }
func (h *HealthMonitor) Kind() events.Kind { return events.KindHealth }
