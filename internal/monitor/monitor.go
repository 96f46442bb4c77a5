// Package monitor runs periodic health checks against the engine
package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/engine"
)

// DefaultInterval between health checks
const DefaultInterval = 60 * time.Second

// Checker reports system health
type Checker interface {
	HealthCheck() engine.HealthReport
}

// Monitor prints one status line per health check
type Monitor struct {
	checker  Checker
	interval time.Duration
	out      io.Writer
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a monitor. A non-positive interval selects DefaultInterval.
func New(checker Checker, interval time.Duration, out io.Writer, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checker:  checker,
		interval: interval,
		out:      out,
		logger:   logger,
		now:      time.Now,
	}
}

// Spec returns the cron schedule for the interval, in whole seconds
func (m *Monitor) Spec() string {
	secs := int(m.interval / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("@every %ds", secs)
}

// Check runs one health check and prints the result
func (m *Monitor) Check() engine.HealthReport {
	report := m.checker.HealthCheck()
	ts := m.now().UTC().Format(time.RFC3339)
	if report.Overall {
		fmt.Fprintf(m.out, "[%s] System healthy\n", ts)
	} else {
		fmt.Fprintf(m.out, "[%s] System issues detected\n", ts)
		m.logger.Warn("health check failed",
			zap.Bool("invoker_healthy", report.CommandInvoker.Healthy),
			zap.Int("error_events", report.ErrorEvents),
		)
	}
	return report
}

// Run schedules checks until ctx is done and waits for a running check to
// finish before returning
func (m *Monitor) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(m.Spec(), func() { m.Check() }); err != nil {
		return fmt.Errorf("failed to schedule health check: %w", err)
	}

	m.logger.Info("starting monitor", zap.String("schedule", m.Spec()))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	m.logger.Info("monitor stopped")
	return nil
}
