package observers

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/clintrovert/scrummaster/internal/events"
)

// PerformanceMetrics summarizes phase timings
type PerformanceMetrics struct {
	FastestPhase      string  `json:"fastest_phase"`
	SlowestPhase      string  `json:"slowest_phase"`
	OverallEfficiency float64 `json:"overall_efficiency"`
}

// MetricsSnapshot is a copy of the collector state
type MetricsSnapshot struct {
	TotalEvents     int                      `json:"total_events"`
	ErrorCount      int                      `json:"error_count"`
	CompletedPhases []string                 `json:"completed_phases"`
	PhaseDurations  map[string]time.Duration `json:"phase_durations"`
	PhaseProgress   map[string][]float64     `json:"phase_progress"`
	Performance     PerformanceMetrics       `json:"performance"`
}

// MetricsCollector derives per-phase timings and efficiency from events
type MetricsCollector struct {
	switchable
	now func() time.Time

	mu          sync.Mutex
	total       int
	errors      int
	phaseOrder  []string
	completed   map[string]bool
	started     map[string]time.Time
	durations   map[string]time.Duration
	progress    map[string][]float64
	performance PerformanceMetrics
}

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{now: time.Now}
	m.Reset()
	return m
}

// Update folds e into the metrics
func (m *MetricsCollector) Update(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.total++
	if e.Type == events.Error {
		m.errors++
	}

	if e.Progress == 0 {
		if _, ok := m.started[e.Phase]; !ok {
			m.started[e.Phase] = now
		}
	}

	if e.Progress == 100 || e.Type == events.Completion {
		m.completed[e.Phase] = true
		if start, ok := m.started[e.Phase]; ok {
			m.durations[e.Phase] = now.Sub(start)
		}
	}

	if _, ok := m.progress[e.Phase]; !ok {
		m.phaseOrder = append(m.phaseOrder, e.Phase)
	}
	m.progress[e.Phase] = append(m.progress[e.Phase], e.Progress)

	m.updatePerformance()
	return nil
}

func (m *MetricsCollector) updatePerformance() {
	fastest, slowest := time.Duration(math.MaxInt64), time.Duration(-1)
	var fastestPhase, slowestPhase string
	for _, phase := range m.phaseOrder {
		d, ok := m.durations[phase]
		if !ok {
			continue
		}
		if d < fastest {
			fastest, fastestPhase = d, phase
		}
		if d > slowest {
			slowest, slowestPhase = d, phase
		}
	}
	m.performance.FastestPhase = fastestPhase
	m.performance.SlowestPhase = slowestPhase

	completionRate := float64(len(m.completed)) / math.Max(1, float64(len(m.started))) * 100
	m.performance.OverallEfficiency = math.Max(0, completionRate-m.errorRate())
}

func (m *MetricsCollector) errorRate() float64 {
	return float64(m.errors) / math.Max(1, float64(m.total)) * 100
}

// Snapshot returns a copy of the current metrics
func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MetricsSnapshot{
		TotalEvents:    m.total,
		ErrorCount:     m.errors,
		PhaseDurations: make(map[string]time.Duration, len(m.durations)),
		PhaseProgress:  make(map[string][]float64, len(m.progress)),
		Performance:    m.performance,
	}
	for _, phase := range m.phaseOrder {
		if m.completed[phase] {
			s.CompletedPhases = append(s.CompletedPhases, phase)
		}
	}
	for k, v := range m.durations {
		s.PhaseDurations[k] = v
	}
	for k, v := range m.progress {
		s.PhaseProgress[k] = append([]float64(nil), v...)
	}
	return s
}

// Report renders the metrics as text
func (m *MetricsCollector) Report() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := []string{
		"📊 METRICS REPORT",
		"=================",
		fmt.Sprintf("Total Events: %d", m.total),
		fmt.Sprintf("Error Count: %d", m.errors),
		fmt.Sprintf("Error Rate: %.2f%%", m.errorRate()),
		fmt.Sprintf("Completed Phases: %d", len(m.completed)),
		fmt.Sprintf("Overall Efficiency: %.2f%%", m.performance.OverallEfficiency),
		"",
		"⚡ Performance:",
		"Fastest Phase: " + m.performance.FastestPhase,
		"Slowest Phase: " + m.performance.SlowestPhase,
		"",
		"📈 Phase Details:",
	}

	for _, phase := range m.phaseOrder {
		values := m.progress[phase]
		var sum float64
		for _, v := range values {
			sum += v
		}
		line := fmt.Sprintf("  %s: %.1f%% avg progress", phase, sum/float64(len(values)))
		if d, ok := m.durations[phase]; ok && d > 0 {
			line += fmt.Sprintf(" (%dms)", d.Milliseconds())
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// Reset clears all collected metrics
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total, m.errors = 0, 0
	m.phaseOrder = nil
	m.completed = make(map[string]bool)
	m.started = make(map[string]time.Time)
	m.durations = make(map[string]time.Duration)
	m.progress = make(map[string][]float64)
	m.performance = PerformanceMetrics{}
}

func (m *MetricsCollector) Name() string      { return "MetricsCollector" }
func (m *MetricsCollector) Enabled() bool     { return m.on() }
func (m *MetricsCollector) Kind() events.Kind { return events.KindMetrics }
