package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultCommandDelay = 500 * time.Millisecond
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = time.Second

	healthWindow    = 10
	healthThreshold = 80.0
)

// criticalErrors stop a batch when found in a failure message
var criticalErrors = []string{
	"rate limit exceeded",
	"authentication failed",
	"insufficient permissions",
	"project not found",
}

// Progress is reported to listeners before each batch step
type Progress struct {
	CurrentStep       int    `json:"current_step"`
	TotalSteps        int    `json:"total_steps"`
	CurrentCommand    string `json:"current_command"`
	CompletedCommands int    `json:"completed_commands"`
	FailedCommands    int    `json:"failed_commands"`
}

// ProgressListener receives batch progress
type ProgressListener func(Progress)

// ListenerID identifies a registered progress listener
type ListenerID int

// BatchResult summarizes a batch run
type BatchResult struct {
	TotalCommands      int       `json:"total_commands"`
	SuccessfulCommands int       `json:"successful_commands"`
	FailedCommands     int       `json:"failed_commands"`
	Results            []Result  `json:"results"`
	Failed             []string  `json:"failed"`
	Stopped            bool      `json:"stopped"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
}

// HealthStatus is the invoker's view of recent command outcomes
type HealthStatus struct {
	Healthy        bool       `json:"healthy"`
	SuccessRate    float64    `json:"success_rate"`
	RecentFailures int        `json:"recent_failures"`
	TotalCommands  int        `json:"total_commands"`
	Executing      bool       `json:"executing"`
	LastExecution  *time.Time `json:"last_execution,omitempty"`
}

// HistoryEntry is one undoable history item
type HistoryEntry struct {
	Description string `json:"description"`
	Type        Type   `json:"type"`
	Result      Result `json:"result"`
	CanUndo     bool   `json:"can_undo"`
}

// History lists the successful commands plus totals over every run
type History struct {
	Commands           []HistoryEntry `json:"commands"`
	TotalCommands      int            `json:"total_commands"`
	SuccessfulCommands int            `json:"successful_commands"`
	FailedCommands     int            `json:"failed_commands"`
}

type executed struct {
	cmd    Command
	result Result
}

type listener struct {
	id ListenerID
	fn ProgressListener
}

// Option configures an Invoker
type Option func(*Invoker)

// WithCommandDelay sets the pause between batch steps
func WithCommandDelay(d time.Duration) Option {
	return func(i *Invoker) { i.delay = d }
}

// WithSleeper replaces the function used for every wait
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(i *Invoker) { i.sleep = fn }
}

// Invoker executes commands and keeps their history
type Invoker struct {
	logger  *zap.Logger
	delay   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	running atomic.Int32

	mu        sync.Mutex
	history   []executed
	results   []Result
	listeners []listener
	nextID    ListenerID
}

// NewInvoker creates an invoker
func NewInvoker(logger *zap.Logger, opts ...Option) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Invoker{
		logger: logger,
		delay:  DefaultCommandDelay,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ExecuteCommand runs c, converting a panic into a failure result. Every
// result is recorded for health checks; only successes become undoable
// history.
func (i *Invoker) ExecuteCommand(ctx context.Context, c Command) Result {
	i.running.Add(1)
	defer i.running.Add(-1)

	i.logger.Info("executing command",
		zap.String("command", c.Description()),
		zap.String("type", string(c.Type())),
	)

	result := i.run(ctx, c)

	i.mu.Lock()
	i.results = append(i.results, result)
	if result.Success {
		i.history = append(i.history, executed{cmd: c, result: result})
	}
	i.mu.Unlock()

	if result.Success {
		i.logger.Info("command completed", zap.String("command", c.Description()))
	} else {
		i.logger.Error("command failed",
			zap.String("command", c.Description()),
			zap.String("error", result.Error),
		)
	}
	return result
}

func (i *Invoker) run(ctx context.Context, c Command) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Failed(fmt.Errorf("command panicked: %v", r))
		}
	}()
	return c.Execute(ctx)
}

// ExecuteBatch runs commands in order. A failure whose message contains a
// critical phrase stops the batch; other failures are recorded and the
// batch continues. Steps are separated by the configured delay.
func (i *Invoker) ExecuteBatch(ctx context.Context, commands []Command) BatchResult {
	i.running.Add(1)
	defer i.running.Add(-1)

	batch := BatchResult{
		TotalCommands: len(commands),
		StartTime:     time.Now(),
	}

	i.logger.Info("starting batch execution", zap.Int("commands", len(commands)))

	for idx, c := range commands {
		i.notifyProgress(Progress{
			CurrentStep:       idx + 1,
			TotalSteps:        len(commands),
			CurrentCommand:    c.Description(),
			CompletedCommands: idx,
			FailedCommands:    len(batch.Failed),
		})

		result := i.ExecuteCommand(ctx, c)
		batch.Results = append(batch.Results, result)

		if result.Success {
			batch.SuccessfulCommands++
		} else {
			batch.Failed = append(batch.Failed, c.Description())
			if IsCritical(result) {
				i.logger.Error("stopping batch execution due to critical error",
					zap.String("command", c.Description()),
					zap.String("error", result.Error),
				)
				batch.Stopped = true
				break
			}
		}

		if idx < len(commands)-1 && i.delay > 0 {
			if err := i.sleep(ctx, i.delay); err != nil {
				batch.Stopped = true
				break
			}
		}
	}

	batch.FailedCommands = len(batch.Failed)
	batch.EndTime = time.Now()

	i.logger.Info("batch execution completed",
		zap.Int("successful", batch.SuccessfulCommands),
		zap.Int("total", batch.TotalCommands),
	)
	return batch
}

// ExecuteWithRetry runs c up to maxRetries times, waiting delay, 2*delay,
// and so on between attempts. It returns the first success or the last
// failure. Zero values select the defaults.
func (i *Invoker) ExecuteWithRetry(ctx context.Context, c Command, maxRetries int, delay time.Duration) Result {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	var last Result
	for attempt := 1; attempt <= maxRetries; attempt++ {
		i.logger.Info("attempting command",
			zap.String("command", c.Description()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxRetries),
		)

		last = i.ExecuteCommand(ctx, c)
		if last.Success {
			return last
		}

		if attempt < maxRetries {
			if err := i.sleep(ctx, delay); err != nil {
				return last
			}
			delay *= 2
		}
	}

	i.logger.Error("all retry attempts failed", zap.String("command", c.Description()))
	return last
}

// UndoLast reverses the most recent successful command. It refuses
// commands that cannot be undone and reports whether anything was undone.
func (i *Invoker) UndoLast(ctx context.Context) bool {
	i.mu.Lock()
	if len(i.history) == 0 {
		i.mu.Unlock()
		i.logger.Warn("no commands to undo")
		return false
	}
	last := i.history[len(i.history)-1]
	i.mu.Unlock()

	if !CanUndo(last.cmd) {
		i.logger.Warn("cannot undo command", zap.String("command", last.cmd.Description()))
		return false
	}

	result := Undo(ctx, last.cmd)
	if !result.Success {
		i.logger.Error("failed to undo command",
			zap.String("command", last.cmd.Description()),
			zap.String("error", result.Error),
		)
		return false
	}

	i.mu.Lock()
	if n := len(i.history); n > 0 && i.history[n-1].cmd == last.cmd {
		i.history = i.history[:n-1]
	}
	i.mu.Unlock()

	i.logger.Info("undid command", zap.String("command", last.cmd.Description()))
	return true
}

// UndoLastN undoes up to count commands, stopping at the first refusal or
// failure, and returns how many were undone
func (i *Invoker) UndoLastN(ctx context.Context, count int) int {
	undone := 0
	for ; undone < count; undone++ {
		if !i.UndoLast(ctx) {
			break
		}
	}
	i.logger.Info("rolled back commands", zap.Int("undone", undone), zap.Int("requested", count))
	return undone
}

// History returns the undoable history and overall totals
func (i *Invoker) History() History {
	i.mu.Lock()
	defer i.mu.Unlock()

	h := History{TotalCommands: len(i.results)}
	for _, e := range i.history {
		h.Commands = append(h.Commands, HistoryEntry{
			Description: e.cmd.Description(),
			Type:        e.cmd.Type(),
			Result:      e.result,
			CanUndo:     CanUndo(e.cmd),
		})
	}
	for _, r := range i.results {
		if r.Success {
			h.SuccessfulCommands++
		} else {
			h.FailedCommands++
		}
	}
	return h
}

// ClearHistory forgets all recorded commands and results
func (i *Invoker) ClearHistory() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.history = nil
	i.results = nil
	i.logger.Info("command history cleared")
}

// HealthCheck rates the last 10 results. No results counts as healthy.
func (i *Invoker) HealthCheck() HealthStatus {
	i.mu.Lock()
	defer i.mu.Unlock()

	recent := i.results
	if len(recent) > healthWindow {
		recent = recent[len(recent)-healthWindow:]
	}

	status := HealthStatus{
		SuccessRate:   100,
		TotalCommands: len(i.results),
		Executing:     i.running.Load() > 0,
	}
	if len(recent) > 0 {
		ok := 0
		for _, r := range recent {
			if r.Success {
				ok++
			}
		}
		status.SuccessRate = float64(ok) / float64(len(recent)) * 100
		status.RecentFailures = len(recent) - ok
		last := i.results[len(i.results)-1].ExecutedAt
		status.LastExecution = &last
	}
	status.Healthy = status.SuccessRate >= healthThreshold
	return status
}

// AddProgressListener registers fn for batch progress
func (i *Invoker) AddProgressListener(fn ProgressListener) ListenerID {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextID++
	i.listeners = append(i.listeners, listener{id: i.nextID, fn: fn})
	return i.nextID
}

// RemoveProgressListener unregisters a listener; unknown ids are ignored
func (i *Invoker) RemoveProgressListener(id ListenerID) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for idx, l := range i.listeners {
		if l.id == id {
			i.listeners = append(i.listeners[:idx], i.listeners[idx+1:]...)
			return
		}
	}
}

func (i *Invoker) notifyProgress(p Progress) {
	i.mu.Lock()
	listeners := append([]listener(nil), i.listeners...)
	i.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					i.logger.Error("progress listener panicked", zap.String("panic", fmt.Sprint(r)))
				}
			}()
			l.fn(p)
		}()
	}
}

// IsCritical reports whether a failed result should stop a batch
func IsCritical(r Result) bool {
	if r.Success {
		return false
	}
	msg := strings.ToLower(r.Error)
	for _, phrase := range criticalErrors {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

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
