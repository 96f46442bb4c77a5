package events

import (
	"time"
)

// Type identifies what happened
type Type string

const (
	ProjectSetupStarted       Type = "project_setup_started"
	RepositoryAnalysisStarted Type = "repository_analysis_started"
	RepositoryAnalysisDone    Type = "repository_analysis_completed"
	ProjectCreationStarted    Type = "project_creation_started"
	ProjectCreated            Type = "project_created"
	IssueGenerationStarted    Type = "issue_generation_started"
	IssueCreated              Type = "issue_created"
	IssuesCreated             Type = "issues_created"
	SprintSetupStarted        Type = "sprint_setup_started"
	SprintSetup               Type = "sprint_setup"
	BoardConfigurationStarted Type = "board_configuration_started"
	BoardUpdated              Type = "board_updated"
	Progress                  Type = "progress"
	Error                     Type = "error"
	Completion                Type = "completion"
)

// Event is a progress notification. Events are values; the bus keeps its
// own copies.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Phase     string    `json:"phase"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message"`
}

// Statistics summarizes the event history
type Statistics struct {
	TotalEvents     int          `json:"total_events"`
	EventsByType    map[Type]int `json:"events_by_type"`
	AverageProgress float64      `json:"average_progress"`
	// ErrorRate is the share of error events in percent
	ErrorRate float64 `json:"error_rate"`
}

// Filter selects events. Zero fields match everything; set fields are
// combined with AND.
type Filter struct {
	Type        Type
	Phase       string
	MinProgress *float64
	MaxProgress *float64
	Since       time.Time
}

// Match reports whether e satisfies every set criterion
func (f Filter) Match(e Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Phase != "" && e.Phase != f.Phase {
		return false
	}
	if f.MinProgress != nil && e.Progress < *f.MinProgress {
		return false
	}
	if f.MaxProgress != nil && e.Progress > *f.MaxProgress {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
