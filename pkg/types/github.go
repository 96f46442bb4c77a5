package types

import (
	"time"
)

// IssueKind tells which backlog artifact an issue was created from
type IssueKind string

const (
	IssueKindEpic  IssueKind = "epic"
	IssueKindStory IssueKind = "user-story"
	IssueKindTask  IssueKind = "task"
)

// ProjectPlan is the input for creating a project board
type ProjectPlan struct {
	Organization string `json:"organization"`
	Name         string `json:"name"`
	Description  string `json:"description"`
}

// GitHubProject is a created project board
type GitHubProject struct {
	ID          int64  `json:"id"`
	Number      int    `json:"number"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// IssueDraft is an issue waiting to be created
type IssueDraft struct {
	Owner       string    `json:"owner"`
	Repo        string    `json:"repo"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Labels      []string  `json:"labels"`
	Kind        IssueKind `json:"kind"`
	Priority    Priority  `json:"priority"`
	StoryPoints int       `json:"story_points"`
}

// GitHubIssue is a created issue
type GitHubIssue struct {
	ID          int64     `json:"id"`
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Kind        IssueKind `json:"kind"`
	Priority    Priority  `json:"priority"`
	StoryPoints int       `json:"story_points"`
	Labels      []string  `json:"labels"`
}

// SprintPlan is the input for setting up a sprint
type SprintPlan struct {
	Owner     string        `json:"owner"`
	Repo      string        `json:"repo"`
	Number    int           `json:"number"`
	Name      string        `json:"name"`
	StartDate time.Time     `json:"start_date"`
	Duration  time.Duration `json:"duration"`
	Capacity  int           `json:"capacity"`
}

// SprintSetup is a configured sprint
type SprintSetup struct {
	Number          int       `json:"number"`
	Name            string    `json:"name"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	SprintLabel     string    `json:"sprint_label"`
	MilestoneNumber int       `json:"milestone_number"`
	IssuesAssigned  int       `json:"issues_assigned"`
	StoryPoints     int       `json:"story_points"`
}

// BoardSetup is a configured project board
type BoardSetup struct {
	Columns      map[string]int64 `json:"columns"`
	ItemsUpdated int              `json:"items_updated"`
}
