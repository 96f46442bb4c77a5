package types

// Epic groups related user stories
type Epic struct {
	ID                   string   `json:"id" yaml:"id"`
	Title                string   `json:"title" yaml:"title"`
	Description          string   `json:"description" yaml:"description"`
	Priority             Priority `json:"priority" yaml:"priority"`
	EstimatedStoryPoints int      `json:"estimated_story_points" yaml:"estimated_story_points"`
	EstimatedSprints     int      `json:"estimated_sprints" yaml:"estimated_sprints"`
	UserStoryIDs         []string `json:"user_story_ids,omitempty" yaml:"user_story_ids,omitempty"`
}

// UserStory is a unit of user visible value
type UserStory struct {
	ID                   string   `json:"id" yaml:"id"`
	EpicID               string   `json:"epic_id,omitempty" yaml:"epic_id,omitempty"`
	Title                string   `json:"title" yaml:"title"`
	Description          string   `json:"description" yaml:"description"`
	AcceptanceCriteria   []string `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	Priority             Priority `json:"priority" yaml:"priority"`
	EstimatedStoryPoints int      `json:"estimated_story_points" yaml:"estimated_story_points"`
	Labels               []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Task is a piece of technical work
type Task struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description" yaml:"description"`
	Priority       Priority `json:"priority" yaml:"priority"`
	EstimatedHours int      `json:"estimated_hours" yaml:"estimated_hours"`
	Prerequisites  []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
}

// Backlog is the set of artifacts turned into issues
type Backlog struct {
	Epics   []Epic      `json:"epics" yaml:"epics"`
	Stories []UserStory `json:"stories" yaml:"stories"`
	Tasks   []Task      `json:"tasks" yaml:"tasks"`
}

// Len returns the number of items in the backlog
func (b *Backlog) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Epics) + len(b.Stories) + len(b.Tasks)
}
