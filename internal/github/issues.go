package github

import (
	"fmt"
	"strings"

	"github.com/clintrovert/scrummaster/pkg/types"
)

// PriorityLabel returns the label for a priority
func PriorityLabel(p types.Priority) string {
	return "priority-" + string(p)
}

// EpicDraft builds the issue for an epic
func EpicDraft(owner, repo string, epic types.Epic) types.IssueDraft {
	return types.IssueDraft{
		Owner:       owner,
		Repo:        repo,
		Title:       epic.Title,
		Body:        EpicBody(epic),
		Labels:      []string{string(types.IssueKindEpic), PriorityLabel(epic.Priority)},
		Kind:        types.IssueKindEpic,
		Priority:    epic.Priority,
		StoryPoints: epic.EstimatedStoryPoints,
	}
}

// StoryDraft builds the issue for a user story
func StoryDraft(owner, repo string, story types.UserStory) types.IssueDraft {
	labels := []string{string(types.IssueKindStory), PriorityLabel(story.Priority)}
	return types.IssueDraft{
		Owner:       owner,
		Repo:        repo,
		Title:       story.Title,
		Body:        StoryBody(story),
		Labels:      append(labels, story.Labels...),
		Kind:        types.IssueKindStory,
		Priority:    story.Priority,
		StoryPoints: story.EstimatedStoryPoints,
	}
}

// TaskDraft builds the issue for a task. Tasks are sized in hours and
// carry no story points.
func TaskDraft(owner, repo string, task types.Task) types.IssueDraft {
	return types.IssueDraft{
		Owner:    owner,
		Repo:     repo,
		Title:    task.Title,
		Body:     TaskBody(task),
		Labels:   []string{string(types.IssueKindTask), PriorityLabel(task.Priority)},
		Kind:     types.IssueKindTask,
		Priority: task.Priority,
	}
}

// EpicBody renders the markdown body of an epic issue
func EpicBody(epic types.Epic) string {
	var sb strings.Builder

	sb.WriteString("## Epic: " + epic.Title + "\n\n")
	sb.WriteString(epic.Description + "\n\n")
	sb.WriteString(fmt.Sprintf("**Estimated Story Points:** %d\n", epic.EstimatedStoryPoints))
	sb.WriteString(fmt.Sprintf("**Estimated Sprints:** %d", epic.EstimatedSprints))

	return sb.String()
}

// StoryBody renders the markdown body of a user story issue
func StoryBody(story types.UserStory) string {
	var sb strings.Builder

	sb.WriteString("## User Story: " + story.Title + "\n\n")
	sb.WriteString(story.Description + "\n\n")
	sb.WriteString("**Acceptance Criteria:**\n")
	for i, c := range story.AcceptanceCriteria {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + c)
	}
	sb.WriteString(fmt.Sprintf("\n\n**Story Points:** %d", story.EstimatedStoryPoints))

	return sb.String()
}

// TaskBody renders the markdown body of a task issue
func TaskBody(task types.Task) string {
	var sb strings.Builder

	sb.WriteString("## Task: " + task.Title + "\n\n")
	sb.WriteString(task.Description + "\n\n")
	sb.WriteString(fmt.Sprintf("**Estimated Hours:** %d\n", task.EstimatedHours))
	sb.WriteString("**Prerequisites:** " + strings.Join(task.Prerequisites, ", "))

	return sb.String()
}
