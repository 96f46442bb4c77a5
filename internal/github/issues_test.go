package github

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clintrovert/scrummaster/internal/apperr"
	"github.com/clintrovert/scrummaster/pkg/types"
)

func TestEpicDraft(t *testing.T) {
	d := EpicDraft("acme", "shop", types.Epic{
		Title: "Core Features", Description: "Main features",
		Priority: types.PriorityMedium, EstimatedStoryPoints: 15, EstimatedSprints: 1,
	})

	assert.Equal(t, []string{"epic", "priority-medium"}, d.Labels)
	assert.Equal(t, types.IssueKindEpic, d.Kind)
	assert.Equal(t, "## Epic: Core Features\n\nMain features\n\n**Estimated Story Points:** 15\n**Estimated Sprints:** 1", d.Body)
}

func TestStoryDraft(t *testing.T) {
	d := StoryDraft("acme", "shop", types.UserStory{
		Title: "Login", Description: "As a user, I want to log in",
		AcceptanceCriteria: []string{"Form validates", "Errors shown"},
		Priority:           types.PriorityHigh, EstimatedStoryPoints: 5, Labels: []string{"frontend"},
	})

	assert.Equal(t, []string{"user-story", "priority-high", "frontend"}, d.Labels)
	assert.Equal(t, 5, d.StoryPoints)
	assert.Equal(t, "## User Story: Login\n\nAs a user, I want to log in\n\n**Acceptance Criteria:**\n"+
		"- Form validates\n- Errors shown\n\n**Story Points:** 5", d.Body)
}

func TestTaskDraft(t *testing.T) {
	d := TaskDraft("acme", "shop", types.Task{
		Title: "Set up CI", Description: "Add a workflow", Priority: types.PriorityLow,
		EstimatedHours: 8, Prerequisites: []string{"Add tests", "Pick runner"},
	})

	assert.Equal(t, []string{"task", "priority-low"}, d.Labels)
	assert.Equal(t, 0, d.StoryPoints)
	assert.Equal(t, "## Task: Set up CI\n\nAdd a workflow\n\n**Estimated Hours:** 8\n**Prerequisites:** Add tests, Pick runner", d.Body)
}

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		in          string
		owner, repo string
		ok          bool
	}{
		{"https://github.com/acme/shop", "acme", "shop", true},
		{"https://github.com/acme/shop.git", "acme", "shop", true},
		{"https://github.com/acme/shop/tree/main", "acme", "shop", true},
		{"git@github.com:acme/shop.git", "acme", "shop", true},
		{"github.com/acme/shop?tab=readme", "acme", "shop", true},
		{"https://gitlab.com/acme/shop", "", "", false},
		{"https://github.com/acme", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			owner, repo, err := ParseRepositoryURL(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, apperr.ErrInvalidRepositoryURL)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.owner, owner)
			assert.Equal(t, tc.repo, repo)
		})
	}
}
