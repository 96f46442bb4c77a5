package analysis

import (
	"fmt"

	"github.com/clintrovert/scrummaster/pkg/types"
)

// storySeed is a story before ids are assigned
type storySeed struct {
	title    string
	desc     string
	criteria []string
	points   int
	labels   []string
}

// epicSeed is an epic before ids are assigned
type epicSeed struct {
	title    string
	desc     string
	priority types.Priority
	stories  []storySeed
}

// buildBacklog derives epics, stories and tasks from what the repository
// already has and the features it is expected to offer
func buildBacklog(repo *types.Repository, features []string, velocity int) types.Backlog {
	var b types.Backlog
	for _, seed := range epicSeeds(repo, features) {
		epic := types.Epic{
			ID:          fmt.Sprintf("EPIC-%d", len(b.Epics)+1),
			Title:       seed.title,
			Description: seed.desc,
			Priority:    seed.priority,
		}
		for _, s := range seed.stories {
			story := types.UserStory{
				ID:                   fmt.Sprintf("STORY-%d", len(b.Stories)+1),
				EpicID:               epic.ID,
				Title:                s.title,
				Description:          s.desc,
				AcceptanceCriteria:   s.criteria,
				Priority:             seed.priority,
				EstimatedStoryPoints: s.points,
				Labels:               s.labels,
			}
			epic.UserStoryIDs = append(epic.UserStoryIDs, story.ID)
			epic.EstimatedStoryPoints += s.points
			b.Stories = append(b.Stories, story)
		}
		epic.EstimatedSprints = sprintsFor(epic.EstimatedStoryPoints, velocity)
		b.Epics = append(b.Epics, epic)
	}
	b.Tasks = tasks()
	return b
}

func sprintsFor(points, velocity int) int {
	if velocity <= 0 || points <= velocity {
		return 1
	}
	return (points + velocity - 1) / velocity
}

func epicSeeds(repo *types.Repository, features []string) []epicSeed {
	hasCI := repo.CI.Any()
	hasTests := repo.Files != nil && repo.Files.HasTests

	pipeline := storySeed{
		title:    "Automated build and test pipeline",
		desc:     "As a developer, I want every push built and tested so that regressions are caught early",
		criteria: []string{"Workflow runs on every pull request", "Failing tests block merging", "Build status is visible on the repository"},
		points:   5,
		labels:   []string{"devops"},
	}
	if hasCI {
		pipeline.title = "Harden existing CI workflows"
		pipeline.desc = "As a developer, I want the existing workflows to be fast and reliable so that feedback stays useful"
		pipeline.points = 3
	}
	container := storySeed{
		title:    "Containerized development environment",
		desc:     "As a developer, I want a container image for the app so that every environment is the same",
		criteria: []string{"Dockerfile builds the application", "Image starts with a single command"},
		points:   3,
		labels:   []string{"devops"},
	}
	if repo.Dockerfile {
		container.title = "Optimize container images"
		container.desc = "As an operator, I want smaller images so that deployments are quick"
		container.points = 2
	}

	unit := storySeed{
		title:    "Unit test coverage for core modules",
		desc:     "As a developer, I want core modules covered by unit tests so that changes are safe",
		criteria: []string{"Test runner is configured", "Core modules have unit tests", "Coverage is reported in CI"},
		points:   8,
		labels:   []string{"testing"},
	}
	if hasTests {
		unit.title = "Extend unit test coverage"
		unit.points = 5
	}

	core := epicSeed{
		title:    "Core Features",
		desc:     "Deliver and stabilize the main user facing features",
		priority: types.PriorityMedium,
	}
	for _, f := range features {
		core.stories = append(core.stories, storySeed{
			title:    f,
			desc:     fmt.Sprintf("As a user, I want %s so that the application meets expectations", f),
			criteria: []string{f + " is implemented", f + " is covered by tests"},
			points:   3,
			labels:   []string{"feature"},
		})
	}

	return []epicSeed{
		{
			title:    "Development Environment & CI/CD",
			desc:     "Reproducible builds, automated checks and deployable artifacts",
			priority: types.PriorityHigh,
			stories:  []storySeed{pipeline, container},
		},
		{
			title:    "Quality & Testing",
			desc:     "Automated tests that give confidence in every change",
			priority: types.PriorityHigh,
			stories: []storySeed{unit, {
				title:    "End-to-end test suite",
				desc:     "As a tester, I want critical user journeys tested end to end so that releases are safe",
				criteria: []string{"Critical journeys are scripted", "Suite runs against a deployed build"},
				points:   5,
				labels:   []string{"testing"},
			}},
		},
		core,
		{
			title:    "Documentation & Operability",
			desc:     "Documentation, monitoring and logging for the running system",
			priority: types.PriorityLow,
			stories: []storySeed{
				{
					title:    "Project documentation",
					desc:     "As a new contributor, I want setup and architecture documented so that I can contribute quickly",
					criteria: []string{"README covers setup", "Architecture overview exists"},
					points:   2,
					labels:   []string{"documentation"},
				},
				{
					title:    "Monitoring and logging",
					desc:     "As an operator, I want logs and health metrics so that incidents are visible",
					criteria: []string{"Structured logs are emitted", "Health endpoint is monitored"},
					points:   3,
					labels:   []string{"operations"},
				},
			},
		},
	}
}

func tasks() []types.Task {
	return []types.Task{
		{
			ID:             "TASK-1",
			Title:          improvementSuggestions[0],
			Description:    "Pick a test runner and cover the critical modules",
			Priority:       types.PriorityHigh,
			EstimatedHours: 16,
		},
		{
			ID:             "TASK-2",
			Title:          improvementSuggestions[1],
			Description:    "Build, test and package on every push",
			Priority:       types.PriorityHigh,
			EstimatedHours: 8,
			Prerequisites:  []string{improvementSuggestions[0]},
		},
		{
			ID:             "TASK-3",
			Title:          improvementSuggestions[2],
			Description:    "Document public endpoints and configuration",
			Priority:       types.PriorityMedium,
			EstimatedHours: 6,
		},
		{
			ID:             "TASK-4",
			Title:          improvementSuggestions[3],
			Description:    "Emit structured logs and expose a health check",
			Priority:       types.PriorityLow,
			EstimatedHours: 6,
			Prerequisites:  []string{improvementSuggestions[1]},
		},
	}
}
