// Package planner turns a project model into the backlog that becomes
// GitHub issues.
package planner

import (
	"context"

	"github.com/clintrovert/scrummaster/internal/apperr"
	"github.com/clintrovert/scrummaster/pkg/types"
)

// Planner produces a backlog for an analyzed project
type Planner interface {
	Plan(ctx context.Context, model *types.ProjectModel) (*types.Backlog, error)
}

// RecommendationPlanner returns the backlog the analysis suggested
type RecommendationPlanner struct{}

// Plan copies the model's suggested epics, stories and tasks
func (RecommendationPlanner) Plan(_ context.Context, model *types.ProjectModel) (*types.Backlog, error) {
	if model == nil {
		return nil, apperr.ErrAnalysisIncomplete
	}
	return model.Recommendations.Backlog(), nil
}
