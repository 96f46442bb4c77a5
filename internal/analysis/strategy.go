// Package analysis classifies repositories and builds project models from
// them.
package analysis

import (
	"context"
	"fmt"

	"github.com/clintrovert/scrummaster/internal/apperr"
	"github.com/clintrovert/scrummaster/pkg/types"
)

// Strategy analyzes one family of repositories
type Strategy interface {
	// CanAnalyze reports whether the strategy applies to repo
	CanAnalyze(repo *types.Repository) bool
	// Analyze builds a project model from repo
	Analyze(ctx context.Context, repo *types.Repository) (*types.ProjectModel, error)
}

// stubStrategy stands in for project types without an implementation
type stubStrategy struct {
	projectType types.ProjectType
}

func (s *stubStrategy) CanAnalyze(*types.Repository) bool { return false }

func (s *stubStrategy) Analyze(context.Context, *types.Repository) (*types.ProjectModel, error) {
	return nil, fmt.Errorf("analysis strategy not implemented for %s: %w",
		s.projectType, apperr.ErrStrategyNotImplemented)
}
