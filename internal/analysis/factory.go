package analysis

import (
	"time"

	"github.com/clintrovert/scrummaster/pkg/types"
)

// webDependencies mark a package.json as belonging to a web project
var webDependencies = []string{
	"react", "vue", "angular", "next", "nuxt", "svelte", "gatsby", "express", "fastify", "koa",
}

// Factory creates strategies by project type
type Factory struct {
	now func() time.Time
}

// NewFactory creates a factory. A nil clock uses time.Now.
func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

// Create returns the strategy for t. Web types get the web application
// strategy; every other type gets a stub that cannot analyze anything.
func (f *Factory) Create(t types.ProjectType) Strategy {
	if t.Family() == types.WebApplication {
		return NewWebAppStrategy(WithClock(f.now))
	}
	return &stubStrategy{projectType: t}
}

// DetectProjectType makes a coarse guess from the dependency manifest and
// primary language
func DetectProjectType(repo *types.Repository) types.ProjectType {
	if repo == nil {
		return types.Unknown
	}
	for _, dep := range webDependencies {
		if repo.PackageJSON.Has(dep) {
			return types.WebApplication
		}
	}
	switch repo.Language {
	case "TypeScript", "JavaScript":
		return types.WebApplication
	case "Python":
		return types.PythonPackage
	}
	return types.Unknown
}
