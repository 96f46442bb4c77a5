package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/clintrovert/scrummaster/pkg/types"
)

const (
	baseEffortHours = 160
	hoursPerPoint   = 8
	hoursPerSprint  = 80
	hoursPerMonth   = 160
)

var (
	effortMultiplier = map[types.ComplexityLevel]float64{
		types.ComplexityLow:      1,
		types.ComplexityMedium:   1.5,
		types.ComplexityHigh:     2,
		types.ComplexityVeryHigh: 3,
	}
	baseDurationDays = map[types.ComplexityLevel]float64{
		types.ComplexityLow:      30,
		types.ComplexityMedium:   60,
		types.ComplexityHigh:     120,
		types.ComplexityVeryHigh: 180,
	}
	baseTeamSize = map[types.ComplexityLevel]float64{
		types.ComplexityLow:      2,
		types.ComplexityMedium:   4,
		types.ComplexityHigh:     6,
		types.ComplexityVeryHigh: 8,
	}

	webSourcePatterns = []string{"public", "static", "assets", "src/components", "src/pages"}

	improvementSuggestions = []string{
		"Add comprehensive testing suite",
		"Implement CI/CD pipeline",
		"Add API documentation",
		"Set up monitoring and logging",
	}
)

// WebAppOption configures a WebAppStrategy
type WebAppOption func(*WebAppStrategy)

// WithClock sets the clock used for model timestamps
func WithClock(now func() time.Time) WebAppOption {
	return func(s *WebAppStrategy) {
		if now != nil {
			s.now = now
		}
	}
}

// WebAppStrategy analyzes JavaScript and TypeScript web projects
type WebAppStrategy struct {
	now func() time.Time
}

// NewWebAppStrategy creates the strategy
func NewWebAppStrategy(opts ...WebAppOption) *WebAppStrategy {
	s := &WebAppStrategy{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanAnalyze looks for a web framework dependency, html documents or a
// typical web source directory
func (s *WebAppStrategy) CanAnalyze(repo *types.Repository) bool {
	if repo == nil {
		return false
	}
	for _, dep := range webDependencies {
		if repo.PackageJSON.Has(dep) {
			return true
		}
	}
	if repo.Files == nil {
		return false
	}
	for _, f := range repo.Files.DocumentationFiles {
		if strings.HasSuffix(f, ".html") {
			return true
		}
	}
	for _, p := range webSourcePatterns {
		if repo.Files.SourceDirectoryName != "" && strings.Contains(repo.Files.SourceDirectoryName, p) {
			return true
		}
	}
	return false
}

// Analyze builds the project model. The result depends only on repo and
// the clock.
func (s *WebAppStrategy) Analyze(ctx context.Context, repo *types.Repository) (*types.ProjectModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, fmt.Errorf("failed to analyze repository: nil repository")
	}

	stack := detectStack(repo)
	complexity := assessComplexity(repo, stack)
	features := mainFeatures(stack)
	requirements := technicalRequirements(stack)
	risks := projectRisks(repo, stack, complexity.Overall)
	recommendations := recommend(repo, complexity.Overall, features)
	now := s.now()

	return &types.ProjectModel{
		Repository:            repo,
		ProjectType:           types.WebApplication,
		Variant:               variant(stack),
		TechnologyStack:       stack,
		Complexity:            complexity,
		CurrentState:          currentState(repo),
		Recommendations:       recommendations,
		EstimatedEffort:       estimateEffort(complexity.Overall),
		RiskAssessment:        assessRisks(complexity.Overall, risks),
		EstimatedDuration:     scaled(baseDurationDays[complexity.Overall], repo.Size, 5000),
		TeamSize:              scaled(baseTeamSize[complexity.Overall], repo.Size, 10000),
		MainFeatures:          features,
		TechnicalRequirements: requirements,
		Risks:                 risks,
		CreatedAt:             now,
		LastAnalyzed:          now,
	}, nil
}

func detectStack(repo *types.Repository) types.TechnologyStack {
	stack := types.TechnologyStack{
		PrimaryLanguage: repo.Language,
		Languages:       repo.Languages,
	}
	if stack.Languages == nil {
		stack.Languages = map[string]int{}
	}

	if pkg := repo.PackageJSON; pkg != nil {
		if pkg.Has("react") {
			stack.Frameworks = append(stack.Frameworks, "React")
			if pkg.Has("next") {
				stack.Frameworks = append(stack.Frameworks, "Next.js")
			}
			if pkg.Has("gatsby") {
				stack.Frameworks = append(stack.Frameworks, "Gatsby")
			}
		}
		if pkg.Has("vue") {
			stack.Frameworks = append(stack.Frameworks, "Vue.js")
			if pkg.Has("nuxt") {
				stack.Frameworks = append(stack.Frameworks, "Nuxt.js")
			}
		}
		if pkg.Has("@angular/core") {
			stack.Frameworks = append(stack.Frameworks, "Angular")
		}
		stack.Frameworks = append(stack.Frameworks,
			collect(pkg, [][2]string{{"express", "Express.js"}, {"fastify", "Fastify"}, {"nestjs", "NestJS"}})...)
		stack.TestingFrameworks = collect(pkg, [][2]string{{"jest", "Jest"}, {"cypress", "Cypress"}, {"playwright", "Playwright"}})
		stack.BuildTools = collect(pkg, [][2]string{{"webpack", "Webpack"}, {"vite", "Vite"}, {"rollup", "Rollup"}})

		if pkg.PackageManager != "" {
			stack.PackageManagers = []string{pkg.PackageManager}
		} else {
			stack.PackageManagers = []string{"npm"}
		}
	}

	if repo.Dockerfile {
		stack.Containerization = []string{"Docker"}
	}
	if repo.CI != nil && repo.CI.HasGitHubActions {
		stack.CICDTools = []string{"GitHub Actions"}
	}
	return stack
}

func collect(pkg *types.PackageManifest, pairs [][2]string) []string {
	var out []string
	for _, p := range pairs {
		if pkg.Has(p[0]) {
			out = append(out, p[1])
		}
	}
	return out
}

// variant names the framework flavour inside the web application family
func variant(stack types.TechnologyStack) types.ProjectType {
	switch {
	case stack.HasFramework("React") && stack.HasFramework("Next.js"):
		return types.NextJSApplication
	case stack.HasFramework("React"):
		return types.ReactApplication
	case stack.HasFramework("Vue.js"):
		return types.VueApplication
	case stack.HasFramework("Angular"):
		return types.AngularApplication
	case stack.HasFramework("Express.js"), stack.HasFramework("Fastify"), stack.HasFramework("NestJS"):
		return types.APIService
	}
	return types.WebApplication
}

func assessComplexity(repo *types.Repository, stack types.TechnologyStack) types.Complexity {
	score := 0
	switch {
	case repo.Size > 100000:
		score += 3
	case repo.Size > 50000:
		score += 2
	case repo.Size > 10000:
		score++
	}
	switch n := len(repo.Languages); {
	case n > 5:
		score += 2
	case n > 3:
		score++
	}
	frameworks := len(stack.Frameworks)
	switch {
	case frameworks > 3:
		score += 2
	case frameworks > 1:
		score++
	}

	overall := types.ComplexityLow
	switch {
	case score >= 6:
		overall = types.ComplexityVeryHigh
	case score >= 4:
		overall = types.ComplexityHigh
	case score >= 2:
		overall = types.ComplexityMedium
	}

	sizeImpact := types.ComplexityLow
	if repo.Size > 50000 {
		sizeImpact = types.ComplexityHigh
	}
	stackImpact := types.ComplexityLow
	if frameworks > 2 {
		stackImpact = types.ComplexityMedium
	}

	return types.Complexity{
		Overall:       overall,
		Codebase:      threshold(repo.Size, 100000, 50000),
		Architecture:  threshold(frameworks, 3, 1),
		Dependencies:  threshold(repo.PackageJSON.DependencyCount(), 100, 50),
		Testing:       testingComplexity(repo, stack),
		Documentation: documentationComplexity(repo),
		Factors: []types.ComplexityFactor{
			{
				Factor:      "Repository Size",
				Impact:      sizeImpact,
				Description: fmt.Sprintf("Repository size: %d bytes", repo.Size),
			},
			{
				Factor:      "Technology Stack",
				Impact:      stackImpact,
				Description: fmt.Sprintf("Using %d frameworks: %s", frameworks, strings.Join(stack.Frameworks, ", ")),
			},
		},
	}
}

// threshold maps n to high above hi, medium above mid and low otherwise
func threshold(n, hi, mid int) types.ComplexityLevel {
	switch {
	case n > hi:
		return types.ComplexityHigh
	case n > mid:
		return types.ComplexityMedium
	}
	return types.ComplexityLow
}

func testingComplexity(repo *types.Repository, stack types.TechnologyStack) types.ComplexityLevel {
	if repo.Files == nil || !repo.Files.HasTests {
		return types.ComplexityHigh
	}
	if len(stack.TestingFrameworks) > 2 {
		return types.ComplexityMedium
	}
	return types.ComplexityLow
}

func documentationComplexity(repo *types.Repository) types.ComplexityLevel {
	docs := 0
	if repo.Files != nil {
		docs = len(repo.Files.DocumentationFiles)
	}
	switch {
	case !repo.HasReadme && !repo.HasWiki && docs == 0:
		return types.ComplexityHigh
	case repo.HasReadme && (repo.HasWiki || docs > 0):
		return types.ComplexityLow
	}
	return types.ComplexityMedium
}

func currentState(repo *types.Repository) types.CurrentState {
	return types.CurrentState{
		HasActiveIssues:  repo.HasIssues,
		HasRecentCommits: true,
		LastCommitDate:   repo.PushedAt,
		HasDocumentation: repo.HasReadme,
		HasTests:         repo.Files != nil && repo.Files.HasTests,
		HasCI:            repo.CI != nil && repo.CI.HasGitHubActions,
	}
}

func recommend(repo *types.Repository, level types.ComplexityLevel, features []string) types.ScrumRecommendations {
	r := types.ScrumRecommendations{
		SprintLengthDays:       7,
		TeamSize:               3,
		Velocity:               20,
		ImprovementSuggestions: append([]string(nil), improvementSuggestions...),
	}
	if level.IsComplex() {
		r.SprintLengthDays = 14
		r.TeamSize = 5
		r.Velocity = 40
	}
	backlog := buildBacklog(repo, features, r.Velocity)
	r.SuggestedEpics = backlog.Epics
	r.SuggestedUserStories = backlog.Stories
	r.SuggestedTasks = backlog.Tasks
	return r
}

func estimateEffort(level types.ComplexityLevel) types.EffortEstimation {
	total := baseEffortHours * effortMultiplier[level]
	team := 3
	if level.IsComplex() {
		team = 5
	}
	return types.EffortEstimation{
		TotalStoryPoints:        int(math.Round(total / hoursPerPoint)),
		TotalDevelopmentHours:   int(math.Round(total * 0.6)),
		TotalTestingHours:       int(math.Round(total * 0.2)),
		TotalDocumentationHours: int(math.Round(total * 0.1)),
		TotalDeploymentHours:    int(math.Round(total * 0.1)),
		EstimatedSprints:        int(math.Ceil(total / hoursPerSprint)),
		EstimatedTeamSize:       team,
		EstimatedDurationMonths: int(math.Ceil(total / hoursPerMonth)),
		Confidence:              types.ConfidenceMedium,
	}
}

func assessRisks(level types.ComplexityLevel, risks []string) types.RiskAssessment {
	a := types.RiskAssessment{
		OverallRisk:    types.RiskMedium,
		TechnicalRisks: append([]string(nil), risks...),
	}
	if level.IsComplex() {
		a.OverallRisk = types.RiskHigh
		a.MitigationStrategies = []string{
			"Break integration work into spikes early in each sprint",
			"Review architecture decisions at sprint boundaries",
		}
	}
	return a
}

// scaled multiplies base by size/divisor, never less than base. A zero
// size counts as 1000 bytes.
func scaled(base float64, size, divisor int) int {
	if size == 0 {
		size = 1000
	}
	return int(math.Ceil(base * math.Max(1, float64(size)/float64(divisor))))
}

func mainFeatures(stack types.TechnologyStack) []string {
	var features []string
	if stack.HasFramework("React") {
		features = append(features, "Component-based UI", "State management", "Routing")
	}
	if stack.HasFramework("Next.js") {
		features = append(features, "Server-side rendering", "Static site generation", "API routes")
	}
	if stack.HasFramework("Vue.js") {
		features = append(features, "Reactive data binding", "Component composition", "Vue Router")
	}
	if stack.HasFramework("Angular") {
		features = append(features, "TypeScript integration", "Dependency injection", "Angular CLI")
	}
	features = append(features, "Responsive design", "Cross-browser compatibility")
	if len(stack.Databases) > 0 {
		features = append(features, "Data persistence", "Database integration")
	}
	return features
}

func technicalRequirements(stack types.TechnologyStack) []string {
	var reqs []string
	if stack.PrimaryLanguage != "" {
		reqs = append(reqs, stack.PrimaryLanguage+" runtime")
	}
	for _, f := range stack.Frameworks {
		reqs = append(reqs, f+" framework")
	}
	for _, db := range stack.Databases {
		reqs = append(reqs, db+" database")
	}
	for _, t := range stack.BuildTools {
		reqs = append(reqs, t+" build system")
	}
	reqs = append(reqs, "Web browser support", "HTTP/HTTPS protocol", "DOM manipulation capabilities")
	if len(stack.Containerization) > 0 {
		reqs = append(reqs, "Container runtime")
	}
	return reqs
}

func projectRisks(repo *types.Repository, stack types.TechnologyStack, level types.ComplexityLevel) []string {
	var risks []string
	if level.IsComplex() {
		risks = append(risks,
			"High technical complexity may lead to delays",
			"Integration challenges between multiple systems",
		)
	}
	if len(stack.Frameworks) > 3 {
		risks = append(risks, "Multiple frameworks may increase learning curve")
	}
	if len(stack.Databases) > 1 {
		risks = append(risks, "Multiple databases may complicate data consistency")
	}
	if repo.Size > 50000 {
		risks = append(risks, "Large codebase may impact maintainability")
	}
	return append(risks,
		"Browser compatibility issues",
		"Performance optimization challenges",
		"Security vulnerabilities in web components",
	)
}
