package types

import (
	"time"
)

// ProjectType is the coarse classification of a repository
type ProjectType string

const (
	WebApplication     ProjectType = "web-application"
	APIService         ProjectType = "api-service"
	MobileApplication  ProjectType = "mobile-application"
	DesktopApplication ProjectType = "desktop-application"
	PythonPackage      ProjectType = "python-package"
	PythonDjango       ProjectType = "python-django"
	PythonFlask        ProjectType = "python-flask"
	PythonFastAPI      ProjectType = "python-fastapi"
	NodeLibrary        ProjectType = "node-library"
	ReactApplication   ProjectType = "react-application"
	NextJSApplication  ProjectType = "next-js-application"
	VueApplication     ProjectType = "vue-application"
	AngularApplication ProjectType = "angular-application"
	Microservice       ProjectType = "microservice"
	Monolith           ProjectType = "monolith"
	Unknown            ProjectType = "unknown"
)

// Family collapses framework specific web types into WebApplication
func (t ProjectType) Family() ProjectType {
	switch t {
	case WebApplication, ReactApplication, NextJSApplication, VueApplication, AngularApplication:
		return WebApplication
	}
	return t
}

// ComplexityLevel is an ordinal complexity bucket
type ComplexityLevel string

const (
	ComplexityLow      ComplexityLevel = "low"
	ComplexityMedium   ComplexityLevel = "medium"
	ComplexityHigh     ComplexityLevel = "high"
	ComplexityVeryHigh ComplexityLevel = "very-high"
)

// IsComplex reports whether the level is high or very high
func (l ComplexityLevel) IsComplex() bool {
	return l == ComplexityHigh || l == ComplexityVeryHigh
}

// Priority of a backlog item
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities, lower is more urgent
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// RiskLevel of a project
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ConfidenceLevel of an estimate
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ProjectModel is the result of analysing a repository. It is built once
// and treated as read-only afterwards.
type ProjectModel struct {
	Repository            *Repository          `json:"repository" yaml:"repository"`
	ProjectType           ProjectType          `json:"project_type" yaml:"project_type"`
	Variant               ProjectType          `json:"variant" yaml:"variant"`
	TechnologyStack       TechnologyStack      `json:"technology_stack" yaml:"technology_stack"`
	Complexity            Complexity           `json:"complexity" yaml:"complexity"`
	CurrentState          CurrentState         `json:"current_state" yaml:"current_state"`
	Recommendations       ScrumRecommendations `json:"recommendations" yaml:"recommendations"`
	EstimatedEffort       EffortEstimation     `json:"estimated_effort" yaml:"estimated_effort"`
	RiskAssessment        RiskAssessment       `json:"risk_assessment" yaml:"risk_assessment"`
	EstimatedDuration     int                  `json:"estimated_duration_days" yaml:"estimated_duration_days"`
	TeamSize              int                  `json:"team_size" yaml:"team_size"`
	MainFeatures          []string             `json:"main_features" yaml:"main_features"`
	TechnicalRequirements []string             `json:"technical_requirements" yaml:"technical_requirements"`
	Risks                 []string             `json:"risks" yaml:"risks"`
	CreatedAt             time.Time            `json:"created_at" yaml:"created_at"`
	LastAnalyzed          time.Time            `json:"last_analyzed" yaml:"last_analyzed"`
}

// TechnologyStack detected in a repository
type TechnologyStack struct {
	PrimaryLanguage   string         `json:"primary_language" yaml:"primary_language"`
	Languages         map[string]int `json:"languages" yaml:"languages"`
	Frameworks        []string       `json:"frameworks" yaml:"frameworks"`
	Databases         []string       `json:"databases" yaml:"databases"`
	CloudPlatforms    []string       `json:"cloud_platforms" yaml:"cloud_platforms"`
	CICDTools         []string       `json:"cicd_tools" yaml:"cicd_tools"`
	TestingFrameworks []string       `json:"testing_frameworks" yaml:"testing_frameworks"`
	BuildTools        []string       `json:"build_tools" yaml:"build_tools"`
	PackageManagers   []string       `json:"package_managers" yaml:"package_managers"`
	Containerization  []string       `json:"containerization" yaml:"containerization"`
	Infrastructure    []string       `json:"infrastructure" yaml:"infrastructure"`
}

// HasFramework reports whether name is among the detected frameworks
func (s TechnologyStack) HasFramework(name string) bool {
	for _, f := range s.Frameworks {
		if f == name {
			return true
		}
	}
	return false
}

// Complexity breaks down how hard a project is to work on
type Complexity struct {
	Overall       ComplexityLevel    `json:"overall" yaml:"overall"`
	Codebase      ComplexityLevel    `json:"codebase" yaml:"codebase"`
	Architecture  ComplexityLevel    `json:"architecture" yaml:"architecture"`
	Dependencies  ComplexityLevel    `json:"dependencies" yaml:"dependencies"`
	Testing       ComplexityLevel    `json:"testing" yaml:"testing"`
	Documentation ComplexityLevel    `json:"documentation" yaml:"documentation"`
	Factors       []ComplexityFactor `json:"factors" yaml:"factors"`
}

// ComplexityFactor is one named contributor to the overall score
type ComplexityFactor struct {
	Factor      string          `json:"factor" yaml:"factor"`
	Impact      ComplexityLevel `json:"impact" yaml:"impact"`
	Description string          `json:"description" yaml:"description"`
}

// CurrentState is what the repository looks like today
type CurrentState struct {
	HasActiveIssues       bool      `json:"has_active_issues" yaml:"has_active_issues"`
	IssueCount            int       `json:"issue_count" yaml:"issue_count"`
	HasActivePullRequests bool      `json:"has_active_pull_requests" yaml:"has_active_pull_requests"`
	PullRequestCount      int       `json:"pull_request_count" yaml:"pull_request_count"`
	HasRecentCommits      bool      `json:"has_recent_commits" yaml:"has_recent_commits"`
	LastCommitDate        time.Time `json:"last_commit_date" yaml:"last_commit_date"`
	HasDocumentation      bool      `json:"has_documentation" yaml:"has_documentation"`
	HasTests              bool      `json:"has_tests" yaml:"has_tests"`
	HasCI                 bool      `json:"has_ci" yaml:"has_ci"`
}

// ScrumRecommendations are the team and backlog suggestions for a project
type ScrumRecommendations struct {
	SprintLengthDays       int         `json:"sprint_length_days" yaml:"sprint_length_days"`
	TeamSize               int         `json:"team_size" yaml:"team_size"`
	Velocity               int         `json:"velocity" yaml:"velocity"`
	SuggestedEpics         []Epic      `json:"suggested_epics" yaml:"suggested_epics"`
	SuggestedUserStories   []UserStory `json:"suggested_user_stories" yaml:"suggested_user_stories"`
	SuggestedTasks         []Task      `json:"suggested_tasks" yaml:"suggested_tasks"`
	ImprovementSuggestions []string    `json:"improvement_suggestions" yaml:"improvement_suggestions"`
}

// Backlog returns a copy of the suggested epics, stories and tasks
func (r ScrumRecommendations) Backlog() *Backlog {
	return &Backlog{
		Epics:   append([]Epic(nil), r.SuggestedEpics...),
		Stories: append([]UserStory(nil), r.SuggestedUserStories...),
		Tasks:   append([]Task(nil), r.SuggestedTasks...),
	}
}

// EffortEstimation in hours and story points
type EffortEstimation struct {
	TotalStoryPoints        int             `json:"total_story_points" yaml:"total_story_points"`
	TotalDevelopmentHours   int             `json:"total_development_hours" yaml:"total_development_hours"`
	TotalTestingHours       int             `json:"total_testing_hours" yaml:"total_testing_hours"`
	TotalDocumentationHours int             `json:"total_documentation_hours" yaml:"total_documentation_hours"`
	TotalDeploymentHours    int             `json:"total_deployment_hours" yaml:"total_deployment_hours"`
	EstimatedSprints        int             `json:"estimated_sprints" yaml:"estimated_sprints"`
	EstimatedTeamSize       int             `json:"estimated_team_size" yaml:"estimated_team_size"`
	EstimatedDurationMonths int             `json:"estimated_duration_months" yaml:"estimated_duration_months"`
	Confidence              ConfidenceLevel `json:"confidence" yaml:"confidence"`
}

// RiskAssessment of a project
type RiskAssessment struct {
	OverallRisk          RiskLevel `json:"overall_risk" yaml:"overall_risk"`
	TechnicalRisks       []string  `json:"technical_risks" yaml:"technical_risks"`
	MitigationStrategies []string  `json:"mitigation_strategies" yaml:"mitigation_strategies"`
}
