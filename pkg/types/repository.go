package types

import (
	"time"
)

// Repository is a snapshot of a GitHub repository used for analysis
type Repository struct {
	Owner         string           `json:"owner" yaml:"owner"`
	Name          string           `json:"name" yaml:"name"`
	FullName      string           `json:"full_name" yaml:"full_name"`
	URL           string           `json:"url" yaml:"url"`
	DefaultBranch string           `json:"default_branch" yaml:"default_branch"`
	Language      string           `json:"language" yaml:"language"`
	Languages     map[string]int   `json:"languages,omitempty" yaml:"languages,omitempty"`
	Size          int              `json:"size" yaml:"size"`
	Stargazers    int              `json:"stargazers" yaml:"stargazers"`
	Forks         int              `json:"forks" yaml:"forks"`
	IsPrivate     bool             `json:"is_private" yaml:"is_private"`
	HasIssues     bool             `json:"has_issues" yaml:"has_issues"`
	HasProjects   bool             `json:"has_projects" yaml:"has_projects"`
	HasWiki       bool             `json:"has_wiki" yaml:"has_wiki"`
	CreatedAt     time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" yaml:"updated_at"`
	PushedAt      time.Time        `json:"pushed_at" yaml:"pushed_at"`
	Description   string           `json:"description,omitempty" yaml:"description,omitempty"`
	Topics        []string         `json:"topics,omitempty" yaml:"topics,omitempty"`
	License       string           `json:"license,omitempty" yaml:"license,omitempty"`
	Readme        string           `json:"-" yaml:"-"`
	HasReadme     bool             `json:"has_readme" yaml:"has_readme"`
	PackageJSON   *PackageManifest `json:"package_json,omitempty" yaml:"package_json,omitempty"`
	Requirements  []string         `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Dockerfile    bool             `json:"dockerfile" yaml:"dockerfile"`
	CI            *CIConfig        `json:"ci,omitempty" yaml:"ci,omitempty"`
	Files         *FileStructure   `json:"files,omitempty" yaml:"files,omitempty"`
}

// PackageManifest is the subset of package.json used for classification
type PackageManifest struct {
	Name            string            `json:"name,omitempty" yaml:"name,omitempty"`
	Version         string            `json:"version,omitempty" yaml:"version,omitempty"`
	PackageManager  string            `json:"packageManager,omitempty" yaml:"package_manager,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty" yaml:"dev_dependencies,omitempty"`
}

// Has reports whether name appears in dependencies or devDependencies
func (m *PackageManifest) Has(name string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.Dependencies[name]; ok {
		return true
	}
	_, ok := m.DevDependencies[name]
	return ok
}

// DependencyCount returns the number of runtime and dev dependencies
func (m *PackageManifest) DependencyCount() int {
	if m == nil {
		return 0
	}
	return len(m.Dependencies) + len(m.DevDependencies)
}

// CIConfig describes CI systems detected in a repository
type CIConfig struct {
	HasGitHubActions bool     `json:"has_github_actions" yaml:"has_github_actions"`
	HasJenkins       bool     `json:"has_jenkins" yaml:"has_jenkins"`
	HasTravis        bool     `json:"has_travis" yaml:"has_travis"`
	HasCircleCI      bool     `json:"has_circleci" yaml:"has_circleci"`
	Workflows        []string `json:"workflows,omitempty" yaml:"workflows,omitempty"`
}

// Any reports whether any CI system was detected
func (c *CIConfig) Any() bool {
	return c != nil && (c.HasGitHubActions || c.HasJenkins || c.HasTravis || c.HasCircleCI)
}

// FileStructure summarizes the top-level layout of a repository
type FileStructure struct {
	HasSourceDirectory  bool     `json:"has_source_directory" yaml:"has_source_directory"`
	SourceDirectoryName string   `json:"source_directory_name,omitempty" yaml:"source_directory_name,omitempty"`
	HasTests            bool     `json:"has_tests" yaml:"has_tests"`
	TestDirectoryName   string   `json:"test_directory_name,omitempty" yaml:"test_directory_name,omitempty"`
	HasDocumentation    bool     `json:"has_documentation" yaml:"has_documentation"`
	DocumentationFiles  []string `json:"documentation_files,omitempty" yaml:"documentation_files,omitempty"`
	ConfigFiles         []string `json:"config_files,omitempty" yaml:"config_files,omitempty"`
	BuildFiles          []string `json:"build_files,omitempty" yaml:"build_files,omitempty"`
}
