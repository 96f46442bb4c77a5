package github

import (
	"path"
	"strings"

	"github.com/clintrovert/scrummaster/pkg/types"
)

var (
	sourceDirs = []string{"src", "lib", "app", "public", "static", "assets"}
	testDirs   = []string{"test", "tests", "__tests__", "spec"}
	buildFiles = map[string]bool{
		"package.json": true, "Makefile": true, "go.mod": true, "pom.xml": true,
		"build.gradle": true, "setup.py": true, "pyproject.toml": true, "Cargo.toml": true,
		"webpack.config.js": true, "vite.config.js": true, "vite.config.ts": true, "rollup.config.js": true,
	}
	configExts = map[string]bool{".json": true, ".yml": true, ".yaml": true, ".toml": true, ".ini": true}
	docExts    = map[string]bool{".md": true, ".rst": true, ".txt": true, ".html": true}
)

type entry struct {
	name string
	dir  bool
}

// layout is the top-level listing of a repository plus its workflow files
type layout struct {
	entries   []entry
	workflows []string
}

func (l layout) has(name string, dir bool) bool {
	for _, e := range l.entries {
		if e.name == name && e.dir == dir {
			return true
		}
	}
	return false
}

// apply fills the layout derived fields of repo
func (l layout) apply(repo *types.Repository) {
	files := &types.FileStructure{}
	ci := &types.CIConfig{}

	for _, e := range l.entries {
		lower := strings.ToLower(e.name)
		switch {
		case e.dir:
			if !files.HasSourceDirectory && contains(sourceDirs, lower) {
				files.HasSourceDirectory = true
				files.SourceDirectoryName = e.name
			}
			if !files.HasTests && contains(testDirs, lower) {
				files.HasTests = true
				files.TestDirectoryName = e.name
			}
			if lower == "docs" || lower == "doc" {
				files.HasDocumentation = true
			}
			if lower == ".circleci" {
				ci.HasCircleCI = true
			}
		case e.name == "Dockerfile":
			repo.Dockerfile = true
		case e.name == "Jenkinsfile":
			ci.HasJenkins = true
		case lower == ".travis.yml":
			ci.HasTravis = true
		default:
			ext := strings.ToLower(path.Ext(e.name))
			if strings.HasPrefix(lower, "readme") {
				repo.HasReadme = true
			}
			if docExts[ext] {
				files.HasDocumentation = true
				files.DocumentationFiles = append(files.DocumentationFiles, e.name)
			}
			if buildFiles[e.name] {
				files.BuildFiles = append(files.BuildFiles, e.name)
			} else if configExts[ext] || strings.HasPrefix(e.name, ".") {
				files.ConfigFiles = append(files.ConfigFiles, e.name)
			}
		}
	}

	for _, w := range l.workflows {
		ext := strings.ToLower(path.Ext(w))
		if ext == ".yml" || ext == ".yaml" {
			ci.HasGitHubActions = true
			ci.Workflows = append(ci.Workflows, w)
		}
	}

	repo.Files = files
	repo.CI = ci
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
