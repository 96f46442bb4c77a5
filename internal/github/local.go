package github

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/clintrovert/scrummaster/pkg/types"
)

// extLanguages maps file extensions to the language names GitHub reports
var extLanguages = map[string]string{
	".js": "JavaScript", ".jsx": "JavaScript", ".mjs": "JavaScript", ".cjs": "JavaScript",
	".ts": "TypeScript", ".tsx": "TypeScript",
	".vue": "Vue", ".svelte": "Svelte",
	".css": "CSS", ".scss": "SCSS", ".html": "HTML",
	".py": "Python", ".go": "Go", ".rb": "Ruby", ".java": "Java", ".kt": "Kotlin",
	".rs": "Rust", ".php": "PHP", ".cs": "C#", ".swift": "Swift", ".sh": "Shell",
}

// LocalSnapshot builds a repository snapshot from the HEAD commit of a
// local clone. Size is reported in kilobytes like the API does.
func LocalSnapshot(dir string) (*types.Repository, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := r.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	repo := &types.Repository{
		Name:          filepath.Base(abs),
		DefaultBranch: head.Name().Short(),
		PushedAt:      commit.Committer.When,
		UpdatedAt:     commit.Committer.When,
	}
	repo.FullName = repo.Name
	if remote, err := r.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		if owner, name, err := ParseRepositoryURL(remote.Config().URLs[0]); err == nil {
			repo.Owner, repo.Name = owner, name
			repo.FullName = owner + "/" + name
			repo.URL = "https://github.com/" + repo.FullName
		}
	}

	l := layout{}
	for _, e := range tree.Entries {
		l.entries = append(l.entries, entry{name: e.Name, dir: e.Mode == filemode.Dir})
	}
	if workflows, err := tree.Tree(".github/workflows"); err == nil {
		for _, e := range workflows.Entries {
			l.workflows = append(l.workflows, e.Name)
		}
	}
	l.apply(repo)

	if err := scanFiles(tree, repo); err != nil {
		return nil, err
	}

	if content, ok := fileContents(tree, "package.json"); ok {
		if repo.PackageJSON, err = ParsePackageJSON(content); err != nil {
			return nil, err
		}
	}
	if content, ok := fileContents(tree, "requirements.txt"); ok {
		repo.Requirements = ParseRequirements(content)
	}
	for _, e := range l.entries {
		if !e.dir && strings.HasPrefix(strings.ToLower(e.name), "readme") {
			repo.Readme, _ = fileContents(tree, e.name)
			break
		}
	}

	return repo, nil
}

// scanFiles totals byte counts per language and the repository size
func scanFiles(tree *object.Tree, repo *types.Repository) error {
	languages := map[string]int{}
	var total int64

	iter := tree.Files()
	defer iter.Close()
	for {
		f, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to walk tree: %w", err)
		}
		total += f.Size
		if lang, ok := extLanguages[strings.ToLower(path.Ext(f.Name))]; ok {
			languages[lang] += int(f.Size)
		} else if path.Base(f.Name) == "Dockerfile" {
			languages["Dockerfile"] += int(f.Size)
		}
	}

	repo.Languages = languages
	repo.Size = int((total + 1023) / 1024)
	best := 0
	for lang, n := range languages {
		if n > best || (n == best && lang < repo.Language) {
			best, repo.Language = n, lang
		}
	}
	return nil
}

func fileContents(tree *object.Tree, name string) (string, bool) {
	f, err := tree.File(name)
	if err != nil {
		return "", false
	}
	content, err := f.Contents()
	if err != nil {
		return "", false
	}
	return content, true
}
