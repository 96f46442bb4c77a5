package github

import (
	"regexp"
	"strings"

	"github.com/clintrovert/scrummaster/internal/apperr"
)

var repositoryURL = regexp.MustCompile(`github\.com[/:]([^/]+)/([^/?#]+)`)

// ParseRepositoryURL extracts owner and repository name from an https or
// ssh GitHub URL
func ParseRepositoryURL(raw string) (owner, repo string, err error) {
	m := repositoryURL.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", apperr.ErrInvalidRepositoryURL.WithContext("url", raw)
	}
	repo = strings.TrimSuffix(m[2], ".git")
	if m[1] == "" || repo == "" {
		return "", "", apperr.ErrInvalidRepositoryURL.WithContext("url", raw)
	}
	return m[1], repo, nil
}
