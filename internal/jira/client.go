// Package jira wraps the Jira API used to mirror setup progress onto a
// tracking ticket.
package jira

import (
	"fmt"
	"regexp"
	"strings"

	jira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"
)

var githubURL = regexp.MustCompile(`https://github\.com/[^\s/]+/[^\s/|\]]+`)

// Ticket is the part of a Jira issue the CLI reports on
type Ticket struct {
	Key           string
	Summary       string
	Status        string
	Description   string
	RepositoryURL string
}

// Client wraps Jira API client functionality
type Client struct {
	client      *jira.Client
	logger      *zap.Logger
	customField string
}

// NewClient creates a new Jira client. customField names the issue field
// that may hold a repository URL; it can be empty.
func NewClient(baseURL, username, apiToken, customField string, logger *zap.Logger) (*Client, error) {
	tp := jira.BasicAuthTransport{
		Username: username,
		Password: apiToken,
	}

	client, err := jira.NewClient(tp.Client(), baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:      client,
		logger:      logger,
		customField: customField,
	}, nil
}

// GetTicket retrieves a ticket by key
func (c *Client) GetTicket(ticketID string) (*Ticket, error) {
	issue, _, err := c.client.Issue.Get(ticketID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	t := &Ticket{Key: issue.Key}
	if issue.Fields != nil {
		t.Summary = issue.Fields.Summary
		t.Description = issue.Fields.Description
		if issue.Fields.Status != nil {
			t.Status = issue.Fields.Status.Name
		}
		t.RepositoryURL = c.repositoryURL(issue.Fields)
	}
	return t, nil
}

// AddComment adds a comment to a ticket
func (c *Client) AddComment(ticketID, comment string) error {
	_, _, err := c.client.Issue.AddComment(ticketID, &jira.Comment{
		Body: comment,
	})
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}

	c.logger.Debug("added jira comment", zap.String("ticket", ticketID))
	return nil
}

// repositoryURL looks for a GitHub URL in the custom field, then in the
// description
func (c *Client) repositoryURL(fields *jira.IssueFields) string {
	if c.customField != "" {
		for key, value := range fields.Unknowns {
			if !strings.Contains(strings.ToLower(key), strings.ToLower(c.customField)) {
				continue
			}
			s, ok := value.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if m := githubURL.FindString(s); m != "" {
				return m
			}
			if parts := strings.Split(s, "/"); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
				return "https://github.com/" + s
			}
		}
	}
	return githubURL.FindString(fields.Description)
}
