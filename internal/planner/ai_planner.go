package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/pkg/types"
)

const systemPrompt = "You are an experienced scrum master who writes clear, " +
	"actionable backlog items for software teams."

// AIOption configures an AIPlanner
type AIOption func(*openai.ClientConfig)

// WithBaseURL points the planner at a compatible API endpoint
func WithBaseURL(url string) AIOption {
	return func(c *openai.ClientConfig) {
		if url != "" {
			c.BaseURL = url
		}
	}
}

// AIPlanner asks a chat model to rewrite the suggested backlog
// descriptions. Any failure falls back to the suggestions unchanged.
type AIPlanner struct {
	client   *openai.Client
	logger   *zap.Logger
	model    string
	fallback Planner
}

// NewAIPlanner creates a new AI planner
func NewAIPlanner(apiKey, model string, logger *zap.Logger, opts ...AIOption) *AIPlanner {
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}

	if model == "" {
		model = openai.GPT4TurboPreview
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AIPlanner{
		client:   openai.NewClientWithConfig(cfg),
		logger:   logger,
		model:    model,
		fallback: RecommendationPlanner{},
	}
}

// Plan refines the suggested backlog
func (p *AIPlanner) Plan(ctx context.Context, model *types.ProjectModel) (*types.Backlog, error) {
	backlog, err := p.fallback.Plan(ctx, model)
	if err != nil {
		return nil, err
	}
	if backlog.Len() == 0 {
		return backlog, nil
	}

	refined, err := p.refine(ctx, model, backlog)
	if err != nil {
		p.logger.Warn("falling back to suggested backlog", zap.Error(err))
		return backlog, nil
	}
	return refined, nil
}

func (p *AIPlanner) refine(ctx context.Context, model *types.ProjectModel, backlog *types.Backlog) (*types.Backlog, error) {
	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildPrompt(model, backlog),
				},
			},
			Temperature: 0.7,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	updated := applyResponse(resp.Choices[0].Message.Content, backlog)
	if updated == 0 {
		return nil, fmt.Errorf("failed to parse AI response: no backlog lines")
	}

	p.logger.Info("refined backlog",
		zap.Int("items", backlog.Len()),
		zap.Int("updated", updated),
	)
	return backlog, nil
}

func buildPrompt(model *types.ProjectModel, backlog *types.Backlog) string {
	var sb strings.Builder

	sb.WriteString("Rewrite the descriptions of the following backlog items")
	if model.Repository != nil && model.Repository.FullName != "" {
		sb.WriteString(" for the repository " + model.Repository.FullName)
	}
	sb.WriteString(".\n\n")
	sb.WriteString("**Project type:** " + string(model.ProjectType))
	if model.Variant != "" && model.Variant != model.ProjectType {
		sb.WriteString(" (" + string(model.Variant) + ")")
	}
	sb.WriteString("\n")
	sb.WriteString("**Frameworks:** " + strings.Join(model.TechnologyStack.Frameworks, ", ") + "\n")
	sb.WriteString("**Complexity:** " + string(model.Complexity.Overall) + "\n\n")

	for _, e := range backlog.Epics {
		sb.WriteString(fmt.Sprintf("EPIC %s: %s - %s\n", e.ID, e.Title, e.Description))
	}
	for _, s := range backlog.Stories {
		sb.WriteString(fmt.Sprintf("STORY %s: %s - %s\n", s.ID, s.Title, s.Description))
	}
	for _, t := range backlog.Tasks {
		sb.WriteString(fmt.Sprintf("TASK %s: %s - %s\n", t.ID, t.Title, t.Description))
	}

	sb.WriteString("\nKeep every id. Format your response as one line per item:\n")
	sb.WriteString("EPIC: <id> | <description>\n")
	sb.WriteString("STORY: <id> | <description>\n")
	sb.WriteString("TASK: <id> | <description>\n")

	return sb.String()
}

// applyResponse replaces descriptions for the ids found in response and
// returns how many items changed. Unknown ids and malformed lines are
// skipped.
func applyResponse(response string, backlog *types.Backlog) int {
	updated := 0
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		kind, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		id, desc, ok := strings.Cut(rest, "|")
		if !ok {
			continue
		}
		id, desc = strings.TrimSpace(id), strings.TrimSpace(desc)
		if id == "" || desc == "" {
			continue
		}

		switch strings.ToUpper(strings.TrimSpace(kind)) {
		case "EPIC":
			for i := range backlog.Epics {
				if backlog.Epics[i].ID == id {
					backlog.Epics[i].Description = desc
					updated++
				}
			}
		case "STORY":
			for i := range backlog.Stories {
				if backlog.Stories[i].ID == id {
					backlog.Stories[i].Description = desc
					updated++
				}
			}
		case "TASK":
			for i := range backlog.Tasks {
				if backlog.Tasks[i].ID == id {
					backlog.Tasks[i].Description = desc
					updated++
				}
			}
		}
	}
	return updated
}

var _ Planner = (*AIPlanner)(nil)
