package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/clintrovert/scrummaster/internal/apperr"
	"github.com/clintrovert/scrummaster/pkg/types"
)

func testModel() *types.ProjectModel {
	return &types.ProjectModel{
		Repository:  &types.Repository{FullName: "acme/shop"},
		ProjectType: types.WebApplication,
		Variant:     types.ReactApplication,
		Recommendations: types.ScrumRecommendations{
			SuggestedEpics:       []types.Epic{{ID: "EPIC-1", Title: "Core", Description: "old epic"}},
			SuggestedUserStories: []types.UserStory{{ID: "STORY-1", EpicID: "EPIC-1", Title: "Login", Description: "old story"}},
			SuggestedTasks:       []types.Task{{ID: "TASK-1", Title: "CI", Description: "old task"}},
		},
	}
}

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Contains(t, req.Messages[1].Content, "EPIC EPIC-1: Core - old epic")
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRecommendationPlanner(t *testing.T) {
	model := testModel()

	backlog, err := RecommendationPlanner{}.Plan(context.Background(), model)
	require.NoError(t, err)
	assert.Equal(t, 3, backlog.Len())

	backlog.Epics[0].Title = "changed"
	assert.Equal(t, "Core", model.Recommendations.SuggestedEpics[0].Title)

	_, err = RecommendationPlanner{}.Plan(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrAnalysisIncomplete)
}

func TestAIPlanner_RefinesDescriptions(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "EPIC: EPIC-1 | Build the core shop\n"+
		"garbage line\n"+
		"STORY: STORY-9 | unknown id\n"+
		"story: STORY-1 | Users can sign in with email\n")

	p := NewAIPlanner("test-key", "gpt-test", zap.NewNop(), WithBaseURL(srv.URL+"/v1"))
	model := testModel()

	backlog, err := p.Plan(context.Background(), model)
	require.NoError(t, err)
	assert.Equal(t, "Build the core shop", backlog.Epics[0].Description)
	assert.Equal(t, "Users can sign in with email", backlog.Stories[0].Description)
	assert.Equal(t, "old task", backlog.Tasks[0].Description)
	assert.Equal(t, "old epic", model.Recommendations.SuggestedEpics[0].Description)
}

func TestAIPlanner_FallsBackOnError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"unparseable reply", http.StatusOK, "I cannot help with that"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := chatServer(t, tc.status, tc.content)
			core, logs := observer.New(zap.WarnLevel)
			p := NewAIPlanner("test-key", "gpt-test", zap.New(core), WithBaseURL(srv.URL+"/v1"))

			backlog, err := p.Plan(context.Background(), testModel())
			require.NoError(t, err)
			assert.Equal(t, "old epic", backlog.Epics[0].Description)
			assert.Equal(t, 1, logs.FilterMessage("falling back to suggested backlog").Len())
		})
	}
}

func TestAIPlanner_EmptyBacklogSkipsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("unexpected request")
	}))
	defer srv.Close()

	p := NewAIPlanner("test-key", "", nil, WithBaseURL(srv.URL+"/v1"))
	backlog, err := p.Plan(context.Background(), &types.ProjectModel{})
	require.NoError(t, err)
	assert.Equal(t, 0, backlog.Len())
	assert.Equal(t, openai.GPT4TurboPreview, p.model)
}

func TestApplyResponse(t *testing.T) {
	backlog := testModel().Recommendations.Backlog()
	n := applyResponse("TASK: TASK-1 | Add a workflow\nTASK: | empty\nEPIC: EPIC-1 |   \n", backlog)

	assert.Equal(t, 1, n)
	assert.Equal(t, "Add a workflow", backlog.Tasks[0].Description)
}

func TestBuildPrompt(t *testing.T) {
	model := testModel()
	prompt := buildPrompt(model, model.Recommendations.Backlog())

	assert.Contains(t, prompt, "for the repository acme/shop")
	assert.Contains(t, prompt, "**Project type:** web-application (react-application)\n")
	assert.Contains(t, prompt, "EPIC EPIC-1: Core - old epic")
}
