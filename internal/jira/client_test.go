package jira

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, customField string, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "bot@example.com", "secret", customField, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestAddComment(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/api/2/issue/OPS-1/comment", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"100","body":"ok"}`))
	})

	c := newTestClient(t, "", mux)
	require.NoError(t, c.AddComment("OPS-1", "🎉 *Project created*"))
	assert.Equal(t, "🎉 *Project created*", got["body"])
}

func TestAddComment_Failure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/api/2/issue/OPS-1/comment", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := newTestClient(t, "", mux).AddComment("OPS-1", "x")
	assert.ErrorContains(t, err, "failed to add comment")
}

func TestGetTicket(t *testing.T) {
	tests := []struct {
		name        string
		customField string
		fields      map[string]any
		wantURL     string
	}{
		{
			name:        "custom field owner/repo",
			customField: "customfield_10042",
			fields:      map[string]any{"customfield_10042": "acme/shop", "description": "none"},
			wantURL:     "https://github.com/acme/shop",
		},
		{
			name:    "description url",
			fields:  map[string]any{"description": "Set up https://github.com/acme/site please"},
			wantURL: "https://github.com/acme/site",
		},
		{
			name:   "no url",
			fields: map[string]any{"description": "nothing here"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /rest/api/2/issue/OPS-7", func(w http.ResponseWriter, _ *http.Request) {
				fields := map[string]any{"summary": "Bootstrap scrum board", "status": map[string]any{"name": "To Do"}}
				for k, v := range tc.fields {
					fields[k] = v
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{"key": "OPS-7", "fields": fields})
			})

			ticket, err := newTestClient(t, tc.customField, mux).GetTicket("OPS-7")
			require.NoError(t, err)
			assert.Equal(t, "OPS-7", ticket.Key)
			assert.Equal(t, "Bootstrap scrum board", ticket.Summary)
			assert.Equal(t, "To Do", ticket.Status)
			assert.Equal(t, tc.wantURL, ticket.RepositoryURL)
		})
	}
}
