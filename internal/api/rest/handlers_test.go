package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clintrovert/scrummaster/internal/command"
	"github.com/clintrovert/scrummaster/internal/engine"
	"github.com/clintrovert/scrummaster/internal/events"
	"github.com/clintrovert/scrummaster/internal/observers"
)

type fakeBackend struct {
	*events.Bus
	healthy bool
}

func (f *fakeBackend) HealthCheck() engine.HealthReport {
	return engine.HealthReport{
		Overall:        f.healthy,
		CommandInvoker: command.HealthStatus{Healthy: f.healthy, SuccessRate: 100},
	}
}

func (f *fakeBackend) ProcessingStatus() engine.ProcessingStatus {
	return engine.ProcessingStatus{CurrentRepository: "shop", TotalObservers: f.ObserverCount()}
}

func newServer(t *testing.T, healthy bool) (*httptest.Server, *fakeBackend, *StreamHub) {
	t.Helper()
	backend := &fakeBackend{Bus: events.NewBus(nil), healthy: healthy}
	hub := NewStreamHub(nil)
	backend.AddObserver(hub)
	srv := httptest.NewServer(NewHandler(backend, "secret", hub, nil).Router())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, backend, hub
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestLiveness(t *testing.T) {
	srv, _, _ := newServer(t, true)

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name    string
		healthy bool
		status  int
	}{
		{"healthy", true, http.StatusOK},
		{"unhealthy", false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newServer(t, tt.healthy)

			var report engine.HealthReport
			assert.Equal(t, tt.status, getJSON(t, srv.URL+"/api/v1/health", &report))
			assert.Equal(t, tt.healthy, report.Overall)
		})
	}
}

func TestGetStatus(t *testing.T) {
	srv, _, _ := newServer(t, true)

	var status engine.ProcessingStatus
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/status", &status))
	assert.Equal(t, "shop", status.CurrentRepository)
	assert.Equal(t, 1, status.TotalObservers)
}

func TestListEvents_Filters(t *testing.T) {
	srv, backend, _ := newServer(t, true)
	ctx := context.Background()
	backend.Notify(ctx, events.Event{Type: events.Progress, Phase: "A", Progress: 25})
	backend.Notify(ctx, events.Event{Type: events.Progress, Phase: "B", Progress: 75})
	backend.Notify(ctx, events.Event{Type: events.Error, Phase: "A", Progress: 25})

	tests := []struct {
		query  string
		phases []string
	}{
		{"", []string{"A", "B", "A"}},
		{"?phase=A", []string{"A", "A"}},
		{"?min_progress=50", []string{"B"}},
		{"?max_progress=50&type=error", []string{"A"}},
		{"?phase=C", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got []events.Event
			require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/events"+tt.query, &got))

			phases := []string{}
			for _, e := range got {
				phases = append(phases, e.Phase)
			}
			assert.Equal(t, tt.phases, phases)
		})
	}
}

func TestListEvents_BadQuery(t *testing.T) {
	srv, _, _ := newServer(t, true)

	for _, q := range []string{"?min_progress=abc", "?max_progress=x", "?since=yesterday"} {
		var body ErrorResponse
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/events"+q, &body), q)
		assert.Contains(t, body.Error, "invalid")
	}
}

func TestListEvents_Since(t *testing.T) {
	srv, backend, _ := newServer(t, true)
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	backend.Notify(context.Background(), events.Event{Type: events.Progress, Phase: "old", Timestamp: old})
	backend.Notify(context.Background(), events.Event{Type: events.Progress, Phase: "new", Timestamp: old.Add(time.Hour)})

	var got []events.Event
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/events?since=2026-01-01T00:30:00Z", &got))
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Phase)
}

func TestGetStatistics(t *testing.T) {
	srv, backend, _ := newServer(t, true)
	backend.Notify(context.Background(), events.Event{Type: events.Progress, Progress: 50})
	backend.Notify(context.Background(), events.Event{Type: events.Error})

	var stats events.Statistics
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/events/stats", &stats))
	assert.Equal(t, 2, stats.TotalEvents)
	assert.Equal(t, 1, stats.EventsByType[events.Error])
	assert.InDelta(t, 50.0, stats.ErrorRate, 0.001)
}

func postEvent(t *testing.T, url, auth, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/events", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIngestEvent(t *testing.T) {
	srv, backend, _ := newServer(t, true)

	payload := observers.NewDashboardEvent(events.Event{
		Type:      events.ProjectCreated,
		Phase:     "Project Creation",
		Progress:  30,
		Message:   "GitHub project created: Shop",
		Timestamp: time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC),
	})
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp := postEvent(t, srv.URL, "Bearer secret", string(body))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var ack IngestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.Equal(t, payload.ID, ack.ID)

	last, ok := backend.LastEvent()
	require.True(t, ok)
	assert.Equal(t, payload.ID, last.ID)
	assert.Equal(t, events.ProjectCreated, last.Type)
	assert.Equal(t, 30.0, last.Progress)
	assert.True(t, payload.Timestamp.Equal(last.Timestamp))
}

func TestIngestEvent_Rejected(t *testing.T) {
	srv, backend, _ := newServer(t, true)

	tests := []struct {
		name   string
		auth   string
		body   string
		status int
	}{
		{"missing key", "", `{"type":"progress"}`, http.StatusUnauthorized},
		{"wrong key", "Bearer nope", `{"type":"progress"}`, http.StatusUnauthorized},
		{"key prefix", "Bearer secretive", `{"type":"progress"}`, http.StatusUnauthorized},
		{"no scheme", "secret", `{"type":"progress"}`, http.StatusUnauthorized},
		{"bad json", "Bearer secret", `{`, http.StatusBadRequest},
		{"no type", "Bearer secret", `{"message":"hi"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postEvent(t, srv.URL, tt.auth, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.Empty(t, backend.History())
}

func TestIngestEvent_NoKeyConfigured(t *testing.T) {
	backend := &fakeBackend{Bus: events.NewBus(nil)}
	srv := httptest.NewServer(NewHandler(backend, "", nil, nil).Router())
	defer srv.Close()

	resp := postEvent(t, srv.URL, "Bearer ", `{"type":"progress"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthorized(t *testing.T) {
	h := NewHandler(&fakeBackend{Bus: events.NewBus(nil)}, "secret", nil, nil)

	tests := map[string]bool{
		"Bearer secret":  true,
		"Bearer secre":   false,
		"Bearer secret ": false,
		"Basic secret":   false,
		"":               false,
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodPost, "/api/events", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, h.authorized(r), header)
	}
}

func TestStream(t *testing.T) {
	srv, backend, hub := newServer(t, true)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	backend.Notify(context.Background(), events.Event{
		Type:     events.IssuesCreated,
		Phase:    "Issue Generation",
		Progress: 60,
		Message:  "Created 12 issues",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.IssuesCreated, got.Type)
	assert.Equal(t, "Created 12 issues", got.Message)
	assert.NotEmpty(t, got.ID)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStream_DisabledWithoutHub(t *testing.T) {
	backend := &fakeBackend{Bus: events.NewBus(nil)}
	srv := httptest.NewServer(NewHandler(backend, "k", nil, nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
