// Package observers contains the sinks attached to the progress event bus.
package observers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/clintrovert/scrummaster/internal/apperr"
)

const (
	// Version is reported in outbound payload metadata
	Version = "1.0.0"

	userAgent = "Semi-Autonomous-Scrum-Master/1.0"
)

// switchable holds the runtime on/off flag shared by all sinks
type switchable struct {
	disabled atomic.Bool
}

// SetEnabled switches the sink on or off
func (s *switchable) SetEnabled(enabled bool) {
	s.disabled.Store(!enabled)
}

func (s *switchable) on() bool {
	return !s.disabled.Load()
}

// formatProgress renders a percentage without trailing zeros
func formatProgress(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// postJSON sends payload to url and fails on any non-2xx status
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.ErrNotifyStatus.WithContext("status", resp.StatusCode).
			WithError(fmt.Errorf("%s returned %d", url, resp.StatusCode))
	}
	return nil
}
