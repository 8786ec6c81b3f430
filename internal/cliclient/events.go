package cliclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/andrejvysny/open-webui-desktop/internal/appinfo"
)

// Event is one frame from the daemon's event stream.
type Event struct {
	Type string
	Data json.RawMessage
}

// Events opens the daemon's SSE stream and delivers parsed frames until ctx
// is canceled or the stream closes. The returned channel is closed when the
// stream ends; callers that want reconnection re-dial.
func (c *Client) Events(ctx context.Context) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/events", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create events request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", appinfo.UserAgent())
	if c.token != "" {
		req.Header.Set("X-Bridge-Token", c.token)
	}

	// The shared client enforces a request timeout which would sever a
	// long-lived stream, so dial with a timeout-free copy.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream failed with status %d", resp.StatusCode)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var eventType string
		var data strings.Builder

		for scanner.Scan() {
			line := scanner.Text()

			switch {
			case line == "":
				if eventType != "" && data.Len() > 0 {
					ev := Event{Type: eventType, Data: json.RawMessage(data.String())}
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
				eventType = ""
				data.Reset()
			case strings.HasPrefix(line, "event:"):
				eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				dataLine := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if data.Len() > 0 {
					data.WriteString("\n")
				}
				data.WriteString(dataLine)
			}
			// Comment lines (heartbeats) fall through untouched.
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil && c.logger != nil {
			c.logger.Debugw("Event stream closed", "error", err)
		}
	}()

	return events, nil
}
