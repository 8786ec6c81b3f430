package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
)

const (
	sseRetryMillis    = 3000
	heartbeatInterval = 30 * time.Second
)

// handleSSEEvents streams orchestrator events to connected UI surfaces as
// Server-Sent Events. The stream opens with a session snapshot so a client
// that reconnects after missing transitions still renders current state.
func (s *Server) handleSSEEvents(w http.ResponseWriter, r *http.Request) {
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		s.writeJSON(w, http.StatusInternalServerError, contracts.NewErrorResponse("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Reconnect hint for EventSource clients
	fmt.Fprintf(w, "retry: %d\n\n", sseRetryMillis)
	flusher.Flush()

	events := s.controller.SubscribeEvents()
	defer s.controller.UnsubscribeEvents(events)

	if err := s.writeSSEEvent(w, snapshotEvent(s.controller.Session())); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := s.writeSSEEvent(w, evt); err != nil {
				s.httpLogger.Debug("SSE client gone", zap.Error(err))
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) writeSSEEvent(w http.ResponseWriter, evt lifecycle.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
	return err
}

// snapshotEvent renders the current session as a state event for new
// subscribers, using the same payload keys the orchestrator bus emits.
func snapshotEvent(sess lifecycle.Session) lifecycle.Event {
	payload := map[string]any{
		"status":     string(sess.Status),
		"reachable":  sess.Reachable,
		"generation": sess.Generation,
	}
	if sess.URL != "" {
		payload["url"] = sess.URL
	}
	if sess.LANURL != "" {
		payload["lan_url"] = sess.LANURL
	}
	if sess.PID != 0 {
		payload["pid"] = sess.PID
	}
	if sess.LastError != "" {
		payload["error"] = sess.LastError
	}
	return lifecycle.Event{
		Type:      lifecycle.EventTypeServerState,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
