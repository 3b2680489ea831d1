package server

import (
	"net/http"
	"time"

	"github.com/zhstock/dsa/internal/events"
)

// handleTaskStream implements GET /analysis/tasks/stream (§6): an SSE
// feed of task_created/task_started/task_completed/task_failed events,
// plus a connected frame and a 30s heartbeat, directly grounded on the
// teacher's events_stream.go shape (adapted to this project's
// channel-based Bus.Subscribe instead of the teacher's callback one).
func (s *Server) handleTaskStream(w http.ResponseWriter, r *http.Request) {
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	subID, ch := s.cfg.Bus.Subscribe([]events.EventType{
		events.TaskCreated, events.TaskStarted, events.TaskCompleted, events.TaskFailed,
	})
	defer s.cfg.Bus.Unsubscribe(subID)

	sse.send(map[string]string{"type": "connected"})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			sse.send(map[string]interface{}{"type": string(evt.Type), "data": evt.Data})
		case <-heartbeat.C:
			sse.send(map[string]string{"type": "heartbeat"})
		}
	}
}
