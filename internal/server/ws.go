package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same trust model as the REST surface
	},
}

// wsWriteTimeout bounds a single frame write to a slow client.
const wsWriteTimeout = 10 * time.Second

// handleEvents streams job state changes over a WebSocket. An alternative
// to polling GET /v1/meetings/{id}; the connection closes once the job
// reaches a terminal state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Reject unknown jobs before upgrading
	job, err := s.query.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "job_id", id, "error", err)
		return
	}
	defer conn.Close()

	// A job from an earlier process lives only in the store and produces
	// no events; a subscription would hang forever. Serve its snapshot
	// directly and close.
	if s.jobs.Get(id) == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		_ = conn.WriteJSON(toJobResponse(job))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.State)))
		return
	}

	events, cancel := s.jobs.Subscribe(id)
	defer cancel()

	// Drain client frames so close messages are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case job, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(toJobResponse(&job)); err != nil {
				s.logger.Debug("websocket write failed", "job_id", id, "error", err)
				return
			}
			if job.State.Terminal() {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.State)))
				return
			}
		}
	}
}
