package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialEvents(t *testing.T, srv *httptest.Server, id string) (*websocket.Conn, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/meetings/" + id + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	return conn, err
}

// readStates collects state frames until the server closes the connection.
func readStates(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var states []string
	for {
		var frame struct {
			State string `json:"state"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure),
				"expected normal close, got: %v", err)
			return states
		}
		states = append(states, frame.State)
	}
}

func TestEventsStreamUntilTerminal(t *testing.T) {
	tr := &stubTranscriber{gate: make(chan struct{})}
	handler := newTestServer(t, tr)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	id := doUpload(t, handler, "meeting.wav", "fake audio")

	conn, err := dialEvents(t, srv, id)
	require.NoError(t, err)
	defer conn.Close()
	close(tr.gate)

	states := readStates(t, conn)
	require.NotEmpty(t, states)
	assert.Equal(t, "completed", states[len(states)-1])
}

func TestEventsTerminalJobClosesImmediately(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	id := doUpload(t, handler, "meeting.wav", "fake audio")
	waitState(t, handler, id, "completed")

	conn, err := dialEvents(t, srv, id)
	require.NoError(t, err)
	defer conn.Close()

	// One snapshot frame, then a clean close; no hang waiting for events
	// that will never come.
	states := readStates(t, conn)
	require.Len(t, states, 1)
	assert.Equal(t, "completed", states[0])
}

func TestEventsUnknownJob(t *testing.T) {
	handler := newTestServer(t, &stubTranscriber{})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	_, err := dialEvents(t, srv, "no-such-job")
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
}
