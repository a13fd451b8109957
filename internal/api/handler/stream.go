package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/floodwatch/floodwatch/internal/snapshot"
	"github.com/floodwatch/floodwatch/internal/worker"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Dashboards are served from other origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Stream handles GET /v1/sessions/{sessionId}/stream - pushes every
// published snapshot over a websocket until the client leaves or the
// session is torn down.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	logger := h.logger.With().Str("session_id", id).Logger()

	feed, unobserve := newSnapshotFeed(s)
	defer unobserve()

	done := make(chan struct{})
	go readPump(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case <-s.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
			return
		case snap := <-feed.ch:
			if !feed.advance(snap) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				logger.Debug().Err(err).Msg("snapshot stream write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so control messages are processed, and
// closes done when the connection drops.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// snapshotSource is the part of a scheduler a stream reads from.
type snapshotSource interface {
	Observe(fn worker.Observer) func()
	Snapshot() *snapshot.Snapshot
}

// snapshotFeed queues published snapshots for one stream client.
type snapshotFeed struct {
	ch   chan *snapshot.Snapshot
	last uint64
}

// newSnapshotFeed registers with src before reading its current snapshot, so
// nothing published in between is missed. Duplicates are removed by advance.
func newSnapshotFeed(src snapshotSource) (*snapshotFeed, func()) {
	f := &snapshotFeed{ch: make(chan *snapshot.Snapshot, sendBufferSize)}
	unobserve := src.Observe(f.offer)
	if snap := src.Snapshot(); snap != nil {
		f.offer(snap)
	}
	return f, unobserve
}

// offer queues snap without blocking the publisher; a slow client drops snapshots.
func (f *snapshotFeed) offer(snap *snapshot.Snapshot) {
	select {
	case f.ch <- snap:
	default:
	}
}

// advance reports whether snap is newer than the last one sent and records it.
// Only the writing goroutine calls it.
func (f *snapshotFeed) advance(snap *snapshot.Snapshot) bool {
	if snap == nil || snap.Sequence <= f.last {
		return false
	}
	f.last = snap.Sequence
	return true
}
