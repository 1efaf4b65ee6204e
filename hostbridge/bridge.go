// Package hostbridge is an optional debug surface: it streams read-only
// terminal snapshots over a websocket so a host developer can watch what
// the engine thinks a terminal looks like without going through the C
// boundary. The engine never depends on it to function; a pool works the
// same whether or not a bridge is listening.
package hostbridge

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raventerm/termengine/pool"
	"github.com/raventerm/termengine/terminal"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
)

// Bridge serves websocket snapshot streams for one pool's terminals.
type Bridge struct {
	pool     *pool.TerminalPool
	interval time.Duration
	upgrader websocket.Upgrader
}

// New constructs a bridge polling each subscribed terminal at interval
// (default 100ms when non-positive).
func New(p *pool.TerminalPool, interval time.Duration) *Bridge {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Bridge{
		pool:     p,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Debug endpoint, loopback use only.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams snapshots of the terminal
// named by the "terminal" query parameter until the client goes away or
// the terminal is removed from the pool.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawID, err := strconv.ParseUint(r.URL.Query().Get("terminal"), 10, 64)
	if err != nil {
		http.Error(w, "missing or malformed terminal id", http.StatusBadRequest)
		return
	}
	id := terminal.ID(rawID)

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] hostbridge: upgrade: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("[WARN] hostbridge: close: %v", err)
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[WARN] hostbridge: set read deadline: %v", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[WARN] hostbridge: read: %v", err)
				}
				return
			}
		}
	}()

	b.stream(conn, id, done)
}

// stream pushes a snapshot frame whenever the terminal's content changed
// since the last frame, plus pings to keep the connection alive. Snapshots
// are taken with the non-blocking terminal access path, so a busy PTY
// burst delays a debug frame rather than the other way around.
func (b *Bridge) stream(conn *websocket.Conn, id terminal.ID, done <-chan struct{}) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	var lastHash uint64

	for {
		select {
		case <-done:
			return
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			var snap Snapshot
			var got bool
			ok := b.pool.TryWithTerminal(id, func(t *terminal.Terminal) {
				snap = EncodeSnapshot(id, t.StateLocked())
				got = true
			})
			if !ok {
				if _, known := b.pool.GetCursorCache(id); !known {
					return // terminal removed; end the stream
				}
				continue // lock contended; try again next tick
			}
			if !got || snap.ContentHash == lastHash {
				continue
			}
			lastHash = snap.ContentHash

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Printf("[WARN] hostbridge: write: %v", err)
				return
			}
		}
	}
}
