package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/infrastructure/monitoring"
	"github.com/previewlab/restyle/internal/logging"
	"github.com/previewlab/restyle/internal/preview/engine"
	"github.com/previewlab/restyle/internal/preview/surface"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// outboundBuffer bounds the per-connection send queue. A slow reader
// drops snapshots rather than blocking the engine.
const outboundBuffer = 64

// Message is the inbound frame from the preview UI.
type Message struct {
	Type      string         `json:"type"`
	SurfaceID string         `json:"surface_id,omitempty"`
	Offset    surface.Offset `json:"offset,omitempty"`
	Phase     string         `json:"phase,omitempty"`
}

// Relay connects websocket clients to the preview engine: inbound scroll
// and interaction events go in, state snapshots and mirrored scroll
// offsets come out.
type Relay struct {
	engine  *engine.Engine
	metrics *monitoring.Metrics
	log     *logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	out  chan []byte
	once sync.Once
	done chan struct{}
}

// NewRelay builds the relay and claims the engine's state and scroll
// listeners. One relay serves all connections.
func NewRelay(eng *engine.Engine, metrics *monitoring.Metrics, log *logging.Logger) *Relay {
	if log == nil {
		log = logging.NewNop()
	}
	r := &Relay{
		engine:  eng,
		metrics: metrics,
		log:     log.Component("ws"),
		clients: make(map[*client]struct{}),
	}
	eng.OnState(func(s engine.State) {
		r.broadcast("state", map[string]interface{}{
			"type":  "state",
			"state": s,
		})
	})
	eng.OnSurfaceScroll(func(surfaceID string, offset surface.Offset) {
		r.broadcast("sync_scroll", map[string]interface{}{
			"type":       "sync_scroll",
			"surface_id": surfaceID,
			"offset":     offset,
		})
	})
	return r
}

// HandleConnection handles WebSocket upgrade and messages
func (r *Relay) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		conn: conn,
		out:  make(chan []byte, outboundBuffer),
		done: make(chan struct{}),
	}
	r.register(cl)
	defer r.unregister(cl)

	go cl.writePump()

	cl.enqueue(r.encode(map[string]interface{}{
		"type":    "system",
		"message": "Connected to restyle preview service",
	}))
	cl.enqueue(r.encode(map[string]interface{}{
		"type":  "state",
		"state": r.engine.State(),
	}))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			r.sendError(cl, "malformed message")
			continue
		}
		if r.metrics != nil {
			r.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "scroll":
			r.handleScroll(cl, msg)
		case "interact":
			r.handleInteract(cl, msg)
		case "ping":
			cl.enqueue(r.encode(map[string]interface{}{"type": "pong"}))
		default:
			r.sendError(cl, "unknown message type")
		}
	}
}

// handleScroll forwards a viewer scroll into the engine. The surface
// write triggers comparison mirroring, which flows back out through the
// sync_scroll broadcast.
func (r *Relay) handleScroll(cl *client, msg Message) {
	if msg.SurfaceID == "" {
		r.sendError(cl, "scroll requires surface_id")
		return
	}
	err := r.engine.ScrollSurface(msg.SurfaceID, msg.Offset)
	if r.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		r.metrics.RecordSyncEvent(result)
	}
	if err != nil {
		r.sendError(cl, err.Error())
	}
}

// handleInteract brackets a camera gesture so intermediate zoom and pan
// states coalesce into one commit.
func (r *Relay) handleInteract(cl *client, msg Message) {
	switch msg.Phase {
	case "begin":
		r.engine.BeginInteraction()
	case "end":
		r.engine.EndInteraction()
	default:
		r.sendError(cl, "interact phase must be begin or end")
	}
}

func (r *Relay) register(cl *client) {
	r.mu.Lock()
	r.clients[cl] = struct{}{}
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.IncWSConnections()
	}
}

func (r *Relay) unregister(cl *client) {
	r.mu.Lock()
	delete(r.clients, cl)
	r.mu.Unlock()
	cl.close()
	if r.metrics != nil {
		r.metrics.DecWSConnections()
	}
}

// broadcast fans one payload out to every connection.
func (r *Relay) broadcast(msgType string, payload map[string]interface{}) {
	data := r.encode(payload)
	if data == nil {
		return
	}
	if r.metrics != nil {
		r.metrics.RecordWSMessage("out", msgType)
	}

	r.mu.Lock()
	for cl := range r.clients {
		cl.enqueue(data)
	}
	r.mu.Unlock()
}

func (r *Relay) sendError(cl *client, msg string) {
	cl.enqueue(r.encode(map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	}))
}

func (r *Relay) encode(payload map[string]interface{}) []byte {
	data, err := sonic.Marshal(payload)
	if err != nil {
		r.log.Warn("encode failed", zap.Error(err))
		return nil
	}
	return data
}

// enqueue queues a frame without blocking; a full queue drops the frame.
// Snapshots are cumulative, so a dropped one is superseded by the next.
func (cl *client) enqueue(data []byte) {
	if data == nil {
		return
	}
	select {
	case <-cl.done:
	case cl.out <- data:
	default:
	}
}

func (cl *client) writePump() {
	defer cl.conn.Close()
	for {
		select {
		case <-cl.done:
			return
		case data := <-cl.out:
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (cl *client) close() {
	cl.once.Do(func() {
		close(cl.done)
		cl.conn.Close()
	})
}
