package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/procurehub/auctiond/internal/entity"
	"github.com/procurehub/auctiond/internal/service/ranking"
)

// Message types pushed to auction rooms.
const (
	TypeSnapshot      = "snapshot"
	TypeRankingUpdate = "rankingUpdate"
	TypeStatusUpdate  = "statusUpdate"
)

// Message is the wire envelope for room pushes.
type Message struct {
	Type      string               `json:"type"`
	AuctionID string               `json:"auctionId"`
	Status    entity.AuctionStatus `json:"status,omitempty"`
	Entries   []ranking.Entry      `json:"entries,omitempty"`
}

// SnapshotProvider produces the current ranking for a fresh join. The
// snapshot goes only to the joining socket, never to the whole room.
type SnapshotProvider interface {
	Ranking(ctx context.Context, auctionID, supplierID string) ([]ranking.Entry, error)
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

// Hub fans ranking and status updates out to per-auction rooms over
// websockets. Broadcasts never block a bid write: a client that cannot keep
// up with its send buffer is dropped.
type Hub struct {
	rooms     *xsync.MapOf[string, *xsync.MapOf[*client, struct{}]]
	snapshots SnapshotProvider
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// Module provides the hub to Fx.
var Module = fx.Provide(NewHub)

// NewHub constructs an empty hub; the snapshot provider is attached later.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  xsync.NewMapOf[string, *xsync.MapOf[*client, struct{}]](),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetSnapshotProvider attaches the ranking source for fresh joins.
func (h *Hub) SetSnapshotProvider(p SnapshotProvider) {
	h.snapshots = p
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	auctionID string
	send      chan []byte
	closed    atomic.Bool
}

// Serve upgrades the request and joins the socket to the auction's room. The
// joining socket immediately receives a snapshot of the current ranking.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, auctionID, supplierID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		hub:       h,
		conn:      conn,
		auctionID: auctionID,
		send:      make(chan []byte, sendBufferSize),
	}
	h.room(auctionID).Store(c, struct{}{})

	go c.writePump()
	go c.readPump()

	h.sendSnapshot(r.Context(), c, supplierID)
	return nil
}

func (h *Hub) room(auctionID string) *xsync.MapOf[*client, struct{}] {
	room, _ := h.rooms.LoadOrCompute(auctionID, func() *xsync.MapOf[*client, struct{}] {
		return xsync.NewMapOf[*client, struct{}]()
	})
	return room
}

func (h *Hub) sendSnapshot(ctx context.Context, c *client, supplierID string) {
	if h.snapshots == nil {
		return
	}
	entries, err := h.snapshots.Ranking(ctx, c.auctionID, supplierID)
	if err != nil {
		h.logger.Warn("snapshot for joining socket failed",
			zap.String("auction_id", c.auctionID),
			zap.Error(err))
		return
	}
	payload, err := json.Marshal(Message{
		Type:      TypeSnapshot,
		AuctionID: c.auctionID,
		Entries:   entries,
	})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

// BroadcastRanking pushes a recomputed snapshot to everyone in the room.
func (h *Hub) BroadcastRanking(auctionID string, entries []ranking.Entry) {
	h.broadcast(auctionID, Message{
		Type:      TypeRankingUpdate,
		AuctionID: auctionID,
		Entries:   entries,
	})
}

// BroadcastStatus pushes a lifecycle change to everyone in the room.
func (h *Hub) BroadcastStatus(auctionID string, status entity.AuctionStatus) {
	h.broadcast(auctionID, Message{
		Type:      TypeStatusUpdate,
		AuctionID: auctionID,
		Status:    status,
	})
}

func (h *Hub) broadcast(auctionID string, msg Message) {
	room, ok := h.rooms.Load(auctionID)
	if !ok {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	room.Range(func(c *client, _ struct{}) bool {
		c.enqueue(payload)
		return true
	})
}

func (h *Hub) drop(c *client) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if room, ok := h.rooms.Load(c.auctionID); ok {
		room.Delete(c)
	}
	close(c.send)
}

// RoomSize reports how many sockets are joined to an auction's room.
func (h *Hub) RoomSize(auctionID string) int {
	room, ok := h.rooms.Load(auctionID)
	if !ok {
		return 0
	}
	return room.Size()
}

// enqueue drops the client when its buffer is full rather than blocking the
// broadcaster.
func (c *client) enqueue(payload []byte) {
	defer func() {
		// Send on a channel closed by a concurrent drop is survivable.
		_ = recover()
	}()
	select {
	case c.send <- payload:
	default:
		c.hub.drop(c)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the socket is push-only. It exists to
// notice closes and keep the pong deadline fresh.
func (c *client) readPump() {
	defer c.hub.drop(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
