// Package main provides the WebSocket endpoint that streams each client's filtered note list.
package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/logging"
	"github.com/kimhsiao/memonotes/internal/models"
	"github.com/kimhsiao/memonotes/internal/notes"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     localOrigin,
}

// localOrigin only allows connections from pages served by this machine.
// Clients that send no Origin header (native apps, tests) are allowed.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// WSEnvelope wraps all WebSocket messages sent to clients.
type WSEnvelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// =====================================================
// WebSocket Event Types
// =====================================================

const (
	EventNotesSnapshot = "notes.snapshot"
	EventNotesError    = "notes.error"
	EventPong          = "pong"
)

// SnapshotData is the payload of notes.snapshot.
type SnapshotData struct {
	Filter string                `json:"filter"`
	Mode   string                `json:"mode"`
	Items  []models.NoteWithTags `json:"items"`
}

// ErrorData is the payload of notes.error.
type ErrorData struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// wsRequest is an inbound client message.
//
//	{"action":"filter","text":"milk"}
//	{"action":"clear"}
//	{"action":"ping"}
//	{"action":"note.create","note":{"title":"Buy milk","tag_ids":[1]}}
//	{"action":"note.delete","id":3}
type wsRequest struct {
	Action string `json:"action"`
	Text   string `json:"text"`
	ID     int64  `json:"id"`
	Note   *struct {
		Title    string  `json:"title"`
		Content  string  `json:"content"`
		Category string  `json:"category"`
		TagIDs   []int64 `json:"tag_ids"`
	} `json:"note"`
}

// WSClient is one WebSocket connection and the session that backs it.
type WSClient struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	hub     *WSHub
	session *notes.Session

	done      chan struct{}
	closeOnce sync.Once
}

// WSHub tracks connected clients.
type WSHub struct {
	repo       *notes.Repository
	maxWorkers int

	clients    map[string]*WSClient
	register   chan *WSClient
	unregister chan *WSClient
	stopped    chan struct{}
	mu         sync.RWMutex
}

// NewWSHub creates a hub whose clients read and write through repo. The hub runs
// until ctx is done, then disconnects every client.
func NewWSHub(ctx context.Context, repo *notes.Repository, maxWorkers int) *WSHub {
	hub := &WSHub{
		repo:       repo,
		maxWorkers: maxWorkers,
		clients:    make(map[string]*WSClient),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		stopped:    make(chan struct{}),
	}
	go hub.run(ctx)
	return hub
}

// run manages client connections.
func (h *WSHub) run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			logging.Info("websocket client connected", map[string]interface{}{"client_id": client.id, "total": total})

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client.id)
			total := len(h.clients)
			h.mu.Unlock()
			client.shutdown()
			logging.Info("websocket client disconnected", map[string]interface{}{"client_id": client.id, "total": total})

		case <-ctx.Done():
			h.mu.Lock()
			clients := h.clients
			h.clients = make(map[string]*WSClient)
			h.mu.Unlock()
			for _, client := range clients {
				client.shutdown()
			}
			return
		}
	}
}

// Count returns the number of connected clients.
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Done is closed once the hub has stopped.
func (h *WSHub) Done() <-chan struct{} {
	return h.stopped
}

func (h *WSHub) add(c *WSClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *WSHub) remove(c *WSClient) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
		c.shutdown()
	}
}

func envelope(eventType string, data interface{}) []byte {
	bytes, err := json.Marshal(WSEnvelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		logging.Error("failed to marshal websocket message", err, map[string]interface{}{"type": eventType})
		return nil
	}
	return bytes
}

// enqueue hands a message to the write pump. It gives up once the client is closed.
func (c *WSClient) enqueue(message []byte) bool {
	if message == nil {
		return false
	}
	select {
	case c.send <- message:
		return true
	case <-c.done:
		return false
	}
}

func (c *WSClient) sendError(err error) {
	c.enqueue(envelope(EventNotesError, ErrorData{Code: errors.CodeOf(err), Message: err.Error()}))
}

// shutdown stops the session and closes the connection. Safe to call more than once.
func (c *WSClient) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.session.Close(); err != nil {
			logging.Warn("websocket session closed with error", map[string]interface{}{"client_id": c.id, "error": err.Error()})
		}
		c.conn.Close()
	})
}

// pumpSnapshots forwards every view of the client's session until the client closes.
func (c *WSClient) pumpSnapshots() {
	sub := c.session.NotesWithTags().Subscribe()
	defer sub.Close()

	composer := c.session.Composer()
	for {
		select {
		case <-c.done:
			return
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			if snap.Err != nil {
				c.sendError(snap.Err)
				continue
			}
			c.enqueue(envelope(EventNotesSnapshot, SnapshotData{
				Filter: composer.Filter(),
				Mode:   composer.Mode().String(),
				Items:  snap.Value,
			}))
		}
	}
}

// readPump pumps messages from the WebSocket connection.
func (c *WSClient) readPump() {
	defer c.hub.remove(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn("websocket read failed", map[string]interface{}{"client_id": c.id, "error": err.Error()})
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.sendError(errors.Wrap(errors.ErrInvalid, "invalid message format", err))
			continue
		}
		c.handle(req)
	}
}

func (c *WSClient) handle(req wsRequest) {
	switch req.Action {
	case "filter":
		c.session.UpdateSearchQuery(req.Text)

	case "clear":
		c.session.ClearSearch()

	case "ping":
		c.enqueue(envelope(EventPong, nil))

	case "note.create":
		if req.Note == nil {
			c.sendError(errors.New(errors.ErrInvalid, "note is required"))
			return
		}
		note := &models.Note{Title: req.Note.Title, Content: req.Note.Content, Category: req.Note.Category}
		tagIDs := req.Note.TagIDs
		c.session.Launch(func(ctx context.Context, repo *notes.Repository) error {
			if _, err := repo.InsertNoteWithTags(ctx, note, tagIDs); err != nil {
				c.sendError(err)
			}
			return nil
		})

	case "note.delete":
		id := req.ID
		c.session.Launch(func(ctx context.Context, repo *notes.Repository) error {
			if err := repo.DeleteNote(ctx, id); err != nil {
				c.sendError(err)
			}
			return nil
		})

	default:
		c.sendError(errors.Newf(errors.ErrInvalid, "unknown action %q", req.Action))
	}
}

// writePump pumps messages to the WebSocket connection.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// HandleWebSocket handles WebSocket connections. Every connection gets its own
// session; the first notes.snapshot arrives as soon as the note list is read.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
			return
		}

		session := notes.NewSession(context.Background(), hub.repo, hub.maxWorkers)
		client := &WSClient{
			id:      session.ID,
			conn:    conn,
			send:    make(chan []byte, sendBuffer),
			hub:     hub,
			session: session,
			done:    make(chan struct{}),
		}
		if !hub.add(client) {
			client.shutdown()
			return
		}

		go client.writePump()
		go client.pumpSnapshots()
		go client.readPump()
	}
}
