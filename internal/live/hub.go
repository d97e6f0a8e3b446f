package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/navmaint/drawboard/internal/drawing"
	"github.com/navmaint/drawboard/internal/engine"
)

// Drawings is the part of the drawing service the hub drives.
type Drawings interface {
	Claim(ctx context.Context, id, owner string) (engine.State, error)
	Release(id, owner string)
	ApplyAs(ctx context.Context, id, owner string, cmd drawing.Command) (engine.State, error)
	Render(ctx context.Context, id string) ([]byte, error)
}

// Hub hands each drawing to at most one connected client. A second client
// for the same drawing is told it is busy and disconnected.
type Hub struct {
	drawings Drawings

	mu         sync.RWMutex
	owners     map[string]*Client // drawingID -> client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(drawings Drawings) *Hub {
	return &Hub{
		drawings:   drawings,
		owners:     make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and closes every client's send queue.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Owner returns the id of the client holding a drawing.
func (h *Hub) Owner(drawingID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.owners[drawingID]; ok {
		return c.ClientID, true
	}
	return "", false
}

func (h *Hub) addClient(client *Client) {
	ctx := context.Background()
	state, err := h.drawings.Claim(ctx, client.DrawingID, client.ClientID)
	if err != nil {
		if errors.Is(err, drawing.ErrBusy) {
			slog.Info("drawing busy, client refused", "client", client.ClientID, "drawing", client.DrawingID)
		} else {
			slog.Error("open drawing", "drawing", client.DrawingID, "error", err)
		}
		client.SendError(0, err.Error())
		client.close()
		return
	}

	h.mu.Lock()
	h.owners[client.DrawingID] = client
	h.mu.Unlock()

	welcome, _ := json.Marshal(WelcomePayload{
		ClientID:  client.ClientID,
		DrawingID: client.DrawingID,
		Subject:   client.Subject,
	})
	client.Send(&Message{Type: TypeWelcome, DrawingID: client.DrawingID, ClientID: client.ClientID, Payload: welcome})
	if frame, err := h.frame(ctx, client.DrawingID, state, 0); err == nil {
		client.Send(frame)
	}

	slog.Info("client joined", "client", client.ClientID, "subject", client.Subject, "drawing", client.DrawingID)
}

func (h *Hub) removeClient(client *Client) {
	client.close()

	h.mu.Lock()
	if h.owners[client.DrawingID] != client {
		h.mu.Unlock()
		return
	}
	delete(h.owners, client.DrawingID)
	h.mu.Unlock()

	h.drawings.Release(client.DrawingID, client.ClientID)
	slog.Info("client left", "client", client.ClientID, "drawing", client.DrawingID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.owners {
		c.close()
		h.drawings.Release(id, c.ClientID)
		delete(h.owners, id)
	}
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	switch msg.Type {
	case TypeCommand:
		h.handleCommand(ctx, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		sender.SendError(msg.Seq, "unknown message type")
	}
}

// handleCommand applies a command and answers the sender with the new frame.
func (h *Hub) handleCommand(ctx context.Context, sender *Client, msg *Message) {
	var cmd drawing.Command
	if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
		slog.Warn("invalid command payload", "error", err, "client", sender.ClientID)
		sender.SendError(msg.Seq, "invalid command payload")
		return
	}

	state, err := h.drawings.ApplyAs(ctx, sender.DrawingID, sender.ClientID, cmd)
	if err != nil {
		slog.Debug("command rejected", "drawing", sender.DrawingID, "type", cmd.Type, "error", err)
		sender.SendError(msg.Seq, err.Error())
		return
	}

	frame, err := h.frame(ctx, sender.DrawingID, state, msg.Seq)
	if err != nil {
		sender.SendError(msg.Seq, "render failed")
		return
	}
	sender.Send(frame)
}

func (h *Hub) frame(ctx context.Context, drawingID string, state engine.State, seq int64) (*Message, error) {
	markup, err := h.drawings.Render(ctx, drawingID)
	if err != nil {
		slog.Error("render frame", "drawing", drawingID, "error", err)
		return nil, err
	}
	payload, err := json.Marshal(FramePayload{State: state, SVG: string(markup)})
	if err != nil {
		return nil, err
	}
	return &Message{Type: TypeFrame, DrawingID: drawingID, Seq: seq, Payload: payload}, nil
}
