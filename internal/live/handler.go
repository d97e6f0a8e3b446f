package live

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// TokenValidator resolves a bearer token to its subject.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

type Handler struct {
	hub            *Hub
	tokens         TokenValidator
	originPatterns []string
}

func NewHandler(hub *Hub, tokens TokenValidator, originPatterns []string) *Handler {
	return &Handler{hub: hub, tokens: tokens, originPatterns: originPatterns}
}

// ServeHTTP handles GET /ws/drawings/{drawingId}?token=...
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	drawingID := mux.Vars(r)["drawingId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, subject, drawingID, uuid.New().String())
	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
