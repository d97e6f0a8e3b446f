package live

import (
	"encoding/json"

	"github.com/navmaint/drawboard/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	DrawingID string          `json:"drawingId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Connection
	TypeWelcome = "welcome"

	// Client to server: payload is a drawing.Command
	TypeCommand = "command"

	// Server to client
	TypeFrame = "frame"
	TypeError = "error"
)

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	DrawingID string `json:"drawingId"`
	Subject   string `json:"subject,omitempty"`
}

// FramePayload carries the rendered drawing after a command.
type FramePayload struct {
	State engine.State `json:"state"`
	SVG   string       `json:"svg"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
