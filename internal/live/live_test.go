package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navmaint/drawboard/internal/auth"
	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/drawing"
	"github.com/navmaint/drawboard/internal/engine"
	"github.com/navmaint/drawboard/internal/store"
)

type liveServer struct {
	srv      *httptest.Server
	tokens   *auth.Service
	hub      *Hub
	drawings *drawing.Service
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	svc := drawing.NewService(drawing.Config{Store: store.NewMemory()})
	hub := NewHub(svc)
	go hub.Run()
	t.Cleanup(hub.Stop)

	tokens := auth.NewService("secret")
	r := mux.NewRouter()
	r.Handle("/ws/drawings/{drawingId}", NewHandler(hub, tokens, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &liveServer{srv: srv, tokens: tokens, hub: hub, drawings: svc}
}

func (s *liveServer) dial(t *testing.T, ctx context.Context, drawingID string) *websocket.Conn {
	t.Helper()
	token, err := s.tokens.IssueToken("inspector-7", time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/drawings/" + drawingID + "?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func sendCommand(t *testing.T, ctx context.Context, conn *websocket.Conn, seq int64, cmd drawing.Command) {
	t.Helper()
	payload, err := json.Marshal(cmd)
	require.NoError(t, err)
	data, err := json.Marshal(Message{Type: TypeCommand, Seq: seq, Payload: payload})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func decodeFrame(t *testing.T, msg Message) FramePayload {
	t.Helper()
	require.Equal(t, TypeFrame, msg.Type)
	var f FramePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &f))
	return f
}

func TestLiveSession(t *testing.T) {
	s := newLiveServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := s.dial(t, ctx, "drw1")

	welcome := readMessage(t, ctx, conn)
	require.Equal(t, TypeWelcome, welcome.Type)
	var wp WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &wp))
	assert.Equal(t, "drw1", wp.DrawingID)
	assert.Equal(t, "inspector-7", wp.Subject)
	assert.NotEmpty(t, wp.ClientID)

	initial := decodeFrame(t, readMessage(t, ctx, conn))
	assert.Contains(t, initial.SVG, "<svg")
	assert.Equal(t, 0, initial.State.ShapeCount)

	sendCommand(t, ctx, conn, 1, drawing.Command{Type: drawing.CmdToolSelect, Tool: "star"})
	msg := readMessage(t, ctx, conn)
	assert.Equal(t, int64(1), msg.Seq)
	f := decodeFrame(t, msg)
	assert.Equal(t, engine.ToolStar, f.State.Tool)
	assert.Equal(t, engine.ModePlacing, f.State.Mode)

	sendCommand(t, ctx, conn, 2, drawing.Command{Type: drawing.CmdPointerDown, X: 400, Y: 300})
	msg = readMessage(t, ctx, conn)
	assert.Equal(t, int64(2), msg.Seq)
	f = decodeFrame(t, msg)
	assert.Equal(t, 1, f.State.ShapeCount)
	assert.Contains(t, f.SVG, "<polygon")

	sendCommand(t, ctx, conn, 3, drawing.Command{Type: "warp"})
	msg = readMessage(t, ctx, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, int64(3), msg.Seq)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"presence.update","seq":4}`)))
	msg = readMessage(t, ctx, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, int64(4), msg.Seq)
}

func TestSecondClientCannotTakeOverDrawing(t *testing.T) {
	s := newLiveServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scene := document.NewScene()
	scene.Shapes = append(scene.Shapes, document.Shape{ID: 1, Type: document.ShapeRectangle, X: 40, Y: 40, Width: 100, Height: 80})
	_, err := s.drawings.ReplaceScene(ctx, "shared", scene)
	require.NoError(t, err)

	owner := s.dial(t, ctx, "shared")
	readMessage(t, ctx, owner) // welcome
	readMessage(t, ctx, owner) // frame

	sendCommand(t, ctx, owner, 1, drawing.Command{Type: drawing.CmdPointerDown, X: 50, Y: 50})
	f := decodeFrame(t, readMessage(t, ctx, owner))
	require.Equal(t, engine.ModeDragging, f.State.Mode)

	other := s.dial(t, ctx, "shared")
	payload, err := json.Marshal(drawing.Command{Type: drawing.CmdPointerMove, X: 500, Y: 500})
	require.NoError(t, err)
	data, err := json.Marshal(Message{Type: TypeCommand, Seq: 1, Payload: payload})
	require.NoError(t, err)
	_ = other.Write(ctx, websocket.MessageText, data)

	refused := readMessage(t, ctx, other)
	assert.Equal(t, TypeError, refused.Type)
	var ep ErrorPayload
	require.NoError(t, json.Unmarshal(refused.Payload, &ep))
	assert.Contains(t, ep.Message, "another client")
	for {
		if _, _, err := other.Read(ctx); err != nil {
			assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
			break
		}
	}

	got, err := s.drawings.Scene(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 40.0, got.Shapes[0].X)
	assert.Equal(t, 40.0, got.Shapes[0].Y)

	sendCommand(t, ctx, owner, 2, drawing.Command{Type: drawing.CmdPointerMove, X: 80, Y: 80})
	moved := readMessage(t, ctx, owner)
	assert.Equal(t, int64(2), moved.Seq)
	assert.Equal(t, engine.ModeDragging, decodeFrame(t, moved).State.Mode)
	got, err = s.drawings.Scene(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Shapes[0].X)
	assert.Equal(t, 70.0, got.Shapes[0].Y)

	_, err = s.drawings.Apply(ctx, "shared", drawing.Command{Type: drawing.CmdZoomIn})
	assert.ErrorIs(t, err, drawing.ErrBusy)

	require.NoError(t, owner.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool {
		_, held := s.hub.Owner("shared")
		return !held
	}, 2*time.Second, 10*time.Millisecond)

	next := s.dial(t, ctx, "shared")
	assert.Equal(t, TypeWelcome, readMessage(t, ctx, next).Type)
	f = decodeFrame(t, readMessage(t, ctx, next))
	assert.Equal(t, engine.ModeIdle, f.State.Mode)
}

func TestLiveRejectsMissingToken(t *testing.T) {
	s := newLiveServer(t)

	resp, err := http.Get(s.srv.URL + "/ws/drawings/drw1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(s.srv.URL + "/ws/drawings/drw1?token=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
