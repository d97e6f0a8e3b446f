package drawing

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navmaint/drawboard/internal/asset"
	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/engine"
	"github.com/navmaint/drawboard/internal/export"
	"github.com/navmaint/drawboard/internal/store"
)

func newTestService(st store.Store) *Service {
	return NewService(Config{
		Store:      st,
		StorageKey: "drawing",
		Now:        func() time.Time { return time.UnixMicro(1000) },
	})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPlaceShapeAndPersist(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newTestService(st)

	_, err := svc.Apply(ctx, "drw1", Command{Type: CmdToolSelect, Tool: "rectangle"})
	require.NoError(t, err)
	state, err := svc.Apply(ctx, "drw1", Command{Type: CmdPointerDown, X: 200, Y: 150})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, "drw1", Command{Type: CmdPointerUp})
	require.NoError(t, err)

	assert.Equal(t, engine.ToolNone, state.Tool)
	assert.Equal(t, 1, state.ShapeCount)
	assert.NotZero(t, state.Selected)

	scene, err := svc.Scene(ctx, "drw1")
	require.NoError(t, err)
	require.Len(t, scene.Shapes, 1)
	sh := scene.Shapes[0]
	assert.Equal(t, document.ShapeRectangle, sh.Type)
	assert.Equal(t, 150.0, sh.X)
	assert.Equal(t, 110.0, sh.Y)

	data, err := st.Load(ctx, "drawing:drw1")
	require.NoError(t, err)
	saved, err := document.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, scene, saved)

	// A fresh service restores the drawing from the store.
	again, err := newTestService(st).Scene(ctx, "drw1")
	require.NoError(t, err)
	assert.Equal(t, scene, again)
}

func TestDragThroughCommands(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(store.NewMemory())

	scene := document.NewScene()
	scene.Shapes = append(scene.Shapes, document.Shape{ID: 1, Type: document.ShapeRectangle, X: 40, Y: 40, Width: 100, Height: 80})
	_, err := svc.ReplaceScene(ctx, "d", scene)
	require.NoError(t, err)

	for _, cmd := range []Command{
		{Type: CmdPointerDown, X: 50, Y: 50},
		{Type: CmdPointerMove, X: 80, Y: 80},
		{Type: CmdPointerUp},
	} {
		_, err := svc.Apply(ctx, "d", cmd)
		require.NoError(t, err)
	}

	got, err := svc.Scene(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Shapes[0].X)
	assert.Equal(t, 70.0, got.Shapes[0].Y)
}

func TestClaimKeepsOtherCallersOut(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(store.NewMemory())

	scene := document.NewScene()
	scene.Shapes = append(scene.Shapes, document.Shape{ID: 1, Type: document.ShapeRectangle, X: 40, Y: 40, Width: 100, Height: 80})
	_, err := svc.ReplaceScene(ctx, "d", scene)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "d", "a")
	require.NoError(t, err)
	_, err = svc.Claim(ctx, "d", "a")
	require.NoError(t, err, "the owner may claim again")
	_, err = svc.Claim(ctx, "d", "b")
	assert.ErrorIs(t, err, ErrBusy)

	_, err = svc.ApplyAs(ctx, "d", "a", Command{Type: CmdPointerDown, X: 50, Y: 50})
	require.NoError(t, err)

	_, err = svc.ApplyAs(ctx, "d", "b", Command{Type: CmdPointerMove, X: 500, Y: 500})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = svc.Apply(ctx, "d", Command{Type: CmdPointerMove, X: 500, Y: 500})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = svc.ReplaceScene(ctx, "d", document.NewScene())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = svc.ClearBackground(ctx, "d")
	assert.ErrorIs(t, err, ErrBusy)

	got, err := svc.Scene(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 40.0, got.Shapes[0].X)

	svc.Release("d", "b")
	_, err = svc.Apply(ctx, "d", Command{Type: CmdZoomIn})
	assert.ErrorIs(t, err, ErrBusy, "only the owner can release")

	svc.Release("d", "a")
	state, err := svc.Apply(ctx, "d", Command{Type: CmdPointerMove, X: 500, Y: 500})
	require.NoError(t, err)
	assert.Equal(t, engine.ModeIdle, state.Mode)

	got, err = svc.Scene(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 40.0, got.Shapes[0].X, "release drops the gesture in progress")
}

func TestStyleAndMetadataCommands(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(store.NewMemory())

	scene := document.NewSampleScene()
	_, err := svc.ReplaceScene(ctx, "d", scene)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, "d", Command{Type: CmdShapeStyle, Fill: "#000000"})
	assert.ErrorIs(t, err, ErrBadCommand)

	_, err = svc.Apply(ctx, "d", Command{Type: CmdShapeSelect, ShapeID: 2})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, "d", Command{Type: CmdShapeStyle, Fill: "#000000", Stroke: "#112233"})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, "d", Command{Type: CmdShapeMetadata, ShapeID: 3, Metadata: &document.Metadata{Label: "Crack", Severity: document.SeverityHigh}})
	require.NoError(t, err)

	got, err := svc.Scene(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, "#000000", got.Shapes[1].Fill)
	assert.Equal(t, "#000000", got.Shapes[1].Metadata.Color)
	assert.Equal(t, "#112233", got.Shapes[1].Stroke)
	require.NotNil(t, got.Shapes[2].Metadata)
	assert.Equal(t, "Crack", got.Shapes[2].Metadata.Label)

	_, err = svc.Apply(ctx, "d", Command{Type: CmdShapeMetadata, ShapeID: 3})
	require.NoError(t, err)
	got, err = svc.Scene(ctx, "d")
	require.NoError(t, err)
	assert.Nil(t, got.Shapes[2].Metadata)

	state, err := svc.Apply(ctx, "d", Command{Type: CmdShapeDelete})
	require.NoError(t, err)
	assert.Equal(t, 3, state.ShapeCount)
	assert.Zero(t, state.Selected)

	_, err = svc.Apply(ctx, "d", Command{Type: CmdShapeSelect, ShapeID: 99})
	assert.ErrorIs(t, err, engine.ErrUnknownShape)
}

func TestZoomAndUnknownCommands(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(store.NewMemory())

	state, err := svc.Apply(ctx, "d", Command{Type: CmdZoomSet, Zoom: 5})
	require.NoError(t, err)
	assert.Equal(t, engine.MaxZoom, state.Viewport.Zoom)

	state, err = svc.Apply(ctx, "d", Command{Type: CmdZoomOut})
	require.NoError(t, err)
	assert.InDelta(t, 1.9, state.Viewport.Zoom, 1e-9)

	state, err = svc.Apply(ctx, "d", Command{Type: CmdZoomReset})
	require.NoError(t, err)
	assert.Equal(t, 1.0, state.Viewport.Zoom)

	_, err = svc.Apply(ctx, "d", Command{Type: "shape.rotate"})
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = svc.Apply(ctx, "d", Command{Type: CmdToolSelect, Tool: "hexagon"})
	assert.ErrorIs(t, err, engine.ErrUnknownTool)

	_, err = svc.Apply(ctx, "", Command{Type: CmdZoomIn})
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = svc.Apply(ctx, "a/b", Command{Type: CmdZoomIn})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestBackground(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(store.NewMemory())

	_, err := svc.SetBackground(ctx, "d", "data:image/png;base64,bm90IGFuIGltYWdl")
	assert.ErrorIs(t, err, asset.ErrDecodeImage)

	state, err := svc.SetBackground(ctx, "d", asset.EncodeDataURL("image/png", pngBytes(t)))
	require.NoError(t, err)
	assert.True(t, state.Background)

	art, err := svc.Export(ctx, "d", export.FormatSVG)
	require.NoError(t, err)
	assert.Contains(t, string(art.Data), "data:image/png;base64,")

	state, err = svc.ClearBackground(ctx, "d")
	require.NoError(t, err)
	assert.False(t, state.Background)
}

func newTestRouter(svc *Service) *mux.Router {
	r := mux.NewRouter()
	NewHandler(svc, asset.NewHandler(0)).Routes(r.PathPrefix("/api").Subrouter())
	return r
}

func do(r http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSceneRoundTrip(t *testing.T) {
	r := newTestRouter(newTestService(store.NewMemory()))

	rec := do(r, http.MethodGet, "/api/drawings/drw1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"shapes":[],"backgroundImage":null}`, rec.Body.String())

	sample, err := document.Marshal(document.NewSampleScene())
	require.NoError(t, err)
	rec = do(r, http.MethodPut, "/api/drawings/drw1", sample, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var state engine.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 4, state.ShapeCount)

	rec = do(r, http.MethodGet, "/api/drawings/drw1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(sample), rec.Body.String())

	rec = do(r, http.MethodPut, "/api/drawings/drw1", []byte(`{"shapes":[{"id":1,"type":"hexagon","x":0,"y":0}]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/api/drawings/bad!id", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCommandsAndRender(t *testing.T) {
	r := newTestRouter(newTestService(store.NewMemory()))

	rec := do(r, http.MethodPost, "/api/drawings/d/commands", []byte(`{"type":"tool.select","tool":"circle"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tool":"circle"`)
	assert.Contains(t, rec.Body.String(), `"mode":"placing"`)

	rec = do(r, http.MethodPost, "/api/drawings/d/commands", []byte(`{"type":"pointer.down","x":300,"y":200}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/api/drawings/d/state", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state engine.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 1, state.ShapeCount)
	assert.NotZero(t, state.Selected)

	rec = do(r, http.MethodGet, "/api/drawings/d/render.svg", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<circle")
	assert.Contains(t, rec.Body.String(), `stroke-dasharray="5,5"`)

	rec = do(r, http.MethodPost, "/api/drawings/d/commands", []byte(`{"type":"warp"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/drawings/d/commands", []byte(`not json`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/drawings/d/commands", []byte(`{"type":"shape.select","shapeId":12345}`), "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerClaimedDrawingConflicts(t *testing.T) {
	svc := newTestService(store.NewMemory())
	r := newTestRouter(svc)

	_, err := svc.Claim(context.Background(), "d", "client-1")
	require.NoError(t, err)

	rec := do(r, http.MethodPost, "/api/drawings/d/commands", []byte(`{"type":"zoom.in"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(r, http.MethodGet, "/api/drawings/d/state", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code, "reads stay open")

	svc.Release("d", "client-1")
	rec = do(r, http.MethodPost, "/api/drawings/d/commands", []byte(`{"type":"zoom.in"}`), "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerBackgroundUpload(t *testing.T) {
	svc := newTestService(store.NewMemory())
	r := newTestRouter(svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "hull.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(r, http.MethodPost, "/api/drawings/d/background", body.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"hull.png"`)

	scene, err := svc.Scene(context.Background(), "d")
	require.NoError(t, err)
	require.True(t, scene.HasBackground())
	assert.True(t, strings.HasPrefix(scene.Background(), "data:image/png;base64,"))

	rec = do(r, http.MethodDelete, "/api/drawings/d/background", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hasBackground":false`)
}
