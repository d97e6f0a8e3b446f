package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/render"
)

const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
)

var ErrUnknownShape = errors.New("unknown shape")

// Engine owns one scene and all of the transient UI state around it:
// viewport, active tool, selection and the pointer gesture in progress.
// It is not safe for concurrent use; callers serialize access.
type Engine struct {
	scene  *document.Scene
	width  float64
	height float64

	viewport Viewport
	mapper   Mapper
	tool     Tool

	// Selection state (0 means nothing is selected)
	selected int64
	gesture  gesture
	ids      idSource

	// Set by every scene mutation, cleared by TakeChanged
	changed bool
}

// Options configures a new Engine. Zero values pick the defaults.
type Options struct {
	Width  float64
	Height float64
	Scene  *document.Scene
	// Mapper overrides the default SurfaceMapper.
	Mapper Mapper
	Now    func() time.Time
}

// New creates an engine over opts.Scene, or over an empty scene.
func New(opts Options) *Engine {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Mapper == nil {
		opts.Mapper = &SurfaceMapper{Width: opts.Width, Height: opts.Height}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		width:    opts.Width,
		height:   opts.Height,
		viewport: NewViewport(opts.Width, opts.Height),
		mapper:   opts.Mapper,
		ids:      idSource{now: opts.Now},
	}
	scene := opts.Scene
	if scene == nil {
		scene = document.NewScene()
	}
	e.LoadScene(scene)
	return e
}

// --- Commands ---

// Mount attaches the drawing surface used for pointer mapping.
func (e *Engine) Mount(s Surface) {
	if m, ok := e.mapper.(interface{ Mount(Surface) }); ok {
		m.Mount(s)
	}
}

// Unmount detaches the drawing surface. Pointer events then map to (0,0).
func (e *Engine) Unmount() {
	if m, ok := e.mapper.(interface{ Unmount() }); ok {
		m.Unmount()
	}
}

// LoadScene replaces the scene and resets selection, tool and gesture.
// Loading is not a mutation: TakeChanged is unaffected.
func (e *Engine) LoadScene(scene *document.Scene) {
	e.scene = scene.Clone()
	e.selected = 0
	e.tool = ToolNone
	e.gesture = gesture{}
	e.ids.Observe(e.scene.MaxID())
}

// SelectTool arms a tool. Shape tools are used up by one placement.
func (e *Engine) SelectTool(t Tool) {
	e.tool = t
}

// Select selects a shape by id; 0 clears the selection.
func (e *Engine) Select(id int64) error {
	if id != 0 && e.scene.Find(id) < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownShape, id)
	}
	e.selected = id
	return nil
}

// DeleteSelected removes the selected shape and clears the selection.
// It reports false, without error, when nothing is selected.
func (e *Engine) DeleteSelected() bool {
	if e.selected == 0 {
		return false
	}
	i := e.scene.Find(e.selected)
	e.selected = 0
	e.gesture = gesture{}
	if i < 0 {
		return false
	}
	e.scene.Shapes = append(e.scene.Shapes[:i], e.scene.Shapes[i+1:]...)
	e.changed = true
	return true
}

// UpdateMetadata replaces a shape's annotation. A non-empty colour is
// also written to the fill.
func (e *Engine) UpdateMetadata(id int64, md document.Metadata) error {
	if md.Severity != "" && !md.Severity.Valid() {
		return fmt.Errorf("%w: %q", document.ErrBadSeverity, md.Severity)
	}
	sh, err := e.shape(id)
	if err != nil {
		return err
	}
	sh.Metadata = &md
	if md.Color != "" {
		sh.Fill = md.Color
	}
	e.changed = true
	return nil
}

// ClearMetadata removes a shape's annotation.
func (e *Engine) ClearMetadata(id int64) error {
	sh, err := e.shape(id)
	if err != nil {
		return err
	}
	sh.Metadata = nil
	e.changed = true
	return nil
}

// SetFill sets the fill colour, keeping metadata.color in step.
func (e *Engine) SetFill(id int64, color string) error {
	sh, err := e.shape(id)
	if err != nil {
		return err
	}
	sh.Fill = color
	if sh.Metadata != nil {
		sh.Metadata.Color = color
	}
	e.changed = true
	return nil
}

// SetStroke sets the stroke colour.
func (e *Engine) SetStroke(id int64, color string) error {
	sh, err := e.shape(id)
	if err != nil {
		return err
	}
	sh.Stroke = color
	e.changed = true
	return nil
}

// SetBackground sets the background image. The data URL is expected to
// have been decoded successfully by the caller.
func (e *Engine) SetBackground(dataURL string) {
	e.scene.BackgroundImage = &dataURL
	e.changed = true
}

// ClearBackground removes the background image.
func (e *Engine) ClearBackground() {
	if e.scene.BackgroundImage == nil {
		return
	}
	e.scene.BackgroundImage = nil
	e.changed = true
}

// SetZoom sets the zoom multiplier, clamped to [MinZoom, MaxZoom].
func (e *Engine) SetZoom(z float64) {
	e.viewport.Zoom = ClampZoom(z)
}

func (e *Engine) ZoomIn()    { e.SetZoom(e.viewport.Zoom + ZoomStep) }
func (e *Engine) ZoomOut()   { e.SetZoom(e.viewport.Zoom - ZoomStep) }
func (e *Engine) ResetZoom() { e.SetZoom(1) }

// ResetView undoes panning and zoom.
func (e *Engine) ResetView() {
	e.viewport = NewViewport(e.width, e.height)
}

// TakeChanged reports whether the scene was mutated since the last call
// and clears the flag.
func (e *Engine) TakeChanged() bool {
	c := e.changed
	e.changed = false
	return c
}

// --- Queries ---

// Scene returns a copy of the current scene.
func (e *Engine) Scene() *document.Scene {
	return e.scene.Clone()
}

// Selected returns the selected shape id, or 0.
func (e *Engine) Selected() int64 { return e.selected }

// Tool returns the armed tool.
func (e *Engine) Tool() Tool { return e.tool }

// Viewport returns the current viewport.
func (e *Engine) Viewport() Viewport { return e.viewport }

// Size returns the logical canvas size.
func (e *Engine) Size() (float64, float64) { return e.width, e.height }

// Mode returns the current interaction mode. An idle engine with a shape
// tool armed is placing.
func (e *Engine) Mode() Mode {
	if e.gesture.mode != ModeIdle {
		return e.gesture.mode
	}
	if _, ok := e.tool.ShapeType(); ok {
		return ModePlacing
	}
	return ModeIdle
}

// DeviceToScene maps a device point through the engine's mapper.
func (e *Engine) DeviceToScene(device render.Point) render.Point {
	return e.mapper.DeviceToScene(device, e.viewport)
}

// HitTest returns the id of the topmost shape containing p, or 0.
// Shapes later in the scene are drawn on top, so they are tested first.
func (e *Engine) HitTest(p render.Point) int64 {
	for i := len(e.scene.Shapes) - 1; i >= 0; i-- {
		if render.Contains(e.scene.Shapes[i], p) {
			return e.scene.Shapes[i].ID
		}
	}
	return 0
}

// Display returns the live display list, including selection decorations.
func (e *Engine) Display() []render.Command {
	return render.Compile(e.scene, render.Options{
		Width:    e.width,
		Height:   e.height,
		Selected: e.selected,
	})
}

// Render returns the live SVG markup at the current zoom and pan.
func (e *Engine) Render() ([]byte, error) {
	return e.renderSVG(e.selected, e.viewport.Frame(e.width, e.height))
}

// ExportSVG returns the markup used for export: logical size, no pan, no
// selection decorations.
func (e *Engine) ExportSVG() ([]byte, error) {
	return e.renderSVG(0, render.FrameFor(e.width, e.height))
}

func (e *Engine) renderSVG(selected int64, f render.Frame) ([]byte, error) {
	return render.SVG(e.scene, render.Options{Width: e.width, Height: e.height, Selected: selected}, f)
}

// State is the JSON snapshot of the engine's UI state.
type State struct {
	Tool       Tool     `json:"tool"`
	Mode       Mode     `json:"mode"`
	Selected   int64    `json:"selected"`
	Viewport   Viewport `json:"viewport"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	ShapeCount int      `json:"shapeCount"`
	Background bool     `json:"hasBackground"`
}

// State returns the engine's UI state.
func (e *Engine) State() State {
	return State{
		Tool:       e.tool,
		Mode:       e.Mode(),
		Selected:   e.selected,
		Viewport:   e.viewport,
		Width:      e.width,
		Height:     e.height,
		ShapeCount: len(e.scene.Shapes),
		Background: e.scene.HasBackground(),
	}
}

// StateJSON returns State as JSON.
func (e *Engine) StateJSON() string {
	data, _ := json.Marshal(e.State())
	return string(data)
}

func (e *Engine) shape(id int64) (*document.Shape, error) {
	i := e.scene.Find(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShape, id)
	}
	return &e.scene.Shapes[i], nil
}

func (e *Engine) selectedShape() *document.Shape {
	if e.selected == 0 {
		return nil
	}
	sh, err := e.shape(e.selected)
	if err != nil {
		return nil
	}
	return sh
}
