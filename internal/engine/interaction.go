package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/render"
)

// Extent limits enforced after every resize step.
const (
	MinExtent = 10.0
	MinRadius = 5.0
)

// Default sizes for newly placed shapes.
const (
	DefaultRectWidth  = 100.0
	DefaultRectHeight = 80.0
	DefaultRadius     = 50.0
	DefaultBoxSize    = 100.0
	DefaultFill       = "#ffffff"
	DefaultStroke     = "#000000"
)

var ErrUnknownTool = errors.New("unknown tool")

// Tool is the active toolbar selection. Shape tools share their names
// with the shape types they place.
type Tool string

const (
	ToolNone      Tool = ""
	ToolPan       Tool = "pan"
	ToolRectangle Tool = Tool(document.ShapeRectangle)
	ToolCircle    Tool = Tool(document.ShapeCircle)
	ToolTriangle  Tool = Tool(document.ShapeTriangle)
	ToolStar      Tool = Tool(document.ShapeStar)
)

// ParseTool accepts "", "none", "pan" or a shape type name.
func ParseTool(s string) (Tool, error) {
	switch s {
	case "", "none":
		return ToolNone, nil
	case string(ToolPan):
		return ToolPan, nil
	}
	if document.ShapeType(s).Valid() {
		return Tool(s), nil
	}
	return ToolNone, fmt.Errorf("%w: %q", ErrUnknownTool, s)
}

// ShapeType returns the shape a placement tool creates.
func (t Tool) ShapeType() (document.ShapeType, bool) {
	st := document.ShapeType(t)
	return st, st.Valid()
}

// Mode is the interaction mode of the pointer state machine.
type Mode int

const (
	ModeIdle Mode = iota
	ModePlacing
	ModeDragging
	ModeResizing
	ModePanning
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePlacing:
		return "placing"
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	case ModePanning:
		return "panning"
	default:
		return "unknown"
	}
}

// MarshalText lets modes appear by name in JSON state.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode name, so clients can decode State.
func (m *Mode) UnmarshalText(text []byte) error {
	for c := ModeIdle; c <= ModePanning; c++ {
		if c.String() == string(text) {
			*m = c
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// Handle identifies a resize corner.
type Handle int

const (
	HandleTopLeft Handle = iota
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
)

func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "top-left"
	case HandleTopRight:
		return "top-right"
	case HandleBottomLeft:
		return "bottom-left"
	case HandleBottomRight:
		return "bottom-right"
	default:
		return "unknown"
	}
}

// gesture holds the transient fields of the active pointer mode.
type gesture struct {
	mode    Mode
	shapeID int64
	grab    render.Point // dragging: pointer minus shape position
	handle  Handle       // resizing
	last    render.Point // resizing: previous pointer; panning: anchor
}

// PointerDown starts a gesture at a device position.
func (e *Engine) PointerDown(device render.Point) {
	p := e.DeviceToScene(device)
	e.gesture = gesture{}

	if sel := e.selectedShape(); sel != nil {
		if h, ok := hitHandle(*sel, p); ok {
			e.gesture = gesture{mode: ModeResizing, shapeID: sel.ID, handle: h, last: p}
			return
		}
	}

	if id := e.HitTest(p); id != 0 {
		sh := e.scene.Shapes[e.scene.Find(id)]
		e.selected = id
		e.gesture = gesture{
			mode:    ModeDragging,
			shapeID: id,
			grab:    p.Sub(render.Point{X: sh.X, Y: sh.Y}),
		}
		return
	}

	if e.tool == ToolPan {
		e.gesture = gesture{mode: ModePanning, last: p}
		return
	}

	if st, ok := e.tool.ShapeType(); ok {
		sh := e.newShape(st, p)
		e.scene.Shapes = append(e.scene.Shapes, sh)
		e.selected = sh.ID
		e.tool = ToolNone
		e.changed = true
		return
	}

	e.selected = 0
}

// PointerMove advances the active gesture. It reports whether anything
// visible changed.
func (e *Engine) PointerMove(device render.Point) bool {
	if e.gesture.mode == ModeIdle {
		return false
	}
	p := e.DeviceToScene(device)

	switch e.gesture.mode {
	case ModePanning:
		d := p.Sub(e.gesture.last)
		if d.X == 0 && d.Y == 0 {
			return false
		}
		e.viewport.ViewBox.X -= d.X
		e.viewport.ViewBox.Y -= d.Y
		return true

	case ModeDragging:
		i := e.scene.Find(e.gesture.shapeID)
		if i < 0 {
			e.gesture = gesture{}
			return false
		}
		pos := p.Sub(e.gesture.grab)
		e.scene.Shapes[i].X = pos.X
		e.scene.Shapes[i].Y = pos.Y
		e.changed = true
		return true

	case ModeResizing:
		i := e.scene.Find(e.gesture.shapeID)
		if i < 0 {
			e.gesture = gesture{}
			return false
		}
		d := p.Sub(e.gesture.last)
		e.gesture.last = p
		Resize(&e.scene.Shapes[i], e.gesture.handle, d)
		e.changed = true
		return true
	}
	return false
}

// PointerUp ends any gesture and clears its transient state.
func (e *Engine) PointerUp() {
	e.gesture = gesture{}
}

// Resize applies one pointer delta to a shape through a corner handle and
// clamps the result to the minimum extent.
//
// Handles on the near side (left for x, top for y) move the position by
// the delta so the opposite corner stays put. Circles grow by the mean of
// the two axis deltas.
func Resize(sh *document.Shape, h Handle, d render.Point) {
	if sh.Type == document.ShapeCircle {
		sh.Radius = math.Max(MinRadius, sh.Radius+(d.X+d.Y)/2)
		return
	}

	switch h {
	case HandleTopLeft:
		sh.X += d.X
		sh.Width -= d.X
		sh.Y += d.Y
		sh.Height -= d.Y
	case HandleTopRight:
		sh.Width += d.X
		sh.Y += d.Y
		sh.Height -= d.Y
	case HandleBottomLeft:
		sh.X += d.X
		sh.Width -= d.X
		sh.Height += d.Y
	case HandleBottomRight:
		sh.Width += d.X
		sh.Height += d.Y
	}
	sh.Width = math.Max(MinExtent, sh.Width)
	sh.Height = math.Max(MinExtent, sh.Height)
}

func (e *Engine) newShape(st document.ShapeType, p render.Point) document.Shape {
	sh := document.Shape{
		ID:     e.ids.Next(),
		Type:   st,
		X:      p.X,
		Y:      p.Y,
		Fill:   DefaultFill,
		Stroke: DefaultStroke,
	}
	switch st {
	case document.ShapeRectangle:
		sh.X -= DefaultRectWidth / 2
		sh.Y -= DefaultRectHeight / 2
		sh.Width, sh.Height = DefaultRectWidth, DefaultRectHeight
	case document.ShapeCircle:
		sh.Radius = DefaultRadius
	default:
		sh.Width, sh.Height = DefaultBoxSize, DefaultBoxSize
	}
	return sh
}

// hitHandle returns the handle of sh under p, if any.
func hitHandle(sh document.Shape, p render.Point) (Handle, bool) {
	pts := render.HandlePoints(sh)
	for i, hp := range pts {
		d := p.Sub(hp)
		if d.X*d.X+d.Y*d.Y <= render.HandleRadius*render.HandleRadius {
			if sh.Type == document.ShapeCircle {
				return HandleBottomRight, true
			}
			return Handle(i), true
		}
	}
	return 0, false
}
