package drawing

import (
	"fmt"

	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/engine"
	"github.com/navmaint/drawboard/internal/render"
)

type CommandType string

const (
	CmdPointerDown     CommandType = "pointer.down"
	CmdPointerMove     CommandType = "pointer.move"
	CmdPointerUp       CommandType = "pointer.up"
	CmdToolSelect      CommandType = "tool.select"
	CmdShapeSelect     CommandType = "shape.select"
	CmdShapeDelete     CommandType = "shape.delete"
	CmdShapeMetadata   CommandType = "shape.metadata"
	CmdShapeStyle      CommandType = "shape.style"
	CmdZoomSet         CommandType = "zoom.set"
	CmdZoomIn          CommandType = "zoom.in"
	CmdZoomOut         CommandType = "zoom.out"
	CmdZoomReset       CommandType = "zoom.reset"
	CmdViewReset       CommandType = "view.reset"
	CmdSurfaceMount    CommandType = "surface.mount"
	CmdSurfaceUnmount  CommandType = "surface.unmount"
	CmdBackgroundClear CommandType = "background.clear"
)

// Command is one interaction message. Only the fields its Type uses are
// read. Pointer coordinates are device coordinates.
type Command struct {
	Type     CommandType        `json:"type"`
	X        float64            `json:"x,omitempty"`
	Y        float64            `json:"y,omitempty"`
	Tool     string             `json:"tool,omitempty"`
	ShapeID  int64              `json:"shapeId,omitempty"`
	Metadata *document.Metadata `json:"metadata,omitempty"`
	Fill     string             `json:"fill,omitempty"`
	Stroke   string             `json:"stroke,omitempty"`
	Zoom     float64            `json:"zoom,omitempty"`
	Left     float64            `json:"left,omitempty"`
	Top      float64            `json:"top,omitempty"`
}

func (c Command) point() render.Point {
	return render.Point{X: c.X, Y: c.Y}
}

// target is the shape a command addresses: its ShapeID or the selection.
func (c Command) target(e *engine.Engine) (int64, error) {
	if c.ShapeID != 0 {
		return c.ShapeID, nil
	}
	if id := e.Selected(); id != 0 {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s needs a shape", ErrBadCommand, c.Type)
}

func (c Command) apply(e *engine.Engine) error {
	switch c.Type {
	case CmdPointerDown:
		e.PointerDown(c.point())
	case CmdPointerMove:
		e.PointerMove(c.point())
	case CmdPointerUp:
		e.PointerUp()

	case CmdToolSelect:
		t, err := engine.ParseTool(c.Tool)
		if err != nil {
			return err
		}
		e.SelectTool(t)
	case CmdShapeSelect:
		return e.Select(c.ShapeID)
	case CmdShapeDelete:
		e.DeleteSelected()

	case CmdShapeMetadata:
		id, err := c.target(e)
		if err != nil {
			return err
		}
		if c.Metadata == nil {
			return e.ClearMetadata(id)
		}
		return e.UpdateMetadata(id, *c.Metadata)
	case CmdShapeStyle:
		id, err := c.target(e)
		if err != nil {
			return err
		}
		if c.Fill == "" && c.Stroke == "" {
			return fmt.Errorf("%w: style needs fill or stroke", ErrBadCommand)
		}
		if c.Fill != "" {
			if err := e.SetFill(id, c.Fill); err != nil {
				return err
			}
		}
		if c.Stroke != "" {
			return e.SetStroke(id, c.Stroke)
		}

	case CmdZoomSet:
		e.SetZoom(c.Zoom)
	case CmdZoomIn:
		e.ZoomIn()
	case CmdZoomOut:
		e.ZoomOut()
	case CmdZoomReset:
		e.ResetZoom()
	case CmdViewReset:
		e.ResetView()

	case CmdSurfaceMount:
		e.Mount(engine.Surface{Left: c.Left, Top: c.Top})
	case CmdSurfaceUnmount:
		e.Unmount()
	case CmdBackgroundClear:
		e.ClearBackground()

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
	}
	return nil
}
