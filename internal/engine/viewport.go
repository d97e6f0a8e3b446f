package engine

import (
	"math"

	"github.com/navmaint/drawboard/internal/render"
)

const (
	MinZoom  = 0.5
	MaxZoom  = 2.0
	ZoomStep = 0.1
)

// Rect represents an axis-aligned box in scene coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the visible window into the scene. Panning moves ViewBox;
// Zoom magnifies the whole surface without changing scene density.
type Viewport struct {
	ViewBox Rect    `json:"viewBox"`
	Zoom    float64 `json:"zoom"`
}

// NewViewport returns an unpanned, unzoomed viewport over a canvas.
func NewViewport(width, height float64) Viewport {
	return Viewport{
		ViewBox: Rect{Width: width, Height: height},
		Zoom:    1,
	}
}

// ClampZoom limits z to [MinZoom, MaxZoom] and rounds it to one decimal
// so repeated steps don't accumulate drift.
func ClampZoom(z float64) float64 {
	z = math.Round(z*10) / 10
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Frame returns the on-screen SVG frame for a canvas of the given logical size.
func (v Viewport) Frame(width, height float64) render.Frame {
	return render.Frame{
		Width:  width * v.Zoom,
		Height: height * v.Zoom,
		ViewBox: render.ViewBox{
			X:      v.ViewBox.X,
			Y:      v.ViewBox.Y,
			Width:  v.ViewBox.Width,
			Height: v.ViewBox.Height,
		},
	}
}

// Surface is the on-screen position of the mounted drawing element, in
// device pixels.
type Surface struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Mapper converts device (pointer) coordinates into scene coordinates.
type Mapper interface {
	DeviceToScene(device render.Point, vp Viewport) render.Point
}

// SurfaceMapper maps pointer positions through the mounted drawing
// element: undo the surface offset, undo zoom and viewBox scaling, then
// undo the viewBox translation.
type SurfaceMapper struct {
	// Width and Height are the logical canvas size.
	Width  float64
	Height float64

	surface Surface
	mounted bool
}

// Mount records where the drawing element sits on screen.
func (m *SurfaceMapper) Mount(s Surface) {
	m.surface = s
	m.mounted = true
}

// Unmount forgets the drawing element.
func (m *SurfaceMapper) Unmount() {
	m.surface = Surface{}
	m.mounted = false
}

// Mounted reports whether a surface is attached.
func (m *SurfaceMapper) Mounted() bool {
	return m.mounted
}

// ScreenMatrix returns the scene-to-device transform.
func (m *SurfaceMapper) ScreenMatrix(vp Viewport) Matrix2D {
	sx, sy := vp.Zoom, vp.Zoom
	if vp.ViewBox.Width > 0 {
		sx *= m.Width / vp.ViewBox.Width
	}
	if vp.ViewBox.Height > 0 {
		sy *= m.Height / vp.ViewBox.Height
	}
	return Translate(m.surface.Left, m.surface.Top).
		Multiply(Scale(sx, sy)).
		Multiply(Translate(-vp.ViewBox.X, -vp.ViewBox.Y))
}

// DeviceToScene maps a device point into scene space. An unmounted
// surface maps everything to the origin.
func (m *SurfaceMapper) DeviceToScene(device render.Point, vp Viewport) render.Point {
	if !m.mounted {
		return render.Point{}
	}
	x, y := m.ScreenMatrix(vp).Invert().TransformPoint(device.X, device.Y)
	return render.Point{X: x, Y: y}
}
