package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrixInvert(t *testing.T) {
	m := Translate(10, 20).Multiply(Scale(2, 4))
	round := m.Multiply(m.Invert())
	want := Identity()
	assert.InDeltaSlice(t, want[:], round[:], 1e-10)

	x, y := m.TransformPoint(1, 1)
	assert.Equal(t, 12.0, x)
	assert.Equal(t, 24.0, y)

	assert.Equal(t, Identity(), Scale(0, 0).Invert(), "singular matrices invert to identity")
}

func TestSurfaceMapper(t *testing.T) {
	m := &SurfaceMapper{Width: 800, Height: 600}
	vp := NewViewport(800, 600)

	assert.Equal(t, pt(0, 0), m.DeviceToScene(pt(300, 200), vp), "unmounted surface maps to origin")

	m.Mount(Surface{Left: 10, Top: 20})
	assert.Equal(t, pt(290, 180), m.DeviceToScene(pt(300, 200), vp))

	vp.Zoom = 2
	assert.Equal(t, pt(100, 100), m.DeviceToScene(pt(210, 220), vp))

	vp.ViewBox.X, vp.ViewBox.Y = 50, -30
	assert.Equal(t, pt(150, 70), m.DeviceToScene(pt(210, 220), vp))

	m.Unmount()
	assert.False(t, m.Mounted())
	assert.Equal(t, pt(0, 0), m.DeviceToScene(pt(210, 220), vp))
}

func TestUnmountedEngineIgnoresPointerPosition(t *testing.T) {
	e := New(Options{})
	e.SelectTool(ToolCircle)
	e.PointerDown(pt(400, 300))

	sh := e.Scene().Shapes[0]
	assert.Equal(t, 0.0, sh.X)
	assert.Equal(t, 0.0, sh.Y)
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, 0.5, ClampZoom(0.1))
	assert.Equal(t, 2.0, ClampZoom(2.5))
	assert.Equal(t, 1.3, ClampZoom(1.2999999))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "idle", ModeIdle.String())
	assert.Equal(t, "resizing", ModeResizing.String())
	assert.Equal(t, "unknown", Mode(42).String())
	assert.Equal(t, "bottom-right", HandleBottomRight.String())
}
