package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"

	svg "github.com/ajstarks/svgo/float"

	"github.com/navmaint/drawboard/internal/document"
)

// ViewBox is the visible window into scene coordinates.
type ViewBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Frame describes the SVG element a display list is written into: its
// outer size and the scene window it shows.
type Frame struct {
	Width   float64
	Height  float64
	ViewBox ViewBox
}

// FrameFor returns the unzoomed frame of a canvas of the given logical size.
func FrameFor(width, height float64) Frame {
	return Frame{
		Width:   width,
		Height:  height,
		ViewBox: ViewBox{Width: width, Height: height},
	}
}

// errWriter remembers the first write error so svgo's fire-and-forget
// calls can be checked once at the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	ew.err = err
	return n, err
}

// WriteSVG serializes a display list as a standalone SVG document.
func WriteSVG(w io.Writer, cmds []Command, f Frame) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Startview(f.Width, f.Height, f.ViewBox.X, f.ViewBox.Y, f.ViewBox.Width, f.ViewBox.Height)

	for _, c := range cmds {
		switch c.Op {
		case OpImage:
			canvas.Image(0, 0, int(math.Round(c.Width)), int(math.Round(c.Height)), html.EscapeString(c.Href),
				`preserveAspectRatio="none"`)
		case OpRect:
			canvas.Rect(c.X, c.Y, c.Width, c.Height, paintAttrs(c)...)
		case OpCircle, OpHandle:
			canvas.Circle(c.X, c.Y, c.Radius, paintAttrs(c)...)
		case OpPolygon:
			xs, ys := splitPoints(c.Points)
			canvas.Polygon(xs, ys, paintAttrs(c)...)
		case OpText:
			canvas.Text(c.X, c.Y, c.Text,
				attr("fill", c.Fill),
				attr("font-family", LabelFontFamily),
				fmt.Sprintf(`font-size="%g"`, LabelFontSize),
				`text-anchor="middle"`,
				`dominant-baseline="middle"`,
				`pointer-events="none"`)
		}
	}

	canvas.End()
	if ew.err != nil {
		return fmt.Errorf("write svg: %w", ew.err)
	}
	return nil
}

// SVG compiles a scene and returns its markup.
func SVG(scene *document.Scene, opts Options, f Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, Compile(scene, opts), f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func paintAttrs(c Command) []string {
	attrs := []string{
		attr("fill", c.Fill),
		attr("stroke", c.Stroke),
		fmt.Sprintf(`stroke-width="%g"`, c.StrokeWidth),
	}
	if c.Dash != "" {
		attrs = append(attrs, attr("stroke-dasharray", c.Dash))
	}
	if c.ShapeID != 0 && c.Op != OpHandle {
		attrs = append(attrs, fmt.Sprintf(`data-shape-id="%d"`, c.ShapeID))
	}
	return attrs
}

func attr(name, value string) string {
	return fmt.Sprintf(`%s="%s"`, name, html.EscapeString(value))
}

func splitPoints(pts []Point) ([]float64, []float64) {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}
