package render

import (
	"encoding/json"

	"github.com/navmaint/drawboard/internal/document"
)

// Op names a display list operation.
type Op string

const (
	OpImage   Op = "image"
	OpRect    Op = "rect"
	OpCircle  Op = "circle"
	OpPolygon Op = "polygon"
	OpText    Op = "text"
	OpHandle  Op = "handle"
)

// Selection and handle styling.
const (
	StrokeWidth         = 2.0
	SelectedStroke      = "#007bff"
	SelectedStrokeWidth = 3.0
	SelectedDash        = "5,5"
	HandleRadius        = 6.0
	HandleFill          = "#ffffff"
	HandleStrokeWidth   = 2.0
	LabelFontSize       = 14.0
	LabelFontFamily     = "sans-serif"
	defaultFill         = "#ffffff"
	defaultStroke       = "#000000"
)

// Command is a single drawing operation. A scene compiles to a list of
// these in painter's order (back to front).
type Command struct {
	Op          Op      `json:"op"`
	ShapeID     int64   `json:"shapeId,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	Points      []Point `json:"points,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Dash        string  `json:"dash,omitempty"`
	Text        string  `json:"text,omitempty"`
	Href        string  `json:"href,omitempty"`
}

// Options controls display list compilation.
type Options struct {
	// Width and Height are the logical canvas size the background image
	// is stretched to.
	Width  float64
	Height float64
	// Selected is the id of the decorated shape, or 0 for none.
	Selected int64
}

// Compile generates the display list for a scene: background first, then
// every shape followed by its label, then the resize handles of the
// selected shape on top.
func Compile(scene *document.Scene, opts Options) []Command {
	if scene == nil {
		return nil
	}

	cmds := make([]Command, 0, len(scene.Shapes)*2+5)
	if scene.HasBackground() {
		cmds = append(cmds, Command{
			Op:     OpImage,
			Width:  opts.Width,
			Height: opts.Height,
			Href:   scene.Background(),
		})
	}

	var selected *document.Shape
	for i := range scene.Shapes {
		sh := scene.Shapes[i]
		isSelected := opts.Selected != 0 && sh.ID == opts.Selected
		cmds = append(cmds, shapeCommand(sh, isSelected))

		if sh.Metadata != nil && sh.Metadata.Label != "" {
			c := Center(sh)
			cmds = append(cmds, Command{
				Op:      OpText,
				ShapeID: sh.ID,
				X:       c.X,
				Y:       c.Y,
				Fill:    LabelColor(sh.Fill),
				Text:    sh.Metadata.Label,
			})
		}
		if isSelected {
			selected = &scene.Shapes[i]
		}
	}

	if selected != nil {
		for _, p := range HandlePoints(*selected) {
			cmds = append(cmds, Command{
				Op:          OpHandle,
				ShapeID:     selected.ID,
				X:           p.X,
				Y:           p.Y,
				Radius:      HandleRadius,
				Fill:        HandleFill,
				Stroke:      SelectedStroke,
				StrokeWidth: HandleStrokeWidth,
			})
		}
	}
	return cmds
}

func shapeCommand(sh document.Shape, selected bool) Command {
	cmd := Command{
		ShapeID:     sh.ID,
		Fill:        orDefault(sh.Fill, defaultFill),
		Stroke:      orDefault(sh.Stroke, defaultStroke),
		StrokeWidth: StrokeWidth,
	}
	if selected {
		cmd.Stroke = SelectedStroke
		cmd.StrokeWidth = SelectedStrokeWidth
		cmd.Dash = SelectedDash
	}

	switch sh.Type {
	case document.ShapeRectangle:
		cmd.Op = OpRect
		cmd.X, cmd.Y, cmd.Width, cmd.Height = sh.X, sh.Y, sh.Width, sh.Height
	case document.ShapeCircle:
		cmd.Op = OpCircle
		cmd.X, cmd.Y, cmd.Radius = sh.X, sh.Y, sh.Radius
	case document.ShapeTriangle:
		cmd.Op = OpPolygon
		cmd.Points = TrianglePoints(sh)
	case document.ShapeStar:
		cmd.Op = OpPolygon
		cmd.Points = StarPoints(sh)
	}
	return cmd
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// CommandsToJSON serializes a display list.
func CommandsToJSON(cmds []Command) (string, error) {
	if cmds == nil {
		cmds = []Command{}
	}
	data, err := json.Marshal(cmds)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
