package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Scene is the persisted unit of a drawing: the ordered shapes plus an
// optional background raster stored as a data URL.
type Scene struct {
	Shapes          []Shape `json:"shapes"`
	BackgroundImage *string `json:"backgroundImage"`
}

type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeTriangle  ShapeType = "triangle"
	ShapeStar      ShapeType = "star"
)

// ShapeTypes lists every shape variant in toolbar order.
var ShapeTypes = []ShapeType{ShapeRectangle, ShapeCircle, ShapeTriangle, ShapeStar}

// Valid reports whether t is one of the known shape variants.
func (t ShapeType) Valid() bool {
	switch t {
	case ShapeRectangle, ShapeCircle, ShapeTriangle, ShapeStar:
		return true
	}
	return false
}

// Boxed reports whether shapes of this type are sized by width/height.
// Circles are the only radius-sized variant.
func (t ShapeType) Boxed() bool {
	return t.Valid() && t != ShapeCircle
}

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Metadata is the business annotation attached to a shape.
type Metadata struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
	Color    string   `json:"color"`
}

// Shape is a single annotated object on the canvas.
//
// X/Y is the top-left corner for rectangles and the center point for
// circles, triangles and stars. Width/Height apply to boxed shapes,
// Radius to circles.
type Shape struct {
	ID       int64     `json:"id"`
	Type     ShapeType `json:"type"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width,omitempty"`
	Height   float64   `json:"height,omitempty"`
	Radius   float64   `json:"radius,omitempty"`
	Fill     string    `json:"fill"`
	Stroke   string    `json:"stroke"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

var (
	ErrDuplicateID = errors.New("duplicate shape id")
	ErrInvalidID   = errors.New("invalid shape id")
	ErrUnknownType = errors.New("unknown shape type")
	ErrBadExtent   = errors.New("shape extent must be positive")
	ErrBadSeverity = errors.New("unknown severity")
)

// NewScene creates an empty scene with no background.
func NewScene() *Scene {
	return &Scene{Shapes: []Shape{}}
}

// HasBackground reports whether a background image is set.
func (s *Scene) HasBackground() bool {
	return s.BackgroundImage != nil && *s.BackgroundImage != ""
}

// Background returns the background data URL, or "" when there is none.
func (s *Scene) Background() string {
	if s.BackgroundImage == nil {
		return ""
	}
	return *s.BackgroundImage
}

// Find returns the index of the shape with the given id, or -1.
func (s *Scene) Find(id int64) int {
	for i := range s.Shapes {
		if s.Shapes[i].ID == id {
			return i
		}
	}
	return -1
}

// MaxID returns the largest shape id in the scene, or 0 when empty.
func (s *Scene) MaxID() int64 {
	var max int64
	for _, sh := range s.Shapes {
		if sh.ID > max {
			max = sh.ID
		}
	}
	return max
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	out := &Scene{Shapes: make([]Shape, len(s.Shapes))}
	for i, sh := range s.Shapes {
		out.Shapes[i] = sh.Clone()
	}
	if s.BackgroundImage != nil {
		bg := *s.BackgroundImage
		out.BackgroundImage = &bg
	}
	return out
}

// Clone returns a copy of the shape that shares no metadata pointer.
func (sh Shape) Clone() Shape {
	if sh.Metadata != nil {
		md := *sh.Metadata
		sh.Metadata = &md
	}
	return sh
}

// Validate checks the structural invariants of a scene: known types,
// positive unique ids and positive extents.
func (s *Scene) Validate() error {
	seen := make(map[int64]struct{}, len(s.Shapes))
	for _, sh := range s.Shapes {
		if sh.ID <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidID, sh.ID)
		}
		if _, dup := seen[sh.ID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateID, sh.ID)
		}
		seen[sh.ID] = struct{}{}

		if !sh.Type.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownType, sh.Type)
		}
		if sh.Type.Boxed() {
			if sh.Width <= 0 || sh.Height <= 0 {
				return fmt.Errorf("%w: shape %d is %gx%g", ErrBadExtent, sh.ID, sh.Width, sh.Height)
			}
		} else if sh.Radius <= 0 {
			return fmt.Errorf("%w: shape %d has radius %g", ErrBadExtent, sh.ID, sh.Radius)
		}
		if sh.Metadata != nil && sh.Metadata.Severity != "" && !sh.Metadata.Severity.Valid() {
			return fmt.Errorf("%w: %q", ErrBadSeverity, sh.Metadata.Severity)
		}
	}
	return nil
}

// Marshal encodes the scene in its persisted JSON form.
func Marshal(s *Scene) ([]byte, error) {
	if s.Shapes == nil {
		cp := *s
		cp.Shapes = []Shape{}
		s = &cp
	}
	return json.Marshal(s)
}

// Unmarshal decodes and validates a persisted scene.
func Unmarshal(data []byte) (*Scene, error) {
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if s.Shapes == nil {
		s.Shapes = []Shape{}
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate scene: %w", err)
	}
	return &s, nil
}
