package document

// NewSampleScene returns a small hull-inspection scene used by demos and
// the browser playground.
func NewSampleScene() *Scene {
	return &Scene{
		Shapes: []Shape{
			{
				ID:     1,
				Type:   ShapeRectangle,
				X:      80,
				Y:      120,
				Width:  160,
				Height: 90,
				Fill:   "#f5a623",
				Stroke: "#000000",
				Metadata: &Metadata{
					Label:    "Frame 42 corrosion",
					Severity: SeverityMedium,
					Color:    "#f5a623",
				},
			},
			{
				ID:     2,
				Type:   ShapeCircle,
				X:      420,
				Y:      260,
				Radius: 45,
				Fill:   "#e94560",
				Stroke: "#000000",
				Metadata: &Metadata{
					Label:    "Pitting",
					Severity: SeverityHigh,
					Color:    "#e94560",
				},
			},
			{
				ID:     3,
				Type:   ShapeTriangle,
				X:      620,
				Y:      160,
				Width:  100,
				Height: 100,
				Fill:   "#53d769",
				Stroke: "#2d6a4f",
			},
			{
				ID:     4,
				Type:   ShapeStar,
				X:      300,
				Y:      460,
				Width:  100,
				Height: 100,
				Fill:   "#ffffff",
				Stroke: "#000000",
				Metadata: &Metadata{
					Label:    "Weld check",
					Severity: SeverityLow,
					Color:    "#ffffff",
				},
			},
		},
	}
}
