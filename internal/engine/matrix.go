package engine

// Matrix2D is the affine map from scene space to device space, stored as
// [a b c d e f] for
//
//	x' = a*x + c*y + e
//	y' = b*x + d*y + f
//
// The surface mapper only builds translations and axis scales, so b and c
// stay zero in practice.
type Matrix2D [6]float64

func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

func Translate(dx, dy float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, dx, dy}
}

func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Multiply composes two maps. The result applies n first, then m.
func (m Matrix2D) Multiply(n Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*n[0] + m[2]*n[1],
		m[1]*n[0] + m[3]*n[1],
		m[0]*n[2] + m[2]*n[3],
		m[1]*n[2] + m[3]*n[3],
		m[0]*n[4] + m[2]*n[5] + m[4],
		m[1]*n[4] + m[3]*n[5] + m[5],
	}
}

func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse map. A collapsed surface (zero scale) has
// none; it inverts to Identity so device points pass through unchanged.
func (m Matrix2D) Invert() Matrix2D {
	det := m.Determinant()
	if det == 0 {
		return Identity()
	}
	k := 1 / det
	return Matrix2D{
		m[3] * k,
		-m[1] * k,
		-m[2] * k,
		m[0] * k,
		(m[2]*m[5] - m[3]*m[4]) * k,
		(m[1]*m[4] - m[0]*m[5]) * k,
	}
}
