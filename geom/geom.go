// Package geom holds the pure geometry and mass helpers shared by the
// simulation and the network layer.
package geom

import (
	"math"
	"math/rand/v2"
)

// Point is a position in world coordinates.
type Point struct {
	X, Y float64
}

// MassToRadius converts a mass into a circle radius.
func MassToRadius(mass float64) float64 {
	return 4 + math.Sqrt(mass)*6
}

// Log returns the logarithm of n in the given base.
func Log(n, base float64) float64 {
	return math.Log(n) / math.Log(base)
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// Overlaps checks if two circles overlap
func Overlaps(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	radSum := r1 + r2
	return dx*dx+dy*dy <= radSum*radSum
}

// Contains reports whether the inner circle lies entirely inside the outer
// one.
func Contains(ox, oy, or, ix, iy, ir float64) bool {
	if ir > or {
		return false
	}
	dx := ix - ox
	dy := iy - oy
	gap := or - ir
	return dx*dx+dy*dy <= gap*gap
}

// PointInCircle reports whether (px,py) lies inside the circle.
func PointInCircle(px, py, cx, cy, r float64) bool {
	dx := px - cx
	dy := py - cy
	return dx*dx+dy*dy <= r*r
}

// ClampToBounds keeps a point at least border away from the edges of a
// width x height world.
func ClampToBounds(x, y, border, width, height float64) (float64, float64) {
	if border*2 > width {
		x = width / 2
	} else {
		x = Clamp(x, border, width-border)
	}
	if border*2 > height {
		y = height / 2
	} else {
		y = Clamp(y, border, height-border)
	}
	return x, y
}

// RandomInRange returns a uniform value in [from, to).
func RandomInRange(rng *rand.Rand, from, to float64) float64 {
	return from + rng.Float64()*(to-from)
}

// RandomPosition returns a position whose circle of the given radius fits in
// the world.
func RandomPosition(rng *rand.Rand, radius, width, height float64) Point {
	x, y := ClampToBounds(
		RandomInRange(rng, radius, width-radius),
		RandomInRange(rng, radius, height-radius),
		radius, width, height)
	return Point{X: x, Y: y}
}

// candidateCount is the number of random positions tried by UniformPosition.
const candidateCount = 10

// UniformPosition samples several random positions and returns the one
// farthest from every point in taken. With nothing taken it degrades to
// RandomPosition.
func UniformPosition(rng *rand.Rand, taken []Point, radius, width, height float64) Point {
	if len(taken) == 0 {
		return RandomPosition(rng, radius, width, height)
	}
	var best Point
	bestDist := -1.0
	for i := 0; i < candidateCount; i++ {
		p := RandomPosition(rng, radius, width, height)
		nearest := math.Inf(1)
		for _, q := range taken {
			dx := p.X - q.X
			dy := p.Y - q.Y
			if d := dx*dx + dy*dy; d < nearest {
				nearest = d
			}
		}
		if nearest > bestDist {
			best, bestDist = p, nearest
		}
	}
	return best
}
