package game

import (
	"math/rand/v2"

	"arena-server/geom"
)

// spawner is the shared randomness, ID source and world bounds used by every
// manager when creating entities.
type spawner struct {
	rng           *rand.Rand
	ids           *idPool
	width, height float64
}

func (s *spawner) position(radius float64, uniform bool, taken []geom.Point) geom.Point {
	if uniform {
		return geom.UniformPosition(s.rng, taken, radius, s.width, s.height)
	}
	return geom.RandomPosition(s.rng, radius, s.width, s.height)
}

func (s *spawner) hue() uint8 {
	return uint8(s.rng.IntN(256))
}
