package stats

import (
	"hash/fnv"
	"math/rand"
)

// Source is the randomness consumed by the samplers. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	NormFloat64() float64
	Intn(n int) int
}

// NewSource returns a seeded math/rand generator.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// DeriveSeed mixes a run seed with stream labels so that every room (or replicate)
// gets an independent, reproducible stream regardless of worker scheduling.
func DeriveSeed(seed int64, labels ...string) int64 {
	h := fnv.New64a()
	var b [8]byte
	for i := range b {
		b[i] = byte(uint64(seed) >> (8 * i))
	}
	h.Write(b[:])
	for _, l := range labels {
		h.Write([]byte{0})
		h.Write([]byte(l))
	}
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

// ScriptedSource replays a fixed list of uniforms (cycling) and returns Norm for
// every normal draw. It makes degenerate distributions fully deterministic.
type ScriptedSource struct {
	Uniforms []float64
	Norm     float64
	next     int
}

func (s *ScriptedSource) Float64() float64 {
	if len(s.Uniforms) == 0 {
		return 0
	}
	v := s.Uniforms[s.next%len(s.Uniforms)]
	s.next++
	return v
}

func (s *ScriptedSource) NormFloat64() float64 {
	return s.Norm
}

func (s *ScriptedSource) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
