package shape

import (
	"hash/fnv"
	"sync/atomic"
)

// SeedSource hands out render seeds: a monotonic counter mixed through a
// fixed integer hash. It is safe for concurrent use.
type SeedSource struct {
	counter atomic.Uint32
}

// NewSeedSource starts the counter at start. Two sources started at the same
// value produce the same sequence.
func NewSeedSource(start uint32) *SeedSource {
	s := &SeedSource{}
	s.counter.Store(start)
	return s
}

func (s *SeedSource) Next() uint32 {
	return mix32(s.counter.Add(1))
}

// SeedFromID derives a stable seed from a shape id for callers that have no
// SeedSource at hand.
func SeedFromID(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return mix32(h.Sum32())
}

// mix32 is the splitmix32 finalizer.
func mix32(x uint32) uint32 {
	x *= 0x9E3779B9
	x ^= x >> 16
	x *= 0x85EBCA6B
	x ^= x >> 13
	x *= 0xC2B2AE35
	x ^= x >> 16
	return x
}
