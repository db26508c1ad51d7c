// Package randutil derives reproducible math/rand/v2 sources from seeds.
package randutil

import (
	rand "math/rand/v2"
	"sync"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from the provided int64.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seed returns *seed when set, otherwise a time-derived seed. The chosen
// value is returned so callers can log it for replay.
func Seed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return time.Now().UnixNano()
}

// Sequence hands out one independent *rand.Rand per table, all derived from
// a single root seed, so a whole server run can be replayed from one number.
type Sequence struct {
	mu   sync.Mutex
	root *rand.Rand
}

// NewSequence creates a sequence rooted at seed
func NewSequence(seed int64) *Sequence {
	return &Sequence{root: New(seed)}
}

// Next returns a fresh source for the next table
func (s *Sequence) Next() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return New(s.root.Int64())
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
