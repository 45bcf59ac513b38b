package tour

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the random source chromosomes draw genes from.
type Rand interface {
	Intn(n int) int
}

// LockedRand is a goroutine-safe wrapper around *rand.Rand. Chromosomes that
// share a source may be created and mutated from different goroutines.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a LockedRand seeded with seed. A zero seed selects a
// time-based seed.
func NewRand(seed int64) *LockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedRand{r: rand.New(rand.NewSource(seed))}
}

// Intn returns a uniform value in [0, n).
func (l *LockedRand) Intn(n int) int {
	l.mu.Lock()
	v := l.r.Intn(n)
	l.mu.Unlock()
	return v
}

// Float64 returns a uniform value in [0, 1).
func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	v := l.r.Float64()
	l.mu.Unlock()
	return v
}

// Perm returns a random permutation of [0, n).
func (l *LockedRand) Perm(n int) []int {
	l.mu.Lock()
	p := l.r.Perm(n)
	l.mu.Unlock()
	return p
}

var defaultRand = NewRand(0)
