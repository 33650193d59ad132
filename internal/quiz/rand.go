package quiz

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the random source the scheduler draws from.
// *rand.Rand satisfies it; tests inject seeded or scripted sources.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// lockedRand serialises access to a *rand.Rand shared by concurrent sessions
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedRand returns a goroutine-safe Rand seeded with seed.
// A zero seed uses the current time.
func NewLockedRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(n, swap)
}
