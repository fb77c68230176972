package membership

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// RNG is the randomness source injected into the engine, so joins and
// shuffles are deterministic in tests (spec.md §9: "RNG injection:
// mandatory to make joins/shuffles deterministic in tests").
type RNG interface {
	// Intn returns a pseudo-random int in [0,n).
	Intn(n int) int
	// Shuffle randomizes the order of a slice of length n via swap.
	Shuffle(n int, swap func(i, j int))
}

// defaultRNG wraps math/rand.Rand, seeded from crypto/rand unless a caller
// overrides it (spec.md §6: "seeded from the system entropy unless
// overridden for tests").
type defaultRNG struct {
	r *mrand.Rand
}

// NewSystemRNG returns an RNG seeded from the system entropy source.
func NewSystemRNG() RNG {
	var seed int64
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = 1
	}
	return &defaultRNG{r: mrand.New(mrand.NewSource(seed))}
}

// NewSeededRNG returns a deterministic RNG for tests.
func NewSeededRNG(seed int64) RNG {
	return &defaultRNG{r: mrand.New(mrand.NewSource(seed))}
}

func (d *defaultRNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return d.r.Intn(n)
}

func (d *defaultRNG) Shuffle(n int, swap func(i, j int)) {
	d.r.Shuffle(n, swap)
}

// RandomInitialSeqno draws a non-zero random starting sequence number so
// a restarted node with a reused NodeId is unlikely to collide with its
// own past MessageIds (spec.md §9 open question, resolved in DESIGN.md).
func RandomInitialSeqno(rng RNG) uint64 {
	hi := uint64(rng.Intn(1<<31)) << 32
	lo := uint64(rng.Intn(1 << 31))
	v := hi | lo
	if v == 0 {
		v = 1
	}
	return v
}
