package game

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

type randomizer struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newRandomizer(r *rand.Rand) *randomizer {
	if r == nil {
		r = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return &randomizer{r: r}
}

func (rz *randomizer) digits(n int) string {
	rz.mu.Lock()
	defer rz.mu.Unlock()

	var b strings.Builder
	for range n {
		b.WriteByte(byte('0' + rz.r.IntN(10)))
	}
	return b.String()
}

func (rz *randomizer) shuffle(n int, swap func(i, j int)) {
	rz.mu.Lock()
	defer rz.mu.Unlock()
	rz.r.Shuffle(n, swap)
}
