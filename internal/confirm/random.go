package confirm

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"simpleboard/internal/model"
)

// RandomConfirmer accepts a move with probability AcceptRate after an
// optional delay. It stands in for a flaky remote check in demos.
type RandomConfirmer struct {
	acceptRate float64
	delay      time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomConfirmer(acceptRate float64, delay time.Duration, seed int64) *RandomConfirmer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomConfirmer{
		acceptRate: acceptRate,
		delay:      delay,
		rnd:        rand.New(rand.NewSource(seed)),
	}
}

func (c *RandomConfirmer) ConfirmMove(ctx context.Context, _ model.MoveRequest) (bool, error) {
	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	c.mu.Lock()
	roll := c.rnd.Float64()
	c.mu.Unlock()
	return roll < c.acceptRate, nil
}
