package checker

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DelayPolicy yields the pause a worker takes after a successful probe
type DelayPolicy interface {
	Next() time.Duration
}

// NoDelay never pauses
type NoDelay struct{}

func (NoDelay) Next() time.Duration { return 0 }

// FixedDelay always pauses for the same duration
type FixedDelay time.Duration

func (d FixedDelay) Next() time.Duration { return time.Duration(d) }

// UniformDelay draws uniformly from [min, max]. Safe for concurrent use.
type UniformDelay struct {
	min time.Duration
	max time.Duration
	mu  sync.Mutex
	rng *rand.Rand
}

// NewUniformDelay uses rng as its random source; a nil rng gets a time seeded one
func NewUniformDelay(min, max time.Duration, rng *rand.Rand) *UniformDelay {
	if max < min {
		min, max = max, min
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &UniformDelay{min: min, max: max, rng: rng}
}

func (d *UniformDelay) Next() time.Duration {
	if d.max <= d.min {
		return d.min
	}

	d.mu.Lock()
	n := d.rng.Int63n(int64(d.max-d.min) + 1)
	d.mu.Unlock()

	return d.min + time.Duration(n)
}

// Sleep blocks for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
