package grading

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Progressor decides how far a job moves on each tick. A real grading pipeline plugs in here.
// Next is called while the job is locked in the store, so it must return quickly.
// An error fails the job with the error text as reason.
type Progressor interface {
	Next(ctx context.Context, job Job) (float64, error)
}

// ProgressorFunc adapts a function to Progressor.
type ProgressorFunc func(ctx context.Context, job Job) (float64, error)

func (f ProgressorFunc) Next(ctx context.Context, job Job) (float64, error) {
	return f(ctx, job)
}

// RandomProgressor draws increments uniformly from [0, max).
type RandomProgressor struct {
	max float64
	mu  sync.Mutex
	rnd *rand.Rand
}

var _ Progressor = (*RandomProgressor)(nil)

func NewRandomProgressor(max float64, seed ...int64) *RandomProgressor {
	s := time.Now().UnixNano()
	if len(seed) > 0 {
		s = seed[0]
	}
	return &RandomProgressor{max: max, rnd: rand.New(rand.NewSource(s))}
}

func (p *RandomProgressor) Next(context.Context, Job) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.Float64() * p.max, nil
}
