package transition

import (
	"sync"
	"time"

	"github.com/zdunecki/skymesh/pkg/timer"
)

// DefaultRotate is how long each review stays on screen.
const DefaultRotate = 2500 * time.Millisecond

// Review is a customer testimonial shown while the sequence plays.
type Review struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Rating   int    `json:"rating"`
	Text     string `json:"text"`
	When     string `json:"when"`
}

// Carousel cycles an index over n items every interval until cancelled.
type Carousel struct {
	mu        sync.Mutex
	sched     *timer.Scheduler
	n         int
	current   int
	every     time.Duration
	onRotate  func(int)
	cancelled bool
}

// NewCarousel starts rotating. onRotate receives the new index and may be
// nil. A carousel with fewer than two items never rotates.
func NewCarousel(n int, every time.Duration, onRotate func(int)) *Carousel {
	c := &Carousel{sched: timer.New(), n: n, every: every, onRotate: onRotate}
	if n > 1 && every > 0 {
		c.sched.After(every, c.rotate)
	}
	return c
}

func (c *Carousel) rotate() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.current = (c.current + 1) % c.n
	idx := c.current
	c.sched.After(c.every, c.rotate)
	fn := c.onRotate
	c.mu.Unlock()

	if fn != nil {
		fn(idx)
	}
}

func (c *Carousel) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Carousel) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
	c.sched.Stop()
}
