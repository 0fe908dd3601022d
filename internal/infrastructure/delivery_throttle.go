package infrastructure

import (
	"context"
	"sync"
	"time"

	"promptbot/internal/entities"
	"promptbot/internal/interfaces"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DeliveryThrottle wraps a DeliveryClient with a token bucket per recipient.
// Send waits for a token instead of dropping the reply.
type DeliveryThrottle struct {
	next     interfaces.DeliveryClient
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	mu       sync.Mutex
	limiters map[string]*throttleEntry
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewDeliveryThrottle allows perSecond messages per recipient with the given burst.
func NewDeliveryThrottle(next interfaces.DeliveryClient, perSecond float64, burst int) *DeliveryThrottle {
	if burst < 1 {
		burst = 1
	}
	return &DeliveryThrottle{
		next:     next,
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		limiters: make(map[string]*throttleEntry),
	}
}

func (t *DeliveryThrottle) Send(ctx context.Context, msg entities.OutgoingMessage) error {
	limiter := t.limiterFor(msg.To)
	if limiter.Tokens() < 1 {
		log.Debug().Str("to", msg.To).Msg("delivery throttled, waiting for token")
	}
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.Send(ctx, msg)
}

func (t *DeliveryThrottle) limiterFor(recipient string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	entry, exists := t.limiters[recipient]
	if !exists {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[recipient] = entry
	}
	entry.lastUsed = now
	return entry.limiter
}

// Sweep drops limiters idle for longer than the idle TTL.
func (t *DeliveryThrottle) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	removed := 0
	for recipient, entry := range t.limiters {
		if now.Sub(entry.lastUsed) > t.idleTTL {
			delete(t.limiters, recipient)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (t *DeliveryThrottle) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("swept idle delivery limiters")
			}
		}
	}
}
