package scraper

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pacer spaces detail fetches by a fixed courtesy delay. The first Wait also
// waits, so every detail fetch is preceded by the delay.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(delay time.Duration) *pacer {
	if delay <= 0 {
		return &pacer{}
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)
	limiter.Allow()
	return &pacer{limiter: limiter}
}

func (p *pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
