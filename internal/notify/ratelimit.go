package notify

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Notifier with a token-bucket limiter so bursts of
// lifecycle changes cannot flood the delivery backend.
type RateLimited struct {
	next    Notifier
	limiter *rate.Limiter
}

// NewRateLimited creates the decorator. perSecond tokens refill the bucket,
// burst caps it.
func NewRateLimited(next Notifier, perSecond float64, burst int) *RateLimited {
	if perSecond <= 0 {
		perSecond = 20
	}
	if burst <= 0 {
		burst = 30
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Send waits for a token, then delegates. Context cancellation while waiting
// is returned as the send error.
func (r *RateLimited) Send(ctx context.Context, kind Kind, recipientEmail string, data TemplateData) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.next.Send(ctx, kind, recipientEmail, data)
}
