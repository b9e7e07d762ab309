package request

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Const here define individual functionality sub types for rate limiting
const (
	Unset EndpointLimit = iota
	Auth
	UnAuth
)

// EndpointLimit defines individual endpoint rate limits that services map to
// their limiter buckets
type EndpointLimit int

// Limiter interface groups rate limit functionality so services can shell
// out sub rates per endpoint group
type Limiter interface {
	Limit(context.Context, EndpointLimit) error
}

// BasicLimit denotes a basic rate limit that implements the Limiter
// interface; it applies one global rate to every endpoint
type BasicLimit struct {
	r *rate.Limiter
}

// Limit executes the single rate limit set by NewBasicRateLimit
func (b *BasicLimit) Limit(ctx context.Context, _ EndpointLimit) error {
	return b.r.Wait(ctx)
}

// NewRateLimit creates a new rate limiter based of time interval and how many
// actions allowed, broken down to an actions-per-second basis. Burst rate is
// kept as one as this is not supported for out-bound requests.
func NewRateLimit(interval time.Duration, actions int) *rate.Limiter {
	if actions <= 0 || interval <= 0 {
		// Returns an un-restricted rate limiter
		return rate.NewLimiter(rate.Inf, 1)
	}

	i := 1 / interval.Seconds()
	rps := i * float64(actions)
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// NewBasicRateLimit returns an object that implements the Limiter interface
// for a single global rate
func NewBasicRateLimit(interval time.Duration, actions int) Limiter {
	return &BasicLimit{NewRateLimit(interval, actions)}
}
