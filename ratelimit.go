package localbitcoins

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/thrasher-corp/localbitcoins/request"
)

// LocalBitcoins rate limit consts. The service publishes no hard numbers;
// these are conservative defaults and can be overridden with WithLimiter.
const (
	lbRateInterval    = time.Minute
	lbAuthLimit       = 30
	lbUnauthLimit     = 60
	lbMarketDataLimit = 4
)

// Used to match endpoints to rate limits
const (
	tickerLimiter request.EndpointLimit = iota + 10
	orderBookLimiter
	marketDataLimiter
)

// RateLimit implements the request.Limiter interface
type RateLimit struct {
	Auth       *rate.Limiter
	UnAuth     *rate.Limiter
	MarketData *rate.Limiter
}

// Limit limits the outbound requests
func (r *RateLimit) Limit(ctx context.Context, f request.EndpointLimit) error {
	switch f {
	case request.Auth:
		return r.Auth.Wait(ctx)
	case tickerLimiter, orderBookLimiter, marketDataLimiter:
		return r.MarketData.Wait(ctx)
	default:
		return r.UnAuth.Wait(ctx)
	}
}

// SetRateLimit returns the default rate limit policy for the exchange
func SetRateLimit() *RateLimit {
	return &RateLimit{
		Auth:       request.NewRateLimit(lbRateInterval, lbAuthLimit),
		UnAuth:     request.NewRateLimit(lbRateInterval, lbUnauthLimit),
		MarketData: request.NewRateLimit(lbRateInterval, lbMarketDataLimit),
	}
}
