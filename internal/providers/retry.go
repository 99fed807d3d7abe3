package providers

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/cost"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/pkg/metrics"
)

// fetchPolicy wraps an adapter with the fetch discipline: a per-call
// deadline, a per-provider rate limiter, and a small bounded retry for
// transient failures. The core never retries beyond this.
type fetchPolicy struct {
	inner   Adapter
	cfg     config.FetchConfig
	limiter *rate.Limiter
	logger  *logger.Logger
}

// WithFetchPolicy applies timeout, rate limiting, and bounded retry to an adapter.
func WithFetchPolicy(a Adapter, cfg config.FetchConfig, log *logger.Logger) Adapter {
	return &fetchPolicy{
		inner:   a,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		logger:  log.With("provider", a.Provider()),
	}
}

func (p *fetchPolicy) Provider() string {
	return p.inner.Provider()
}

func (p *fetchPolicy) Fetch(ctx context.Context, window cost.Window) (*RawBatch, error) {
	attempts := p.cfg.MaxRetries + 1
	delay := p.cfg.RetryDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, apperrors.Timeout(p.inner.Provider(), err)
		}

		fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		batch, err := p.inner.Fetch(fetchCtx, window)
		cancel()

		if err == nil {
			metrics.RecordProviderFetch(p.inner.Provider(), "ok")
			return batch, nil
		}

		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = apperrors.Timeout(p.inner.Provider(), err)
		}
		metrics.RecordProviderFetch(p.inner.Provider(), ErrorKind(err))
		lastErr = err

		if !apperrors.IsTransient(err) || attempt == attempts {
			return nil, err
		}

		p.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
		}).Warnf("transient fetch failure, retrying: %v", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, apperrors.Timeout(p.inner.Provider(), ctx.Err())
		}
		delay *= 2
	}
	return nil, lastErr
}
