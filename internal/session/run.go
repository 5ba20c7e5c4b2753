package session

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gjeldshjelp/debt-cli/internal/config"
	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/resilience"
)

// SiteFunc performs one site visit: login, extraction, persistence. It must
// return when ctx is done.
type SiteFunc func(ctx context.Context, s Session, b Browser) (model.Outcome, error)

// Site pairs a site name with its visit.
type Site struct {
	Name  string
	Visit SiteFunc
}

// Result is the outcome of one site visit.
type Result struct {
	Site     string        `json:"site"`
	Outcome  model.Outcome `json:"outcome"`
	Err      error         `json:"-"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`
}

type completion struct {
	outcome model.Outcome
	err     error
}

// RunSite races fn against a stall timer. Whichever finishes first decides
// the outcome; a stall or an expired ctx deadline yields HandlerTimeout.
// A stall of zero disables the timer.
func RunSite(ctx context.Context, s Session, b Browser, stall time.Duration, fn SiteFunc) (model.Outcome, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		o, err := fn(runCtx, s, b)
		done <- completion{outcome: o, err: err}
	}()

	var stalled <-chan time.Time
	if stall > 0 {
		timer := time.NewTimer(stall)
		defer timer.Stop()
		stalled = timer.C
	}

	select {
	case c := <-done:
		return c.outcome, c.err
	case <-stalled:
		zap.L().Warn("site stalled",
			zap.String("site", s.Site),
			zap.String("person_id", s.PersonID),
			zap.Duration("stall_timeout", stall),
		)
		return model.OutcomeHandlerTimeout, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			zap.L().Warn("site handler timed out",
				zap.String("site", s.Site),
				zap.String("person_id", s.PersonID),
			)
			return model.OutcomeHandlerTimeout, nil
		}
		return model.OutcomeUnexpectedState, eris.Wrap(ctx.Err(), "session: run site")
	}
}

// Runner visits sites sequentially with a pause between visits. The browser
// is torn down after every visit.
type Runner struct {
	Pool   *BrowserPool
	Config config.SessionConfig
	Retry  resilience.RetryConfig

	limiter *rate.Limiter
}

// NewRunner builds a runner from session config.
func NewRunner(cfg config.SessionConfig, pool *BrowserPool) *Runner {
	limit := rate.Inf
	if cfg.SiteDelayMs > 0 {
		limit = rate.Every(time.Duration(cfg.SiteDelayMs) * time.Millisecond)
	}
	return &Runner{
		Pool:    pool,
		Config:  cfg,
		Retry:   resilience.SiteRetryConfig(cfg.RetryAttempts),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Run visits each site in order. It stops early only when ctx is cancelled;
// per-site failures are reported in the results.
func (r *Runner) Run(ctx context.Context, s Session, sites []Site) ([]Result, error) {
	results := make([]Result, 0, len(sites))
	for _, site := range sites {
		if err := r.limiter.Wait(ctx); err != nil {
			return results, eris.Wrap(err, "session: wait for next site")
		}
		res := r.visit(ctx, s.ForSite(site.Name), site.Visit)
		results = append(results, res)
		zap.L().Info("site visited",
			zap.String("site", res.Site),
			zap.String("person_id", s.PersonID),
			zap.String("run_id", s.RunID.String()),
			zap.Stringer("outcome", res.Outcome),
			zap.String("semantic", string(res.Outcome.Semantic())),
			zap.Int("attempts", res.Attempts),
			zap.Duration("elapsed", res.Elapsed),
			zap.Error(res.Err),
		)
		if ctx.Err() != nil {
			return results, eris.Wrap(ctx.Err(), "session: run")
		}
	}
	return results, nil
}

func (r *Runner) visit(ctx context.Context, s Session, fn SiteFunc) Result {
	start := time.Now()
	res := Result{Site: s.Site}

	retry := r.Retry
	retry.OnRetry = resilience.RetryLogger(s.Site, "visit")

	outcome, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (model.Outcome, error) {
		res.Attempts++
		defer func() {
			if err := r.Pool.Close(); err != nil {
				zap.L().Warn("browser close failed", zap.String("site", s.Site), zap.Error(err))
			}
		}()

		b, err := r.Pool.Get(ctx)
		if err != nil {
			return model.OutcomeUnexpectedState, err
		}
		hctx := ctx
		if r.Config.HandlerTimeoutMs > 0 {
			var cancel context.CancelFunc
			hctx, cancel = context.WithTimeout(ctx, time.Duration(r.Config.HandlerTimeoutMs)*time.Millisecond)
			defer cancel()
		}
		return RunSite(hctx, s, b, r.Config.StallTimeout(s.Site), fn)
	})

	res.Outcome = outcome
	res.Err = err
	res.Elapsed = time.Since(start)
	return res
}
