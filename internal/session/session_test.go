package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjeldshjelp/debt-cli/internal/config"
	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/resilience"
)

type fakeBrowser struct {
	closed atomic.Int32
}

func (b *fakeBrowser) Close() error {
	b.closed.Add(1)
	return nil
}

func countingLaunch(launches *atomic.Int32, delay time.Duration) LaunchFunc {
	return func(ctx context.Context) (Browser, error) {
		launches.Add(1)
		time.Sleep(delay)
		return &fakeBrowser{}, nil
	}
}

// blockUntil returns a visit that ignores its context and only returns
// once the test has finished.
func blockUntil(t *testing.T) SiteFunc {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	return func(context.Context, Session, Browser) (model.Outcome, error) {
		<-release
		return model.OutcomeDebtFound, nil
	}
}

func TestNew(t *testing.T) {
	s, err := New("p1", " 01017012345 ")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.RunID)
	assert.Equal(t, "01017012345", s.NationalID)
	assert.Equal(t, "Intrum", s.ForSite("Intrum").Site)
	assert.Empty(t, s.Site)

	_, err = New("p1", "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Fødselsnummer må være nøyaktig 11 siffer")
}

func TestBrowserPool_SingleLaunch(t *testing.T) {
	var launches atomic.Int32
	pool := NewBrowserPool(countingLaunch(&launches, 20*time.Millisecond))

	var wg sync.WaitGroup
	got := make([]Browser, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := pool.Get(context.Background())
			assert.NoError(t, err)
			got[i] = b
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), launches.Load())
	for _, b := range got {
		assert.Same(t, got[0], b)
	}
	assert.True(t, pool.Active())
}

func TestBrowserPool_CloseResets(t *testing.T) {
	var launches atomic.Int32
	pool := NewBrowserPool(countingLaunch(&launches, 0))

	first, err := pool.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Close())
	assert.False(t, pool.Active())
	assert.Equal(t, int32(1), first.(*fakeBrowser).closed.Load())
	require.NoError(t, pool.Close())

	second, err := pool.Get(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), launches.Load())
}

func TestBrowserPool_LaunchError(t *testing.T) {
	pool := NewBrowserPool(func(context.Context) (Browser, error) {
		return nil, errors.New("no chrome")
	})
	_, err := pool.Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chrome")
	assert.False(t, pool.Active())
}

func TestRunSite_Completes(t *testing.T) {
	o, err := RunSite(context.Background(), Session{Site: "SI"}, nil, time.Second,
		func(context.Context, Session, Browser) (model.Outcome, error) {
			return model.OutcomeDebtFound, nil
		})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeDebtFound, o)
}

func TestRunSite_Stall(t *testing.T) {
	var cancelled atomic.Bool
	o, err := RunSite(context.Background(), Session{Site: "Intrum"}, nil, 20*time.Millisecond,
		func(ctx context.Context, _ Session, _ Browser) (model.Outcome, error) {
			<-ctx.Done()
			cancelled.Store(true)
			return model.OutcomeDebtFound, nil
		})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeHandlerTimeout, o)
	assert.Eventually(t, cancelled.Load, time.Second, 5*time.Millisecond)
}

func TestRunSite_HandlerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	o, err := RunSite(ctx, Session{Site: "SI"}, nil, 0, blockUntil(t))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeHandlerTimeout, o)
}

func TestRunSite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, err := RunSite(ctx, Session{Site: "SI"}, nil, time.Second, blockUntil(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, model.OutcomeUnexpectedState, o)
}

func newTestRunner(launches *atomic.Int32) *Runner {
	r := NewRunner(config.SessionConfig{
		StallTimeoutMs: 1000,
		SiteTimeoutsMs: map[string]int{"slow": 20},
		RetryAttempts:  3,
	}, NewBrowserPool(countingLaunch(launches, 0)))
	r.Retry.InitialBackoff = time.Millisecond
	r.Retry.MaxBackoff = time.Millisecond
	r.Retry.JitterFraction = 0
	return r
}

func TestRunner_Run(t *testing.T) {
	var launches atomic.Int32
	r := newTestRunner(&launches)

	var order []string
	visit := func(o model.Outcome, err error) SiteFunc {
		return func(ctx context.Context, s Session, b Browser) (model.Outcome, error) {
			order = append(order, s.Site)
			assert.NotNil(t, b)
			return o, err
		}
	}
	flaky := 0

	s := Session{RunID: uuid.New(), PersonID: "p1"}
	results, err := r.Run(context.Background(), s, []Site{
		{Name: "SI", Visit: visit(model.OutcomeDebtFound, nil)},
		{Name: "Intrum", Visit: func(ctx context.Context, s Session, b Browser) (model.Outcome, error) {
			order = append(order, s.Site)
			flaky++
			if flaky == 1 {
				return model.OutcomeUnexpectedState, resilience.NewTransientError(errors.New("navigation timeout"), 0)
			}
			return model.OutcomeNoDebtFound, nil
		}},
		{Name: "slow", Visit: func(ctx context.Context, _ Session, _ Browser) (model.Outcome, error) {
			<-ctx.Done()
			return model.OutcomeDebtFound, nil
		}},
		{Name: "Zolva AS", Visit: visit(model.OutcomeTooManyFailedAttempts, nil)},
		{Name: "PRA Group", Visit: visit(model.OutcomeUnexpectedState, errors.New("selector missing"))},
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, []string{"SI", "Intrum", "Intrum", "Zolva AS", "PRA Group"}, order)

	assert.Equal(t, model.OutcomeDebtFound, results[0].Outcome)
	assert.Equal(t, 1, results[0].Attempts)

	assert.Equal(t, model.OutcomeNoDebtFound, results[1].Outcome)
	assert.Equal(t, 2, results[1].Attempts)
	assert.NoError(t, results[1].Err)

	assert.Equal(t, model.OutcomeHandlerTimeout, results[2].Outcome)
	assert.Equal(t, model.OutcomeTooManyFailedAttempts, results[3].Outcome)

	assert.Equal(t, model.OutcomeUnexpectedState, results[4].Outcome)
	assert.EqualError(t, results[4].Err, "selector missing")
	assert.Equal(t, 1, results[4].Attempts)

	assert.False(t, r.Pool.Active())
	assert.Equal(t, int32(6), launches.Load())
}

func TestRunner_Cancelled(t *testing.T) {
	var launches atomic.Int32
	r := newTestRunner(&launches)
	ctx, cancel := context.WithCancel(context.Background())

	results, err := r.Run(ctx, Session{PersonID: "p1"}, []Site{
		{Name: "SI", Visit: func(context.Context, Session, Browser) (model.Outcome, error) {
			cancel()
			return model.OutcomeDebtFound, nil
		}},
		{Name: "Intrum", Visit: func(context.Context, Session, Browser) (model.Outcome, error) {
			t.Fatal("visited after cancel")
			return model.OutcomeDebtFound, nil
		}},
	})
	require.Error(t, err)
	assert.Len(t, results, 1)
}
