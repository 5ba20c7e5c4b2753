package session

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Browser is the handle the automation layer hands back after launch.
type Browser interface {
	Close() error
}

// LaunchFunc starts a browser.
type LaunchFunc func(ctx context.Context) (Browser, error)

// BrowserPool holds at most one active browser. Concurrent callers of Get
// during a launch wait for that launch instead of starting another.
type BrowserPool struct {
	launch LaunchFunc
	group  singleflight.Group

	mu     sync.Mutex
	active Browser
}

// NewBrowserPool returns a pool that launches lazily with launch.
func NewBrowserPool(launch LaunchFunc) *BrowserPool {
	return &BrowserPool{launch: launch}
}

func (p *BrowserPool) current() Browser {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Get returns the active browser, launching one if none is open.
func (p *BrowserPool) Get(ctx context.Context) (Browser, error) {
	if b := p.current(); b != nil {
		return b, nil
	}
	v, err, _ := p.group.Do("launch", func() (any, error) {
		if b := p.current(); b != nil {
			return b, nil
		}
		b, err := p.launch(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "session: launch browser")
		}
		p.mu.Lock()
		p.active = b
		p.mu.Unlock()
		zap.L().Debug("browser launched")
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Browser), nil
}

// Active reports whether a browser is open.
func (p *BrowserPool) Active() bool {
	return p.current() != nil
}

// Close tears down the active browser and resets the handle. Closing an
// empty pool is a no-op.
func (p *BrowserPool) Close() error {
	p.mu.Lock()
	b := p.active
	p.active = nil
	p.mu.Unlock()
	if b == nil {
		return nil
	}
	return eris.Wrap(b.Close(), "session: close browser")
}
