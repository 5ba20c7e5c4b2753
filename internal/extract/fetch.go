package extract

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gjeldshjelp/debt-cli/internal/resilience"
)

// HTTPDetailOptions configures HTTPDetailFetcher.
type HTTPDetailOptions struct {
	// URLTemplate is the detail page URL with {case} where the case number goes.
	URLTemplate string
	Header      http.Header
	Timeout     time.Duration
	// RequestsPerSecond paces detail requests. Default: 1.
	RequestsPerSecond float64
	// MaxBytes caps a detail page body. Default: 8 MiB.
	MaxBytes int64
	Retry    resilience.RetryConfig
}

const defaultDetailMaxBytes = 8 << 20

// HTTPDetailFetcher loads case detail pages over HTTP, one request at a
// time, retrying 429 and 5xx responses.
type HTTPDetailFetcher struct {
	client  *http.Client
	opts    HTTPDetailOptions
	limiter *rate.Limiter
}

// NewHTTPDetailFetcher creates a fetcher. The template must contain {case}.
func NewHTTPDetailFetcher(opts HTTPDetailOptions) (*HTTPDetailFetcher, error) {
	if !strings.Contains(opts.URLTemplate, "{case}") {
		return nil, eris.Errorf("extract: detail url %q has no {case} placeholder", opts.URLTemplate)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultDetailMaxBytes
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	return &HTTPDetailFetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}, nil
}

// FetchDetail returns the body of the case's detail page.
func (f *HTTPDetailFetcher) FetchDetail(ctx context.Context, caseNumber string) (string, error) {
	target := strings.ReplaceAll(f.opts.URLTemplate, "{case}", url.PathEscape(caseNumber))

	retry := f.opts.Retry
	retry.OnRetry = func(attempt int, err error) {
		zap.L().Warn("extract: detail fetch failed, retrying",
			zap.String("url", target),
			zap.String("case_id", caseNumber),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "extract: rate limiter wait")
		}
		return f.get(ctx, target)
	})
}

func (f *HTTPDetailFetcher) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", eris.Wrap(err, "extract: create detail request")
	}
	for k, vs := range f.opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "extract: get %s", target)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", resilience.ClassifyResponse(resp, eris.Errorf("extract: http %d from %s", resp.StatusCode, target))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return "", eris.Wrapf(err, "extract: read %s", target)
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return "", eris.Errorf("extract: detail page %s exceeds %d bytes", target, f.opts.MaxBytes)
	}
	return string(body), nil
}
