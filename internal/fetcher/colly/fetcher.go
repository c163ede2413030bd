// Package collyfetcher implements advisory.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/vulnfeed/advisory-crawler/internal/advisory"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements advisory.Fetcher using the Colly collector. The pooled
// transport is shared across all clones, so concurrent fetches reuse
// connections.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(
		// The collector stays in its default synchronous mode; the
		// colly.Async option in v2.1.0 sets async regardless of its
		// argument, so it must not be passed at all.
		// Non-2xx pages still carry a meaningful status and body; the
		// orchestrator gives 404 on the listing its own treatment.
		colly.ParseHTTPErrorResponse(),
	)
	c.IgnoreRobotsTxt = true

	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Get executes a single HTTP GET and returns the status code and body.
// Transport-level failures are errors; HTTP error statuses are not.
func (f *Fetcher) Get(ctx context.Context, url string) (advisory.Page, error) {
	var (
		result   advisory.Page
		fetchErr error
	)

	collector := f.buildCollector(&result, &fetchErr)
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return advisory.Page{}, err
	}
	return result, nil
}

func (f *Fetcher) buildCollector(result *advisory.Page, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.ParseHTTPErrorResponse = true
	collector.IgnoreRobotsTxt = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(f.transport)

	collector.OnResponse(func(r *colly.Response) {
		*result = advisory.Page{
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		// ParseHTTPErrorResponse routes HTTP error statuses through
		// OnResponse; what lands here is a transport failure.
		*fetchErr = err
	})
	return collector
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("fetch %s: %w", url, *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
