// Package crawl implements the fetch-parse-fan-out pipeline for one product:
// listing retrieval, bounded concurrent detail resolution, and an ordered
// join of the results.
package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vulnfeed/advisory-crawler/internal/advisory"
	"github.com/vulnfeed/advisory-crawler/internal/metrics"
)

// DefaultBaseURL is the advisory site the crawler was written against.
const DefaultBaseURL = "https://threats.kaspersky.com/en"

// Config controls orchestrator behavior.
type Config struct {
	// BaseURL is the advisory site root; listing and detail URLs are built
	// beneath it.
	BaseURL string
	// Concurrency caps the number of in-flight detail fetches.
	Concurrency int
}

// Orchestrator composes the fetcher and parser into a full crawl for one
// product. It does not persist anything.
type Orchestrator struct {
	cfg     Config
	fetcher advisory.Fetcher
	parser  advisory.Parser
	logger  *zap.Logger
}

// New builds an Orchestrator.
func New(cfg Config, fetcher advisory.Fetcher, parser advisory.Parser, logger *zap.Logger) *Orchestrator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:     cfg,
		fetcher: fetcher,
		parser:  parser,
		logger:  logger,
	}
}

// Crawl resolves every vulnerability listed for productName, each populated
// with the CVE references from its detail page. Results come back in listing
// order regardless of fetch completion order. A 404 on the listing yields
// advisory.ErrProductNotFound; any failed detail fetch fails the whole crawl.
func (o *Orchestrator) Crawl(ctx context.Context, productName string) ([]advisory.Vulnerability, error) {
	runID := uuid.NewString()
	logger := o.logger.With(zap.String("run_id", runID), zap.String("product", productName))
	start := time.Now()

	stubs, err := o.fetchListing(ctx, logger, productName)
	if err != nil {
		return nil, err
	}
	if len(stubs) == 0 {
		logger.Info("listing yielded no vulnerabilities")
		return []advisory.Vulnerability{}, nil
	}
	logger.Info("listing parsed", zap.Int("vulnerabilities", len(stubs)))

	// Results are written by listing index so the output order matches the
	// listing even when detail fetches complete out of order.
	results := make([]advisory.Vulnerability, len(stubs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for i, stub := range stubs {
		i, stub := i, stub
		g.Go(func() error {
			vuln, err := o.resolve(gctx, stub)
			if err != nil {
				return err
			}
			results[i] = vuln
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.ObserveCrawlDuration(time.Since(start))
	logger.Info("crawl resolved", zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

func (o *Orchestrator) fetchListing(ctx context.Context, logger *zap.Logger, productName string) ([]advisory.VulnerabilityStub, error) {
	listingURL := o.listingURL(productName)
	page, err := o.fetcher.Get(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	metrics.ObservePage("listing", page.StatusCode)

	switch {
	case page.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("product %q: %w", productName, advisory.ErrProductNotFound)
	case page.StatusCode < 200 || page.StatusCode > 299:
		return nil, fmt.Errorf("listing for %q returned status %d", productName, page.StatusCode)
	}

	stubs, err := o.parser.Listing(page.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	logger.Debug("listing fetched", zap.String("url", listingURL), zap.Int("status", page.StatusCode))
	return stubs, nil
}

// resolve fetches and parses one vulnerability's detail page. Failures are
// tagged with the vendor id so the join point can report which record broke
// the crawl.
func (o *Orchestrator) resolve(ctx context.Context, stub advisory.VulnerabilityStub) (advisory.Vulnerability, error) {
	page, err := o.fetcher.Get(ctx, o.detailURL(stub.VendorID))
	if err != nil {
		return advisory.Vulnerability{}, &advisory.FetchError{VendorID: stub.VendorID, Err: err}
	}
	metrics.ObservePage("detail", page.StatusCode)
	if page.StatusCode < 200 || page.StatusCode > 299 {
		return advisory.Vulnerability{}, &advisory.FetchError{
			VendorID: stub.VendorID,
			Err:      fmt.Errorf("unexpected status %d", page.StatusCode),
		}
	}

	refs, err := o.parser.Detail(page.Body)
	if err != nil {
		return advisory.Vulnerability{}, &advisory.FetchError{VendorID: stub.VendorID, Err: err}
	}
	return advisory.Vulnerability{
		VendorID: stub.VendorID,
		Name:     stub.Name,
		CVEs:     refs,
	}, nil
}

func (o *Orchestrator) listingURL(productName string) string {
	return fmt.Sprintf("%s/product/%s", strings.TrimRight(o.cfg.BaseURL, "/"), url.PathEscape(productName))
}

func (o *Orchestrator) detailURL(vendorID string) string {
	return fmt.Sprintf("%s/vulnerability/%s", strings.TrimRight(o.cfg.BaseURL, "/"), url.PathEscape(vendorID))
}
