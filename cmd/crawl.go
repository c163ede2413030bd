package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vulnfeed/advisory-crawler/internal/advisory"
	"github.com/vulnfeed/advisory-crawler/internal/config"
	"github.com/vulnfeed/advisory-crawler/internal/crawl"
	collyfetcher "github.com/vulnfeed/advisory-crawler/internal/fetcher/colly"
	"github.com/vulnfeed/advisory-crawler/internal/logging"
	"github.com/vulnfeed/advisory-crawler/internal/metrics"
	"github.com/vulnfeed/advisory-crawler/internal/parser"
	"github.com/vulnfeed/advisory-crawler/internal/storage/sqlite"
)

// newCrawlCmd creates and configures the 'crawl' subcommand. It runs the full
// pipeline for one product: listing fetch, concurrent detail resolution, and
// sequential persistence.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <product>",
		Short: "Fetches and stores all vulnerabilities listed for a product",
		Long: `Fetches the advisory site's vulnerability listing for the named product,
resolves every vulnerability's CVE references concurrently, and persists the
result into the embedded database.`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCommand,
	}
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, args []string) error {
	productName := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DB.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("close store failed", zap.Error(cerr))
		}
	}()

	if err := store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Site.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})
	orchestrator := crawl.New(crawl.Config{
		BaseURL:     cfg.Site.BaseURL,
		Concurrency: cfg.Crawler.Concurrency,
	}, fetcher, parser.New(logger), logger)

	vulnerabilities, err := orchestrator.Crawl(ctx, productName)
	if err != nil {
		if errors.Is(err, advisory.ErrProductNotFound) {
			return fmt.Errorf("product %q not found", productName)
		}
		return fmt.Errorf("crawl %q: %w", productName, err)
	}

	return persistAll(ctx, cmd, store, vulnerabilities, productName)
}

// persistAll writes the resolved vulnerabilities one transaction at a time.
// A duplicate vulnerability id is a handled outcome: the run reports it and
// exits cleanly without storing anything further.
func persistAll(
	ctx context.Context,
	cmd *cobra.Command,
	store advisory.Store,
	vulnerabilities []advisory.Vulnerability,
	productName string,
) error {
	for _, vuln := range vulnerabilities {
		if err := store.Persist(ctx, vuln, productName); err != nil {
			if errors.Is(err, advisory.ErrAlreadyExists) {
				fmt.Fprintf(cmd.OutOrStdout(), "Vulnerability %q (%s) already exists\n", vuln.VendorID, vuln.Name)
				return nil
			}
			return fmt.Errorf("persist vulnerability %s: %w", vuln.VendorID, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d vulnerabilities for product %q\n", len(vulnerabilities), productName)
	return nil
}
