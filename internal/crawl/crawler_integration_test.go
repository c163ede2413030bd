package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vulnfeed/advisory-crawler/internal/advisory"
	collyfetcher "github.com/vulnfeed/advisory-crawler/internal/fetcher/colly"
	"github.com/vulnfeed/advisory-crawler/internal/parser"
)

// TestCrawlAgainstHTTPServer runs the full fetch-parse-fan-out path with the
// real fetcher and parser against a local advisory site.
func TestCrawlAgainstHTTPServer(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/product/foo-browser", func(w http.ResponseWriter, _ *http.Request) {
		w.Write(listingHTML(
			advisory.VulnerabilityStub{VendorID: "KLA12345", Name: "Foo RCE"},
			advisory.VulnerabilityStub{VendorID: "KLA12346", Name: "Foo XSS"},
		))
	})
	mux.HandleFunc("/vulnerability/KLA12345", func(w http.ResponseWriter, _ *http.Request) {
		// Finishes after KLA12346 so completion order differs from listing order.
		time.Sleep(50 * time.Millisecond)
		w.Write(detailHTML("CVE-2020-0001"))
	})
	mux.HandleFunc("/vulnerability/KLA12346", func(w http.ResponseWriter, _ *http.Request) {
		w.Write(detailHTML("CVE-2020-0002", "CVE-2020-0003"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := collyfetcher.New(collyfetcher.Config{UserAgent: "test-agent", Timeout: 5 * time.Second})
	orch := New(Config{BaseURL: server.URL, Concurrency: 4}, fetcher, parser.New(zap.NewNop()), zap.NewNop())

	got, err := orch.Crawl(context.Background(), "foo-browser")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "KLA12345", got[0].VendorID)
	require.Len(t, got[0].CVEs, 1)
	assert.Equal(t, "CVE-2020-0001", got[0].CVEs[0].ID)

	assert.Equal(t, "KLA12346", got[1].VendorID)
	require.Len(t, got[1].CVEs, 2)
}

func TestCrawlAgainstHTTPServerNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second})
	orch := New(Config{BaseURL: server.URL, Concurrency: 2}, fetcher, parser.New(zap.NewNop()), zap.NewNop())

	_, err := orch.Crawl(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, advisory.ErrProductNotFound)
	assert.Contains(t, err.Error(), fmt.Sprintf("product %q", "nope"))
}
