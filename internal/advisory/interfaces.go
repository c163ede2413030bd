package advisory

import "context"

// Fetcher retrieves a single page and surfaces its status code and body.
// Non-2xx statuses are returned as a Page, not an error; transport failures
// are errors.
type Fetcher interface {
	Get(ctx context.Context, url string) (Page, error)
}

// Parser turns raw advisory-site markup into structured records. Pure
// functions over the input, no I/O.
type Parser interface {
	Listing(html []byte) ([]VulnerabilityStub, error)
	Detail(html []byte) ([]CVERef, error)
}

// Store owns schema creation and transactional persistence of the
// product -> vulnerability -> CVE graph.
type Store interface {
	CreateSchema(ctx context.Context) error
	Persist(ctx context.Context, vuln Vulnerability, productName string) error
	Close() error
}
