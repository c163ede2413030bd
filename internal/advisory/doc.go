// Package advisory defines the core types and interfaces shared across the
// crawl pipeline: the vulnerability/CVE records extracted from the advisory
// site, the error taxonomy, and the contracts between fetcher, parser,
// orchestrator, and store.
package advisory
