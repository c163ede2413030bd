package advisory

// VulnerabilityStub is a single listing-page row: the vendor's own identifier
// for a vulnerability record plus its display name. The CVE list is resolved
// later from the detail page.
type VulnerabilityStub struct {
	VendorID string
	Name     string
}

// CVERef is a single CVE anchor found on a vulnerability detail page.
// Duplicates within one page are preserved as parsed; deduplication happens
// at persistence time.
type CVERef struct {
	ID   string
	Link string
}

// Vulnerability is a fully resolved vendor vulnerability record with the CVE
// references extracted from its detail page.
type Vulnerability struct {
	VendorID string
	Name     string
	CVEs     []CVERef
}

// Product is a persisted product row. ID is the surrogate key assigned by the
// store on first sighting; identity is by name.
type Product struct {
	ID   int64
	Name string
}

// Page is a fetched page body plus the HTTP status it was served with. The
// pipeline does not interpret anything else about the response.
type Page struct {
	StatusCode int
	Body       []byte
}
