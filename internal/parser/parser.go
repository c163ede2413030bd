// Package parser extracts vulnerability and CVE records from advisory-site
// markup using goquery selectors.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/vulnfeed/advisory-crawler/internal/advisory"
)

// Selectors matching the advisory site's markup. Listing rows carry the
// vendor id and name as the first two anchors; CVE references on detail
// pages are tagged anchors.
const (
	listingRowSelector = ".line_info.line_info_vendor.line_list2"
	cveAnchorSelector  = "a.gtm_vulnerabilities_cve"
)

// Service implements advisory.Parser.
type Service struct {
	logger *zap.Logger
}

// New builds a Service. A nil logger falls back to zap's no-op logger.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// Listing extracts one VulnerabilityStub per listing row, preserving input
// order. Rows with a blank vendor id or name are skipped at this boundary so
// blanks never reach the store. No matching rows is an empty result, not an
// error.
func (s *Service) Listing(html []byte) ([]advisory.VulnerabilityStub, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing markup: %w", err)
	}

	stubs := []advisory.VulnerabilityStub{}
	doc.Find(listingRowSelector).Each(func(_ int, row *goquery.Selection) {
		anchors := row.Find("a[href]")
		if anchors.Length() < 2 {
			s.logger.Debug("skipping listing row without id/name anchors")
			return
		}
		stub := advisory.VulnerabilityStub{
			VendorID: strings.TrimSpace(anchors.Eq(0).Text()),
			Name:     strings.TrimSpace(anchors.Eq(1).Text()),
		}
		if stub.VendorID == "" || stub.Name == "" {
			s.logger.Debug("skipping listing row with blank id or name")
			return
		}
		stubs = append(stubs, stub)
	})
	return stubs, nil
}

// Detail extracts every CVE reference on a detail page. Duplicates are
// preserved as-is; the store deduplicates on write. Anchors with blank text
// are skipped.
func (s *Service) Detail(html []byte) ([]advisory.CVERef, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse detail markup: %w", err)
	}

	refs := []advisory.CVERef{}
	doc.Find(cveAnchorSelector).Each(func(_ int, anchor *goquery.Selection) {
		id := strings.TrimSpace(anchor.Text())
		if id == "" {
			s.logger.Debug("skipping CVE anchor with blank id")
			return
		}
		link, _ := anchor.Attr("href")
		refs = append(refs, advisory.CVERef{ID: id, Link: link})
	})
	return refs, nil
}
