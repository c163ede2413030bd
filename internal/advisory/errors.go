package advisory

import (
	"errors"
	"fmt"
)

// ErrProductNotFound reports that the listing endpoint returned 404 for the
// requested product. Terminal for the whole crawl.
var ErrProductNotFound = errors.New("product not found")

// ErrAlreadyExists reports that a vulnerability id is already present in the
// store. The transaction that hit the conflict has been rolled back.
var ErrAlreadyExists = errors.New("vulnerability already exists")

// FetchError reports a failed detail-page fetch, tagged with the vendor
// vulnerability id it was issued for.
type FetchError struct {
	VendorID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch vulnerability %s: %v", e.VendorID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
