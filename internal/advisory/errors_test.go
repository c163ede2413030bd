package advisory

import (
	"errors"
	"fmt"
	"testing"
)

func TestFetchErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := &FetchError{VendorID: "KLA12345", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("FetchError does not unwrap to its cause")
	}
	if got := err.Error(); got != "fetch vulnerability KLA12345: connection reset" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := fmt.Errorf("crawl: %w", err)
	var fetchErr *FetchError
	if !errors.As(wrapped, &fetchErr) {
		t.Fatal("errors.As failed to recover *FetchError")
	}
	if fetchErr.VendorID != "KLA12345" {
		t.Errorf("VendorID = %q", fetchErr.VendorID)
	}
}
