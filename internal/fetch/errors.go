package fetch

import (
	"errors"
	"fmt"
)

// ErrPageAbsent means no candidate extension resolved for a page. It is not fatal.
var ErrPageAbsent = errors.New("fetch: page absent")

// PageError records which page and URL a fetch failure belongs to.
type PageError struct {
	Page   int
	URL    string
	Status int
	Err    error
}

func (e *PageError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("page %d (%s): status %d: %v", e.Page, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// IsAbsent reports whether err only signals a missing page.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrPageAbsent)
}
