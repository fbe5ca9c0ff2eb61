package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Extensions are probed in this order for every page.
var Extensions = []string{"jpg", "png", "gif"}

// Image is a located page together with its already downloaded content.
type Image struct {
	Page int
	Ext  string
	URL  string
	Body []byte
}

// Locator finds which extension a page image uses under a gallery's image pattern.
type Locator struct {
	fetcher    *Fetcher
	pattern    string
	extensions []string
}

func NewLocator(fetcher *Fetcher, pattern string) *Locator {
	return &Locator{
		fetcher:    fetcher,
		pattern:    strings.TrimRight(pattern, "/"),
		extensions: Extensions,
	}
}

// PageURL builds the image URL of a 1-based page for ext.
func (l *Locator) PageURL(page int, ext string) string {
	return fmt.Sprintf("%s/%d.%s", l.pattern, page, ext)
}

// Locate probes each extension in order and returns the first that answers 200.
// When none does, the error wraps ErrPageAbsent. Network failures are returned
// as *PageError and are fatal for the page.
func (l *Locator) Locate(ctx context.Context, page int) (*Image, error) {
	lastStatus := 0
	for _, ext := range l.extensions {
		url := l.PageURL(page, ext)
		resp, err := l.fetcher.Get(ctx, url)
		if err != nil {
			return nil, &PageError{Page: page, URL: url, Err: err}
		}
		if resp.Status == http.StatusOK {
			log.Debug().Str("op", "fetch/locator").Int("page", page).Str("ext", ext).Int("bytes", len(resp.Body)).Msg("page located")
			return &Image{Page: page, Ext: ext, URL: url, Body: resp.Body}, nil
		}
		lastStatus = resp.Status
	}
	return nil, &PageError{Page: page, URL: l.PageURL(page, "*"), Status: lastStatus, Err: ErrPageAbsent}
}
