package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/roxdl/internal/utils"
)

var (
	ErrInvalidURL = errors.New("gallery: invalid gallery URL")
	ErrNotFound   = errors.New("gallery: gallery not found")
	ErrParse      = errors.New("gallery: unexpected landing page layout")
)

// Resolver fetches a gallery landing page and turns it into a Descriptor.
type Resolver struct {
	client utils.HTTPDoer
	base   string
}

func NewResolver(client utils.HTTPDoer, base string) *Resolver {
	return &Resolver{client: client, base: base}
}

// ValidateURL checks that link belongs to the gallery site and returns the gallery ID.
func ValidateURL(base, link string) (string, error) {
	if !strings.HasPrefix(link, base) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, link)
	}
	if _, err := url.Parse(link); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	id := ""
	if rest := strings.Split(strings.TrimPrefix(link, base), "/"); len(rest) > 0 {
		id = rest[0]
	}
	if id == "" {
		return "", fmt.Errorf("%w: no gallery id in %s", ErrInvalidURL, link)
	}
	return id, nil
}

func galleryID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	id := ""
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			id = p
		}
	}
	return id
}

func (r *Resolver) Resolve(ctx context.Context, link string) (*Descriptor, error) {
	id, err := ValidateURL(r.base, link)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching gallery page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, link)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gallery page returned status %d", resp.StatusCode)
	}
	desc, err := Parse(resp.Body, link)
	if err != nil {
		return nil, err
	}
	desc.ID = id
	log.Debug().Str("op", "gallery/resolver").Str("id", id).Int("pages", desc.PageCount).Int("tags", desc.Tags.Len()).Msgf("resolved gallery %q", desc.Name)
	return desc, nil
}

// Parse extracts a Descriptor from a landing page body. The gallery ID is
// derived from link; relative image sources are resolved against it.
func Parse(body io.Reader, link string) (*Descriptor, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	desc := &Descriptor{
		ID:   galleryID(link),
		URL:  link,
		Name: strings.TrimSpace(doc.Find("h1").First().Text()),
		Tags: NewTags(),
	}

	doc.Find("span.item_name").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Parent().Attr("href")
		if !ok {
			return
		}
		// nested count badges are not part of the tag value
		value := strings.TrimSpace(s.Clone().Children().Remove().End().Text())
		if value == "" {
			return
		}
		desc.Tags.Add(href, value)
	})

	pagesText := strings.Fields(doc.Find("li.pages").First().Text())
	if len(pagesText) == 0 {
		return nil, fmt.Errorf("%w: page count not found", ErrParse)
	}
	count, err := strconv.Atoi(pagesText[0])
	if err != nil {
		return nil, fmt.Errorf("%w: page count %q: %v", ErrParse, pagesText[0], err)
	}
	desc.PageCount = count

	src, ok := doc.Find("img.lazy.preloader").First().Attr("data-src")
	if !ok || src == "" {
		return nil, fmt.Errorf("%w: first image not found", ErrParse)
	}
	pattern, err := imagePattern(link, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	desc.ImageURLPattern = pattern
	return desc, nil
}

// imagePattern drops the file name of the first image URL, keeping the
// directory every page image lives under.
func imagePattern(pageURL, src string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", err
	}
	abs := base.ResolveReference(ref).String()
	idx := strings.LastIndex(abs, "/")
	if idx < 0 {
		return "", fmt.Errorf("image source %q has no path", src)
	}
	return abs[:idx+1], nil
}
