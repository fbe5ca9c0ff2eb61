package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tanq16/roxdl/internal/utils"
)

// Response is a fully read GET response.
type Response struct {
	Status int
	Body   []byte
}

// Fetcher issues single GET requests without retrying.
type Fetcher struct {
	client utils.HTTPDoer
}

func NewFetcher(client utils.HTTPDoer) *Fetcher {
	return &Fetcher{client: client}
}

// Get performs one GET and reads the body only for 200 responses. Transport and
// read failures are returned as errors; other statuses are reported in Response.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing GET request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &Response{Status: resp.StatusCode}, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}
