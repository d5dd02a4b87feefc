package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher downloads the raw vehicle-position feed.
type Fetcher struct {
	url      string
	username string
	password string
	client   *http.Client
}

func NewFetcher(url, username, password string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		url:      url,
		username: username,
		password: password,
		client:   &http.Client{Timeout: timeout},
	}
}

// Fetch performs one GET against the feed. A non-200 answer is an error:
// the caller treats it as "no data this cycle".
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/x-protobuf")
	if f.username != "" || f.password != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d from %s", resp.StatusCode, f.url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return body, nil
}
