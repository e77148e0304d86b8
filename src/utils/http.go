package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Get fetches url and returns the raw body. Non-2xx responses are errors.
func Get(ctx context.Context, url string) ([]byte, error) {
	client := http.Client{
		Timeout: 10 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("Get: failed to create request: %w", err)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Get: failed to fetch %s: %w", url, err)
	}

	if res.Body != nil {
		defer res.Body.Close()
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("Get: failed to read response body: %w", err)
	}

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("Get: %s returned status %d: %s", url, res.StatusCode, string(body))
	}

	return body, nil
}
