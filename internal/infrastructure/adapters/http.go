package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/boletohub/backend/internal/domain/provider"
)

// maxResponseSize is the maximum allowed response size from a provider API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// doGet performs a GET against a provider API and returns the status code
// and capped body. Transport failures wrap provider.ErrUnavailable; HTTP
// error statuses are returned to the caller, which knows whether 404 means
// "gone" or "error" for its endpoint.
func doGet(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// clampPages applies the global page ceiling from configuration on top of
// an adapter's own default
func clampPages(adapterDefault, globalMax int) int {
	if globalMax > 0 && globalMax < adapterDefault {
		return globalMax
	}
	return adapterDefault
}
