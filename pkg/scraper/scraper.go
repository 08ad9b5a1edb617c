package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/corpix/uarand"
)

const defaultTimeout = 5 * time.Second

// NewSource builds the Source matching config.Format
func NewSource(config ScraperConfig) (Source, error) {
	switch config.Format {
	case "", "table":
		return NewTableSource(config), nil
	case "text":
		return NewTextSource(config), nil
	default:
		return nil, fmt.Errorf("unknown source format %q", config.Format)
	}
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// pickUserAgent chooses one configured agent uniformly at random. An empty
// result means no User-Agent header is sent.
func pickUserAgent(agents []string, random bool) string {
	if len(agents) > 0 {
		return agents[rand.Intn(len(agents))]
	}
	if random {
		return uarand.GetRandom()
	}
	return ""
}

// fetchPage issues the GET. A nil response with a nil error never happens;
// callers own resp.Body.
func fetchPage(ctx context.Context, client *http.Client, pageURL, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return resp, nil
}
