// Package resolver follows shortened URLs to their final destinations.
package resolver

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Resolver is a redirect-following HTTP client for shortened links.
type Resolver struct {
	client *http.Client
}

// New returns a resolver whose requests time out after the given duration.
func New(timeout time.Duration) *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: timeout},
	}
}

// Resolve issues a HEAD request for shortURL and reports the URL the request
// ended at after following redirects. A terminal non-2xx status is not an
// error; the retail-domain check downstream decides whether the destination
// qualifies. Transport failures and timeouts surface as errors.
func (r *Resolver) Resolve(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", shortURL, err)
	}
	defer resp.Body.Close()

	return resp.Request.URL.String(), nil
}
