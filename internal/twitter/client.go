// Package twitter fetches restock announcement posts from the recent-search
// API of the platform's v2 interface.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/restockwatch/dropstats/internal/models"
)

// createdAtFormat is the primary timestamp layout the search API returns.
const createdAtFormat = "2006-01-02T15:04:05.000Z"

// Config holds the search client settings.
type Config struct {
	APIURL         string
	Username       string
	BearerToken    string
	MaxResults     int
	Timeout        time.Duration
	MaxRetries     int
	RetryDelayBase time.Duration
}

// Client provides access to the recent-search endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new search client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// searchResponse mirrors one page of the recent-search payload.
type searchResponse struct {
	Data []struct {
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
	} `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

// FetchPosts returns every post from the configured account that links out and
// carries one of the given category hashtags, strictly after since when
// non-nil. Pagination follows meta.next_token until exhausted.
func (c *Client) FetchPosts(ctx context.Context, categories []string, since *time.Time) ([]models.Post, error) {
	var posts []models.Post
	nextToken := ""

	for {
		page, err := c.fetchPage(ctx, categories, since, nextToken)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Data {
			publishedAt, err := parseCreatedAt(item.CreatedAt)
			if err != nil {
				continue // Skip posts with malformed timestamps
			}
			posts = append(posts, models.Post{
				Text:        item.Text,
				PublishedAt: publishedAt,
			})
		}

		if page.Meta.NextToken == "" {
			break
		}
		nextToken = page.Meta.NextToken
	}

	return posts, nil
}

func (c *Client) fetchPage(ctx context.Context, categories []string, since *time.Time, nextToken string) (*searchResponse, error) {
	u, err := url.Parse(c.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("query", buildQuery(c.cfg.Username, categories))
	q.Set("max_results", fmt.Sprintf("%d", c.cfg.MaxResults))
	q.Set("tweet.fields", "created_at")
	if since != nil {
		q.Set("start_time", since.UTC().Format(time.RFC3339))
	}
	if nextToken != "" {
		q.Set("next_token", nextToken)
	}
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer resp.Body.Close()

	var page searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &page, nil
}

// buildQuery composes the recent-search query: posts from one account that
// carry links and at least one recognized category hashtag.
func buildQuery(username string, categories []string) string {
	tags := make([]string, len(categories))
	for i, cat := range categories {
		tags[i] = "#" + cat
	}
	return fmt.Sprintf("from:%s has:links (%s)", username, strings.Join(tags, " OR "))
}

func parseCreatedAt(value string) (time.Time, error) {
	if ts, err := time.Parse(createdAtFormat, value); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// doRequest performs an authenticated GET with retry on transport errors and
// server-side failures. Client-side errors fail immediately.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.cfg.MaxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.cfg.RetryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.cfg.RetryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("search request failed with status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(body)))
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
