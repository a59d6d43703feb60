// Package bookinfo queries an upstream catalog-metadata API so newly created
// products can be backfilled with publisher details the seller did not supply.
package bookinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when upstream has no entry for the requested title.
var ErrNotFound = errors.New("bookinfo: not found")

// Result contains the metadata available to enrich a product record.
type Result struct {
	Author    *string
	Publisher *string
	ISBN      *string
	Pages     *int
	Category  *string
}

// Client defines the contract for querying the upstream metadata API.
type Client interface {
	Fetch(ctx context.Context, title string) (*Result, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

// NewHTTPClient constructs a new HTTP-backed metadata client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse bookinfo url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Fetch retrieves book metadata by title.
func (c *HTTPClient) Fetch(ctx context.Context, title string) (*Result, error) {
	rel := &url.URL{Path: "/bookinfo"}
	q := rel.Query()
	q.Set("title", title)
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode bookinfo response: %w", err)
		}
		return convertToResult(payload), nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		c.logger.Printf("bookinfo: unexpected status %d for title %q", resp.StatusCode, title)
		return nil, fmt.Errorf("bookinfo: upstream returned %d", resp.StatusCode)
	}
}

type apiResponse struct {
	Title     string  `json:"title"`
	Author    *string `json:"author"`
	Publisher *string `json:"publisher"`
	ISBN      *string `json:"isbn"`
	Pages     *int    `json:"pages"`
	Category  *string `json:"category"`
}

func convertToResult(payload apiResponse) *Result {
	return &Result{
		Author:    normalize(payload.Author),
		Publisher: normalize(payload.Publisher),
		ISBN:      normalize(payload.ISBN),
		Pages:     payload.Pages,
		Category:  normalize(payload.Category),
	}
}

func normalize(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}
