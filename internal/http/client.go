package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/handiism/dpm-downloader/internal/model"
)

// DefaultUserAgent is sent when no other User-Agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:139.0) Gecko/20100101 Firefox/139.0"

// Client wraps HTTP operations with site specific configuration.
//
// Example usage:
//
//	client := NewClient(WithTimeout(30 * time.Second))
//
//	// Fetch a script
//	js, err := client.GetString(ctx, "https://minghuaji.dpm.org.cn/js/gve.js")
//
//	// POST a listing query with XSRF headers
//	header := http.Header{}
//	header.Set("X-XSRF-TOKEN", token)
//	html, err := client.PostString(ctx, listURL, header)
type Client struct {
	httpClient *http.Client
	userAgent  string
	header     http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the timeout of every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent overrides DefaultUserAgent. An empty value is ignored.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithReferer sends the given Referer header on every request.
func WithReferer(referer string) Option {
	return func(c *Client) {
		if referer != "" {
			c.header.Set("Referer", referer)
		}
	}
}

// NewClient creates a new HTTP client.
//
// Without options the client uses a 60 second timeout and DefaultUserAgent.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		userAgent: DefaultUserAgent,
		header:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Cookies    []*http.Cookie
	Body       []byte
}

// Do performs a request and reads the whole body.
//
// Extra headers are added after the client defaults and override them.
//
// Returns an error wrapping model.ErrNetwork if:
//   - The request fails
//   - The response status is not 2xx
func (c *Client) Do(ctx context.Context, method, url string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	for key, values := range header {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", model.ErrNetwork, method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d visiting %s", model.ErrNetwork, resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", model.ErrNetwork, url, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Cookies:    resp.Cookies(),
		Body:       body,
	}, nil
}

// Get performs a GET request and returns the response body as bytes.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetString performs a GET request and returns the response body as a string.
//
// This is a convenience wrapper around Get for fetching text content like HTML.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// PostString performs a body-less POST request with extra headers and
// returns the response body as a string.
//
// Both museum listing endpoints take their parameters in the query string.
func (c *Client) PostString(ctx context.Context, url string, header http.Header) (string, error) {
	resp, err := c.Do(ctx, http.MethodPost, url, header)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// Cookie performs a GET request and returns the value of the named cookie
// set by the response.
//
// Returns an error wrapping model.ErrParse if the cookie is not set.
func (c *Client) Cookie(ctx context.Context, url, name string) (string, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	for _, cookie := range resp.Cookies {
		if cookie.Name == name {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("%w: cannot find cookie %s in response headers from %s", model.ErrParse, name, url)
}
