// Package shortio implements a minimal client for the short.io HTTP API:
// link creation, expand-by-path, per-link statistics and deletion.
package shortio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/velichkin/shorty/config"
	infraProm "github.com/velichkin/shorty/internal/infra/prometheus"
	"go.uber.org/zap"
)

var (
	// ErrMissingLinkID signals that the expand response carried neither
	// idString nor id, so the created link cannot be tracked.
	ErrMissingLinkID = errors.New("shortio: expand response has no link id")
)

const defaultTimeout = 10 * time.Second

// Client talks to the short.io API with a static API key.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	domain       string
	baseURL      string
	statsBaseURL string
	logger       *zap.Logger
}

// NewClient builds a Client from configuration. Every call carries an
// explicit timeout instead of relying on transport defaults.
func NewClient(cfg config.ShortIOConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		apiKey:       cfg.APIKey,
		domain:       cfg.Domain,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		statsBaseURL: strings.TrimRight(cfg.StatsBaseURL, "/"),
		logger:       logger,
	}
}

// CreateLink registers a new short link for originalURL and returns the
// short URL assigned by the provider.
func (c *Client) CreateLink(ctx context.Context, originalURL string) (shortURL string, err error) {
	defer func() { infraProm.ObserveProviderCall("create", err) }()

	body, err := json.Marshal(map[string]string{
		"originalURL": originalURL,
		"domain":      c.domain,
	})
	if err != nil {
		return "", fmt.Errorf("shortio: encode create request: %w", err)
	}

	var resp struct {
		ShortURL string `json:"shortURL"`
	}
	if err = c.do(ctx, http.MethodPost, c.baseURL+"/links", nil, body, &resp); err != nil {
		return "", err
	}
	if resp.ShortURL == "" {
		return "", errors.New("shortio: create response has no shortURL")
	}

	return resp.ShortURL, nil
}

// ExpandPath resolves the provider's internal id for a short-link path.
// The create call does not return this id, so provisioning needs the
// extra round trip.
func (c *Client) ExpandPath(ctx context.Context, path string) (linkID string, err error) {
	defer func() { infraProm.ObserveProviderCall("expand", err) }()

	query := url.Values{}
	query.Set("domain", c.domain)
	query.Set("path", path)

	var resp struct {
		IDString string      `json:"idString"`
		ID       json.Number `json:"id"`
	}
	if err = c.do(ctx, http.MethodGet, c.baseURL+"/links/expand", query, nil, &resp); err != nil {
		return "", err
	}

	switch {
	case resp.IDString != "":
		return resp.IDString, nil
	case resp.ID.String() != "":
		return resp.ID.String(), nil
	default:
		err = ErrMissingLinkID
		return "", err
	}
}

// LinkStats fetches the all-time click count for a provider link id.
func (c *Client) LinkStats(ctx context.Context, linkID string) (totalClicks int64, err error) {
	defer func() { infraProm.ObserveProviderCall("stats", err) }()

	query := url.Values{}
	query.Set("period", "total")

	var resp struct {
		TotalClicks int64 `json:"totalClicks"`
	}
	endpoint := fmt.Sprintf("%s/statistics/link/%s", c.statsBaseURL, url.PathEscape(linkID))
	if err = c.do(ctx, http.MethodGet, endpoint, query, nil, &resp); err != nil {
		return 0, err
	}

	return resp.TotalClicks, nil
}

// DeleteLink removes the link at the provider.
func (c *Client) DeleteLink(ctx context.Context, linkID string) (err error) {
	defer func() { infraProm.ObserveProviderCall("delete", err) }()

	endpoint := fmt.Sprintf("%s/links/%s", c.baseURL, url.PathEscape(linkID))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

// PathFromShortURL derives the path component of a short URL, without
// the leading slash, for use with ExpandPath.
func PathFromShortURL(shortURL string) (string, error) {
	u, err := url.Parse(shortURL)
	if err != nil {
		return "", fmt.Errorf("shortio: parse short URL: %w", err)
	}

	path := strings.TrimPrefix(u.Path, "/")
	if path == "" {
		return "", fmt.Errorf("shortio: short URL %q has no path", shortURL)
	}
	return path, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body []byte, out interface{}) error {
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("shortio: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("shortio: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("short.io returned an error status",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail),
		)
		return fmt.Errorf("shortio: %s %s: unexpected status %d", method, endpoint, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("shortio: decode response: %w", err)
	}

	return nil
}
