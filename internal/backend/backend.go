// Package backend is a client for the identity, attendance and unknown sighting service.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the collaborating service under {baseURL}/api/v1
type Client struct {
	URL       string
	parsedURL *url.URL
	apiKey    string
	http      *http.Client
}

// NewClient creates a new service client. An empty apiKey sends no X-API-Key header.
func NewClient(rawURL, apiKey string, timeout time.Duration) (*Client, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	apiURL := strings.TrimSuffix(rawURL, "/") + "/api/v1"
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	return &Client{
		URL:       apiURL,
		parsedURL: parsed,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// resolveURL builds a full URL from the base API URL and the given path segments.
// If the last segment contains a query string (e.g. "unknowns?limit=10"), it is
// split so JoinPath only receives the path portion and the query is appended.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := c.parsedURL.JoinPath(pathSegments...)
		result.RawQuery = query
		return result.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// ListIdentities returns the enrolled gallery
func (c *Client) ListIdentities(ctx context.Context) ([]Identity, error) {
	result, err := doGetJSON[[]Identity](ctx, c, "identities")
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return *result, nil
}

// CreateIdentity enrolls a new identity
func (c *Client) CreateIdentity(ctx context.Context, name string, embedding []float32) (*Identity, error) {
	result, err := doPostJSON[Identity](ctx, c, "identities", CreateIdentityRequest{Name: name, Embedding: embedding})
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return result, nil
}

// DeleteIdentity removes an identity and its attendance history
func (c *Client) DeleteIdentity(ctx context.Context, id string) error {
	if err := doRequestRaw(ctx, c, http.MethodDelete, "identities/"+url.PathEscape(id), http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("delete identity %s: %w", id, err)
	}
	return nil
}

// LastEvent returns the identity's last attendance state
func (c *Client) LastEvent(ctx context.Context, id string) (LastEvent, error) {
	result, err := doGetJSON[LastEvent](ctx, c, "identities/"+url.PathEscape(id)+"/attendance/last")
	if err != nil {
		return LastEvent{}, fmt.Errorf("last event for %s: %w", id, err)
	}
	return *result, nil
}

// RecordIn records a check-in
func (c *Client) RecordIn(ctx context.Context, id, name string) (*CheckIn, error) {
	result, err := doPostJSON[CheckIn](ctx, c, "identities/"+url.PathEscape(id)+"/attendance/in", RecordRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("record in for %s: %w", id, err)
	}
	return result, nil
}

// RecordOut records a check-out
func (c *Client) RecordOut(ctx context.Context, id, name string) (*CheckOut, error) {
	result, err := doPostJSON[CheckOut](ctx, c, "identities/"+url.PathEscape(id)+"/attendance/out", RecordRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("record out for %s: %w", id, err)
	}
	return result, nil
}

// DailySummary returns today's attendance for an identity
func (c *Client) DailySummary(ctx context.Context, id string) (*DailySummary, error) {
	result, err := doGetJSON[DailySummary](ctx, c, "identities/"+url.PathEscape(id)+"/attendance/summary")
	if err != nil {
		return nil, fmt.Errorf("daily summary for %s: %w", id, err)
	}
	return result, nil
}

// LogUnknown reports an unrecognized face
func (c *Client) LogUnknown(ctx context.Context, report UnknownReport) (*UnknownResult, error) {
	result, err := doPostJSON[UnknownResult](ctx, c, "unknowns", report)
	if err != nil {
		return nil, fmt.Errorf("log unknown: %w", err)
	}
	return result, nil
}

// ListUnknowns returns the most recently seen sightings, newest first
func (c *Client) ListUnknowns(ctx context.Context, limit int) ([]Sighting, error) {
	endpoint := "unknowns"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	result, err := doGetJSON[[]Sighting](ctx, c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("list unknowns: %w", err)
	}
	return *result, nil
}

// DeleteUnknown removes a sighting
func (c *Client) DeleteUnknown(ctx context.Context, id string) error {
	if err := doRequestRaw(ctx, c, http.MethodDelete, "unknowns/"+url.PathEscape(id), http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("delete unknown %s: %w", id, err)
	}
	return nil
}
