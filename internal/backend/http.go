package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
)

var (
	ErrMissingStatus = errors.New("missing status")
	ErrUnknownStatus = errors.New("unknown status")
)

// StatusError is returned when the service answers with an unexpected status code.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// IsNotFoundError returns true if the error indicates a 404 Not Found response.
func IsNotFoundError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// doGetJSON performs a GET request and unmarshals the JSON response into the result type.
// The endpoint should be the path after the base API URL (e.g., "identities/123").
func doGetJSON[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return doRequestJSON[T](ctx, c, http.MethodGet, endpoint, nil, http.StatusOK)
}

// doPostJSON performs a POST request that accepts either 200 OK or 201 Created.
func doPostJSON[T any](ctx context.Context, c *Client, endpoint string, requestBody any) (*T, error) {
	return doRequestJSON[T](ctx, c, http.MethodPost, endpoint, requestBody, http.StatusOK, http.StatusCreated)
}

// doRequestJSON is the internal helper that performs HTTP requests with JSON body and response.
// It accepts one or more valid status codes. If the response status doesn't match any, an error is returned.
func doRequestJSON[T any](ctx context.Context, c *Client, method, endpoint string, requestBody any, expectedStatuses ...int) (*T, error) {
	resp, err := c.send(ctx, method, endpoint, requestBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isExpectedStatus(resp.StatusCode, expectedStatuses) {
		return nil, &StatusError{Method: method, URL: resp.Request.URL.String(), Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}

	return &result, nil
}

// doRequestRaw performs an HTTP request without JSON unmarshaling the response.
func doRequestRaw(ctx context.Context, c *Client, method, endpoint string, expectedStatuses ...int) error {
	resp, err := c.send(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isExpectedStatus(resp.StatusCode, expectedStatuses) {
		return &StatusError{Method: method, URL: resp.Request.URL.String(), Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, requestBody any) (*http.Response, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req) //nolint:gosec // URL constructed from validated parsedURL via resolveURL
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	return resp, nil
}

// isExpectedStatus checks if a status code is in the list of expected statuses.
func isExpectedStatus(code int, expected []int) bool {
	return slices.Contains(expected, code)
}

// readErrorBody reads the response body for error messages.
// Returns empty string if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "(could not read error body)"
	}
	return string(bytes.TrimSpace(body))
}
