package cnx

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
)

// HTTPConnector realizes the contract against a remote collection speaking
// the envelope protocol served by ConnectorHandler: GET /{id} for Fetch (404
// means absent), GET with an optional ?q= for List, PUT /{id} for Save,
// DELETE /{id} for Remove. A 501 from the server surfaces as the matching
// UnimplementedError, so the remote capability set looks local to callers.
type HTTPConnector[T any] struct {
	baseURL string
	client  *http.Client
}

// HTTPOption mutates an HTTPConnector during construction.
type HTTPOption[T any] func(*HTTPConnector[T]) error

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient[T any](client *http.Client) HTTPOption[T] {
	return func(c *HTTPConnector[T]) error {
		if client == nil {
			return errors.New("nil http client provided")
		}
		c.client = client
		return nil
	}
}

func NewHTTPConnector[T any](baseURL string, opts ...HTTPOption[T]) (*HTTPConnector[T], error) {
	if baseURL == "" {
		return nil, errors.New("http connector: base URL is required")
	}
	c := &HTTPConnector[T]{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *HTTPConnector[T]) Fetch(ctx context.Context, id string) (T, bool, error) {
	var zero T
	resp, err := c.do(ctx, http.MethodGet, c.itemURL(id), nil)
	if err != nil {
		return zero, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var item T
		if err := decodeData(resp.Body, &item); err != nil {
			return zero, false, fmt.Errorf("http connector: fetch %s: %w", id, err)
		}
		return item, true, nil
	case http.StatusNotFound:
		return zero, false, nil
	default:
		return zero, false, c.statusError(OpFetch, resp)
	}
}

func (c *HTTPConnector[T]) List(ctx context.Context, filter ...string) ([]T, error) {
	if len(filter) > 1 {
		return nil, errors.New("http connector: at most one filter value is accepted")
	}
	target := c.baseURL
	if len(filter) == 1 {
		target += "?q=" + url.QueryEscape(filter[0])
	}
	resp, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(OpList, resp)
	}
	var items []T
	if err := decodeData(resp.Body, &items); err != nil {
		return nil, fmt.Errorf("http connector: list: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *HTTPConnector[T]) Save(ctx context.Context, id string, value T) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("http connector: encode %s: %w", id, err)
	}
	resp, err := c.do(ctx, http.MethodPut, c.itemURL(id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return c.statusError(OpSave, resp)
	}
	return nil
}

func (c *HTTPConnector[T]) Remove(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.itemURL(id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return c.statusError(OpRemove, resp)
	}
	return nil
}

func (c *HTTPConnector[T]) itemURL(id string) string {
	return c.baseURL + "/" + url.PathEscape(id)
}

func (c *HTTPConnector[T]) do(ctx context.Context, method, target string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("http connector: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	StampRequestID(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http connector: %s %s: %w", method, target, err)
	}
	return resp, nil
}

// statusError turns a non-2xx response into an error, mapping 501 back to the
// unimplemented sentinel for the operation that was attempted.
func (c *HTTPConnector[T]) statusError(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusNotImplemented {
		return &UnimplementedError{Op: op}
	}
	var envelope ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Errorf("http connector: %s: %s (status %d)", op, envelope.Error.Message, resp.StatusCode)
	}
	return fmt.Errorf("http connector: %s: unexpected status %d", op, resp.StatusCode)
}

func decodeData(r io.Reader, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return err
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}
