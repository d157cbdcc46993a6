package submission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// EndpointPlaceholder marks an endpoint that was never filled in.
const EndpointPlaceholder = "PEGA_AQUÍ"

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 30 * time.Second

var (
	ErrEndpointNotConfigured = errors.New("submission: endpoint not configured")
	ErrRejected              = errors.New("submission: endpoint rejected payload")
)

// Dispatcher delivers a payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, p Payload) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, p Payload) error

func (fn DispatcherFunc) Dispatch(ctx context.Context, p Payload) error { return fn(ctx, p) }

// HTTPDispatcher posts payloads as multipart/form-data. Any 2xx or 3xx answer
// counts as delivered; redirects are not followed.
type HTTPDispatcher struct {
	endpoint string
	client   *http.Client
}

// DispatcherOption configures an HTTPDispatcher.
type DispatcherOption func(*HTTPDispatcher)

// WithHTTPClient replaces the client. Its redirect policy is overridden.
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *HTTPDispatcher) {
		if c != nil {
			clone := *c
			d.client = &clone
		}
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *HTTPDispatcher) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

func NewHTTPDispatcher(endpoint string, opts ...DispatcherOption) *HTTPDispatcher {
	d := &HTTPDispatcher{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return d
}

// Endpoint returns the configured URL.
func (d *HTTPDispatcher) Endpoint() string { return d.endpoint }

// Configured reports whether the endpoint is usable.
func (d *HTTPDispatcher) Configured() bool {
	return d != nil && d.endpoint != "" && !strings.Contains(d.endpoint, EndpointPlaceholder)
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, p Payload) error {
	if !d.Configured() {
		return ErrEndpointNotConfigured
	}

	body, contentType, err := encodeMultipart(p)
	if err != nil {
		return fmt.Errorf("submission: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, body)
	if err != nil {
		return fmt.Errorf("submission: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("submission: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

func encodeMultipart(p Payload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range p.Keys() {
		if err := w.WriteField(k, p.Fields[k]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
