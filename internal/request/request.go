// Package request performs the single-round-trip JSON calls used by the
// streamer and Janus REST APIs.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/BioHazard786/rtcstreamer/internal/dns"
	"github.com/BioHazard786/rtcstreamer/internal/version"
)

// Request describes one call. A nil Body means GET, anything else is
// marshalled to JSON and POSTed.
type Request struct {
	URL    string
	Body   any
	Header http.Header
}

// Method reports the verb Do will use for r.
func (r Request) Method() string {
	if r.Body != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// Client issues requests. The zero value is not usable, use NewClient.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client, bypassing the DNS fallback dialer.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a Client whose dialer resolves through the dns package.
// No client-side timeout is set: long polls are bounded by their context.
func NewClient(opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dns.Dial

	c := &Client{
		http:   &http.Client{Transport: transport},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs exactly one round trip. On 200 the body is decoded into out
// (skipped when out is nil). Any other status yields a *StatusError.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	body, err := c.roundTrip(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", r.URL, err)
	}
	return nil
}

// Go runs the request on its own goroutine and hands the raw body to
// onSuccess, or the error to onFailure. Either callback may be nil.
func (c *Client) Go(ctx context.Context, r Request, onSuccess func(json.RawMessage), onFailure func(error)) {
	go func() {
		body, err := c.roundTrip(ctx, r)
		if err != nil {
			if onFailure != nil {
				onFailure(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(body)
		}
	}()
}

// Sync GETs url and returns the body, or nil on any failure.
func (c *Client) Sync(ctx context.Context, url string) json.RawMessage {
	body, err := c.roundTrip(ctx, Request{URL: url})
	if err != nil {
		c.logger.Debug("sync request failed", "url", url, "err", err)
		return nil
	}
	return body
}

func (c *Client) roundTrip(ctx context.Context, r Request) (json.RawMessage, error) {
	var reader io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body for %s: %w", r.URL, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method(), r.URL, reader)
	if err != nil {
		return nil, err
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", version.UserAgent())
	}

	c.logger.Debug("HTTP call", "method", req.Method, "url", r.URL)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.URL, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: resp.StatusCode, URL: r.URL}
	}
	return data, nil
}
