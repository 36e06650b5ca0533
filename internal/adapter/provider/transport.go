// Package provider holds the HTTP plumbing shared by the payment provider clients.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"storefront-wallet/internal/core/domain"

	"github.com/rs/zerolog"
)

// maxBody caps how much of a provider response is read.
const maxBody = 1 << 20

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient is used when a client is built without one. Per-call
// deadlines come from the request context.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// DetailFunc extracts a human-readable message from an error response body.
type DetailFunc func(body []byte) string

// Transport sends requests to one provider and classifies failures as
// *domain.ProviderError.
type Transport struct {
	Provider domain.Provider
	BaseURL  *url.URL
	Client   HTTPClient
	Detail   DetailFunc
	Log      zerolog.Logger
}

// NewTransport validates baseURL and builds a Transport.
func NewTransport(p domain.Provider, baseURL string, client HTTPClient, detail DetailFunc, log zerolog.Logger) (*Transport, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", p, err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("%s url must be absolute", p)
	}
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &Transport{Provider: p, BaseURL: parsed, Client: client, Detail: detail, Log: log}, nil
}

// Endpoint joins segments onto the base URL. Segments are path-escaped.
func (t *Transport) Endpoint(segments ...string) string {
	endpoint := *t.BaseURL
	raw := []string{"/", endpoint.Path}
	escaped := []string{"/", endpoint.EscapedPath()}
	for _, s := range segments {
		raw = append(raw, s)
		escaped = append(escaped, url.PathEscape(s))
	}
	endpoint.Path = path.Join(raw...)
	endpoint.RawPath = path.Join(escaped...)
	return endpoint.String()
}

// Do sends req and decodes a 2xx JSON body into out (skipped when out is nil).
func (t *Transport) Do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := t.Client.Do(req)
	if err != nil {
		return t.Fail(classify(req.Context(), err), 0, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return t.Fail(classify(req.Context(), err), resp.StatusCode, "reading response", err)
	}

	t.Log.Debug().
		Str("provider", string(t.Provider)).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("provider call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := ""
		if t.Detail != nil {
			detail = t.Detail(body)
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return t.Fail(domain.ProviderErrStatus, resp.StatusCode, detail, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return t.Fail(domain.ProviderErrParse, resp.StatusCode, "unexpected response body", err)
	}
	return nil
}

// Fail builds a ProviderError for this transport's provider.
func (t *Transport) Fail(kind domain.ProviderErrorKind, status int, detail string, err error) *domain.ProviderError {
	return &domain.ProviderError{
		Provider:   t.Provider,
		Kind:       kind,
		StatusCode: status,
		Detail:     detail,
		Err:        err,
	}
}

func classify(ctx context.Context, err error) domain.ProviderErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ProviderErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ProviderErrTimeout
	}
	return domain.ProviderErrTransport
}
