// Package stripe is a small REST client for Stripe Checkout sessions.
package stripe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"storefront-wallet/config"
	"storefront-wallet/internal/adapter/provider"
	"storefront-wallet/internal/core/domain"

	"github.com/rs/zerolog"
)

// Client implements ports.StripeClient.
type Client struct {
	transport  *provider.Transport
	secretKey  string
	apiVersion string
}

// session mirrors the checkout session JSON fields the wallet reads.
type session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Currency      string            `json:"currency"`
	AmountTotal   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates a Stripe client. A missing secret key is reported per call.
func NewClient(cfg config.StripeConfig, httpClient provider.HTTPClient, log zerolog.Logger) (*Client, error) {
	tr, err := provider.NewTransport(domain.ProviderStripe, cfg.BaseURL, httpClient, errorDetail, log)
	if err != nil {
		return nil, err
	}
	return &Client{transport: tr, secretKey: cfg.SecretKey, apiVersion: cfg.APIVersion}, nil
}

// CreateCheckoutSession creates a one-item card payment session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params domain.StripeCheckoutParams) (*domain.StripeSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", params.Currency)
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.Amount, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)

	keys := make([]string, 0, len(params.Metadata))
	for k := range params.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", params.Metadata[k])
	}

	req, err := c.newRequest(ctx, http.MethodPost, strings.NewReader(form.Encode()), "v1", "checkout", "sessions")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out session
	if err := c.transport.Do(req, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// GetCheckoutSession retrieves a checkout session by id.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*domain.StripeSession, error) {
	req, err := c.newRequest(ctx, http.MethodGet, nil, "v1", "checkout", "sessions", sessionID)
	if err != nil {
		return nil, err
	}

	var out session
	if err := c.transport.Do(req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, c.transport.Fail(domain.ProviderErrParse, http.StatusOK, "session without id", nil)
	}
	return out.toDomain(), nil
}

func (c *Client) newRequest(ctx context.Context, method string, body io.Reader, segments ...string) (*http.Request, error) {
	if c.secretKey == "" {
		return nil, c.transport.Fail(domain.ProviderErrConfig, 0, "stripe.secret_key is not set", nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.transport.Endpoint(segments...), body)
	if err != nil {
		return nil, c.transport.Fail(domain.ProviderErrConfig, 0, "building request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if c.apiVersion != "" {
		req.Header.Set("Stripe-Version", c.apiVersion)
	}
	return req, nil
}

func (s *session) toDomain() *domain.StripeSession {
	return &domain.StripeSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        s.Status,
		PaymentStatus: s.PaymentStatus,
		Currency:      s.Currency,
		AmountTotal:   s.AmountTotal,
		Metadata:      s.Metadata,
	}
}

func errorDetail(body []byte) string {
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error.Message
}
