// Package paypal is a REST client for the PayPal Orders v2 API.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront-wallet/config"
	"storefront-wallet/internal/adapter/provider"
	"storefront-wallet/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// tokenSkew renews the access token slightly before PayPal expires it.
const tokenSkew = 60 * time.Second

// Client implements ports.PayPalClient.
type Client struct {
	transport    *provider.Transport
	clientID     string
	clientSecret string
	checkoutURL  string
	simulate     bool
	log          zerolog.Logger
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount      *money `json:"amount,omitempty"`
	Description string `json:"description,omitempty"`
	CustomID    string `json:"custom_id,omitempty"`
}

type applicationContext struct {
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	UserAction string `json:"user_action"`
	BrandName  string `json:"brand_name,omitempty"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	Links         []link         `json:"links"`
}

type errorBody struct {
	Name             string `json:"name"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

// NewClient creates a PayPal client.
func NewClient(cfg config.PayPalConfig, httpClient provider.HTTPClient, log zerolog.Logger) (*Client, error) {
	tr, err := provider.NewTransport(domain.ProviderPayPal, cfg.BaseURL, httpClient, errorDetail, log)
	if err != nil {
		return nil, err
	}
	if cfg.Simulate {
		log.Warn().Msg("paypal simulation enabled, SANDBOX-* orders resolve as completed without PayPal")
	}
	return &Client{
		transport:    tr,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		checkoutURL:  strings.TrimRight(cfg.CheckoutURL, "/"),
		simulate:     cfg.Simulate,
		log:          log,
		now:          time.Now,
	}, nil
}

// CreateOrder creates a CAPTURE order for params.Amount. In simulation mode no
// network call is made and a SANDBOX-<amount>-<ms> id is returned.
func (c *Client) CreateOrder(ctx context.Context, params domain.PayPalOrderParams) (*domain.PayPalOrder, error) {
	if c.simulate {
		id := domain.SandboxOrderID(params.Amount, c.now().UnixMilli())
		c.log.Debug().Str("order_id", id).Msg("simulated paypal order")
		return &domain.PayPalOrder{
			ID:       id,
			Status:   domain.PayPalStatusCreated,
			Amount:   decimal.NewFromInt(params.Amount),
			CustomID: domain.PayPalCustomID(params.Amount),
		}, nil
	}

	body, err := json.Marshal(createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: &money{
				CurrencyCode: strings.ToUpper(params.Currency),
				Value:        strconv.FormatInt(params.Amount, 10),
			},
			Description: "Add funds",
			CustomID:    domain.PayPalCustomID(params.Amount),
		}},
		ApplicationContext: applicationContext{
			ReturnURL:  params.ReturnURL,
			CancelURL:  params.CancelURL,
			UserAction: "PAY_NOW",
			BrandName:  params.BrandName,
		},
	})
	if err != nil {
		return nil, c.transport.Fail(domain.ProviderErrConfig, 0, "encoding order", err)
	}

	var out order
	if err := c.call(ctx, http.MethodPost, bytes.NewReader(body), &out, "v2", "checkout", "orders"); err != nil {
		return nil, err
	}

	o, err := c.toDomain(&out)
	if err != nil {
		return nil, err
	}
	if o.ApproveURL == "" {
		o.ApproveURL = c.checkoutURL + "/checkoutnow?token=" + o.ID
	}
	return o, nil
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.PayPalOrder, error) {
	if c.simulate && domain.IsSandboxOrder(orderID) {
		return sandboxOrder(orderID), nil
	}

	var out order
	if err := c.call(ctx, http.MethodGet, nil, &out, "v2", "checkout", "orders", orderID); err != nil {
		return nil, err
	}
	return c.toDomain(&out)
}

// CaptureOrder captures an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*domain.PayPalOrder, error) {
	if c.simulate && domain.IsSandboxOrder(orderID) {
		return sandboxOrder(orderID), nil
	}

	var out order
	if err := c.call(ctx, http.MethodPost, nil, &out, "v2", "checkout", "orders", orderID, "capture"); err != nil {
		return nil, err
	}
	return c.toDomain(&out)
}

func (c *Client) call(ctx context.Context, method string, body io.Reader, out any, segments ...string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.transport.Endpoint(segments...), body)
	if err != nil {
		return c.transport.Fail(domain.ProviderErrConfig, 0, "building request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	err = c.transport.Do(req, out)
	var perr *domain.ProviderError
	if errors.As(err, &perr) && perr.StatusCode == http.StatusUnauthorized {
		c.mu.Lock()
		c.accessToken = ""
		c.mu.Unlock()
	}
	return err
}

// token returns a cached OAuth access token, fetching a new one when expired.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", c.transport.Fail(domain.ProviderErrConfig, 0, "paypal.client_id and paypal.client_secret are required", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.transport.Endpoint("v1", "oauth2", "token"),
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", c.transport.Fail(domain.ProviderErrConfig, 0, "building token request", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out tokenResponse
	if err := c.transport.Do(req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", c.transport.Fail(domain.ProviderErrParse, http.StatusOK, "token response without access_token", nil)
	}

	c.accessToken = out.AccessToken
	c.expiresAt = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - tokenSkew)
	return c.accessToken, nil
}

func (c *Client) toDomain(o *order) (*domain.PayPalOrder, error) {
	if o.ID == "" {
		return nil, c.transport.Fail(domain.ProviderErrParse, http.StatusOK, "order without id", nil)
	}

	out := &domain.PayPalOrder{ID: o.ID, Status: o.Status}
	if len(o.PurchaseUnits) > 0 {
		pu := o.PurchaseUnits[0]
		out.CustomID = pu.CustomID
		if pu.Amount != nil && pu.Amount.Value != "" {
			amount, err := decimal.NewFromString(pu.Amount.Value)
			if err != nil {
				return nil, c.transport.Fail(domain.ProviderErrParse, http.StatusOK, "amount is not a decimal", err)
			}
			out.Amount = amount
		}
	}
	for _, l := range o.Links {
		if l.Rel == "approve" {
			out.ApproveURL = l.Href
			break
		}
	}
	return out, nil
}

func sandboxOrder(id string) *domain.PayPalOrder {
	amount := domain.SandboxOrderAmount(id)
	return &domain.PayPalOrder{
		ID:       id,
		Status:   domain.PayPalStatusCompleted,
		Amount:   decimal.NewFromInt(amount),
		CustomID: domain.PayPalCustomID(amount),
	}
}

func errorDetail(body []byte) string {
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorDescription
}
