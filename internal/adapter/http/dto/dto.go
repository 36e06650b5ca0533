package dto

import (
	"time"

	"storefront-wallet/internal/core/domain"
)

// CreateSessionRequest is the body of POST /api/create-payment-session.
type CreateSessionRequest struct {
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	PaymentMethod string `json:"paymentMethod" binding:"omitempty,oneof=stripe paypal"`
}

// CreateSessionResponse carries what the storefront needs to redirect.
type CreateSessionResponse struct {
	Success     bool   `json:"success"`
	Amount      int64  `json:"amount"`
	Provider    string `json:"provider"`
	SessionID   string `json:"sessionId,omitempty"`
	URL         string `json:"url,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	ApprovalURL string `json:"approvalUrl,omitempty"`
}

// NewCreateSessionResponse maps a checkout session.
func NewCreateSessionResponse(s *domain.CheckoutSession) CreateSessionResponse {
	return CreateSessionResponse{
		Success:     true,
		Amount:      s.Amount,
		Provider:    string(s.Provider),
		SessionID:   s.SessionID,
		URL:         s.URL,
		OrderID:     s.OrderID,
		ApprovalURL: s.ApprovalURL,
	}
}

// VerifyPaymentRequest is the body of POST /api/verify-payment.
type VerifyPaymentRequest struct {
	SessionID string `json:"sessionId" sanitize:"trim"`
	OrderID   string `json:"orderId" sanitize:"trim"`
	Token     string `json:"token" sanitize:"trim"`
	PayerID   string `json:"payerId" sanitize:"trim"`
	Provider  string `json:"provider" binding:"omitempty,oneof=stripe paypal"`
}

// ReconcileQuery holds the provider redirect parameters.
type ReconcileQuery struct {
	SessionID string `form:"session_id"`
	OrderID   string `form:"order_id"`
	Token     string `form:"token"`
	PayerID   string `form:"PayerID"`
	Provider  string `form:"provider"`
}

// CallbackParams converts the query into reconcile input.
func (q ReconcileQuery) CallbackParams() domain.CallbackParams {
	return domain.CallbackParams{
		SessionID: q.SessionID,
		OrderID:   q.OrderID,
		Token:     q.Token,
		PayerID:   q.PayerID,
		Provider:  q.Provider,
	}
}

// ReconcileResponse is a reconcile outcome plus the failure code, if any.
type ReconcileResponse struct {
	*domain.ReconcileOutcome
	ErrorCode string `json:"error_code,omitempty"`
}

// ClientResponse is returned when a new anonymous wallet is minted.
type ClientResponse struct {
	ClientID string `json:"client_id"`
	Token    string `json:"token"`
	Expiry   int64  `json:"expiry"` // Unix timestamp
}

// WalletResponse is the client's wallet view.
type WalletResponse struct {
	Balance         int64                   `json:"balance"`
	IsProcessing    bool                    `json:"isProcessing"`
	LastTransaction *domain.LastTransaction `json:"lastTransaction,omitempty"`
}

// NewWalletResponse maps a wallet state.
func NewWalletResponse(st *domain.WalletState) WalletResponse {
	return WalletResponse{
		Balance:         st.Balance,
		IsProcessing:    st.IsProcessing,
		LastTransaction: st.LastTransaction,
	}
}

// QuoteQuery is the query of GET /api/v1/catalog/quote.
type QuoteQuery struct {
	Service  string `form:"service" binding:"required,safe_id"`
	Quantity int    `form:"quantity" binding:"required,gt=0"`
}

// OrderRequest is the body of POST /api/v1/orders.
type OrderRequest struct {
	Service   string `json:"service" binding:"required,safe_id"`
	Link      string `json:"link" binding:"required,safe_url,max=2048" sanitize:"trim"`
	Quantity  int    `json:"quantity" binding:"required,gt=0,lte=10000000"`
	Reference string `json:"reference" binding:"omitempty,max=64,safe_id"`
}

// OrderResponse is a placed order.
type OrderResponse struct {
	ID        string `json:"id"`
	Service   string `json:"service"`
	Link      string `json:"link"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Balance   int64  `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// NewOrderResponse maps an order.
func NewOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:        o.ID.String(),
		Service:   o.ServiceID,
		Link:      o.Link,
		Quantity:  o.Quantity,
		Price:     o.Price,
		Reference: o.Reference,
		Status:    string(o.Status),
		Balance:   o.Balance,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
}
