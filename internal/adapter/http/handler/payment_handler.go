package handler

import (
	"errors"
	"io"
	"net/http"

	"storefront-wallet/internal/adapter/http/dto"
	"storefront-wallet/internal/adapter/http/middleware"
	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"
	"storefront-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler serves the storefront payment endpoints. Their success
// bodies are flat JSON, not the data envelope.
type PaymentHandler struct {
	checkout ports.CheckoutService
	verifier ports.VerificationService
	webhooks ports.WebhookService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(checkout ports.CheckoutService, verifier ports.VerificationService, webhooks ports.WebhookService) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, verifier: verifier, webhooks: webhooks}
}

// CreateSession handles POST /api/create-payment-session.
func (h *PaymentHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	provider, err := domain.ParseProvider(req.PaymentMethod)
	if err != nil {
		response.Error(c, apperror.ErrUnsupportedProvider(req.PaymentMethod))
		return
	}

	clientID, _ := middleware.ClientID(c)
	session, err := h.checkout.CreateSession(c.Request.Context(), domain.CheckoutRequest{
		Amount:   req.Amount,
		Provider: provider,
		ClientID: clientID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCreateSessionResponse(session))
}

// VerifyPayment handles POST /api/verify-payment. It only asks the provider;
// the ledger is never touched here.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	provider, err := domain.ParseProvider(req.Provider)
	if err != nil {
		response.Error(c, apperror.ErrUnsupportedProvider(req.Provider))
		return
	}

	vr := domain.VerifyRequest{
		Provider:  provider,
		SessionID: req.SessionID,
		OrderID:   req.OrderID,
		Token:     req.Token,
		PayerID:   req.PayerID,
	}
	if (provider == domain.ProviderStripe && vr.SessionID == "") ||
		(provider == domain.ProviderPayPal && vr.PayPalOrderID() == "") {
		response.Error(c, apperror.ErrMissingPaymentInfo())
		return
	}

	v, err := h.verifier.Verify(c.Request.Context(), vr)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Webhook handles POST /api/webhook.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.Validation("payload too large"))
			return
		}
		response.Error(c, apperror.Validation("unreadable payload"))
		return
	}

	if _, err := h.webhooks.HandleStripeEvent(c.Request.Context(), body, c.GetHeader("Stripe-Signature")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
