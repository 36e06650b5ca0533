package handler

import (
	"storefront-wallet/internal/adapter/http/dto"
	"storefront-wallet/internal/adapter/http/middleware"
	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"
	"storefront-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrderHandler serves the catalog and order endpoints.
type OrderHandler struct {
	orders ports.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders ports.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Catalog handles GET /api/v1/catalog.
func (h *OrderHandler) Catalog(c *gin.Context) {
	response.OK(c, h.orders.Catalog())
}

// Quote handles GET /api/v1/catalog/quote.
func (h *OrderHandler) Quote(c *gin.Context) {
	var q dto.QuoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	quote, err := h.orders.Quote(q.Service, q.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quote)
}

// PlaceOrder handles POST /api/v1/orders.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	clientID, ok := middleware.ClientID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	order, err := h.orders.PlaceOrder(c.Request.Context(), domain.OrderRequest{
		ClientID:  clientID,
		ServiceID: req.Service,
		Link:      req.Link,
		Quantity:  req.Quantity,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if order.Status == domain.OrderStatusDuplicate {
		response.OK(c, dto.NewOrderResponse(order))
		return
	}
	response.Created(c, dto.NewOrderResponse(order))
}
