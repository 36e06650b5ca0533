package handler

import (
	"net/http"

	"storefront-wallet/internal/adapter/http/dto"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"
	"storefront-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClientHandler mints anonymous wallets.
type ClientHandler struct {
	tokenSvc ports.TokenService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(tokenSvc ports.TokenService) *ClientHandler {
	return &ClientHandler{tokenSvc: tokenSvc}
}

// CreateClient handles POST /api/v1/clients.
func (h *ClientHandler) CreateClient(c *gin.Context) {
	id := uuid.New()
	token, expiry, err := h.tokenSvc.Generate(id)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.Created(c, dto.ClientResponse{
		ClientID: id.String(),
		Token:    token,
		Expiry:   expiry.Unix(),
	})
}

// HealthCheck handles GET /health, pinging every configured backend.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
