package handler

import (
	"storefront-wallet/internal/adapter/http/dto"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"
	"storefront-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves operator endpoints behind AdminAuth.
type AdminHandler struct {
	wallet ports.WalletService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(wallet ports.WalletService) *AdminHandler {
	return &AdminHandler{wallet: wallet}
}

// ResetWallet handles POST /api/v1/admin/wallets/:clientId/reset.
func (h *AdminHandler) ResetWallet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		response.Error(c, apperror.Validation("clientId must be a uuid"))
		return
	}

	res, err := h.wallet.Reset(c.Request.Context(), id.String())
	if err != nil {
		response.Error(c, apperror.ErrStorageUnavailable(err))
		return
	}
	if !res.Applied() {
		response.Error(c, apperror.ErrMutationRejected(string(res.Reason)))
		return
	}

	response.OK(c, dto.WalletResponse{
		Balance:         res.Balance,
		LastTransaction: res.Transaction,
	})
}
