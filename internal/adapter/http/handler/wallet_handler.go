package handler

import (
	"errors"
	"net/http"

	"storefront-wallet/internal/adapter/http/dto"
	"storefront-wallet/internal/adapter/http/middleware"
	"storefront-wallet/internal/adapter/http/stream"
	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"
	"storefront-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles the authenticated wallet endpoints.
type WalletHandler struct {
	wallet     ports.WalletService
	reconciler ports.ReconcileService
	streaks    ports.StreakService
	hub        *stream.Hub
}

// NewWalletHandler creates a new WalletHandler. hub may be nil, in which case
// the stream endpoint reports 404.
func NewWalletHandler(wallet ports.WalletService, reconciler ports.ReconcileService, streaks ports.StreakService, hub *stream.Hub) *WalletHandler {
	return &WalletHandler{wallet: wallet, reconciler: reconciler, streaks: streaks, hub: hub}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	clientID, ok := middleware.ClientID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	st, err := h.wallet.State(c.Request.Context(), clientID)
	if err != nil {
		response.Error(c, apperror.ErrStorageUnavailable(err))
		return
	}
	response.OK(c, dto.NewWalletResponse(st))
}

// Reconcile handles POST /api/v1/wallet/reconcile with the provider redirect
// parameters in the query string.
func (h *WalletHandler) Reconcile(c *gin.Context) {
	clientID, ok := middleware.ClientID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var q dto.ReconcileQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	out := h.reconciler.Reconcile(c.Request.Context(), clientID, q.CallbackParams())
	if out.Succeeded() {
		response.OK(c, dto.ReconcileResponse{ReconcileOutcome: out})
		return
	}

	status := http.StatusPaymentRequired
	resp := dto.ReconcileResponse{ReconcileOutcome: out}
	var appErr *apperror.AppError
	if errors.As(out.Err, &appErr) {
		status = appErr.HTTPStatus
		resp.ErrorCode = appErr.Code
	} else if out.Failure == domain.FailurePaymentIncomplete {
		resp.ErrorCode = apperror.ErrPaymentIncomplete().Code
	}
	c.JSON(status, resp)
}

// GetStreak handles GET /api/v1/wallet/streak.
func (h *WalletHandler) GetStreak(c *gin.Context) {
	clientID, ok := middleware.ClientID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	st, err := h.streaks.State(c.Request.Context(), clientID)
	if err != nil {
		response.Error(c, apperror.ErrStorageUnavailable(err))
		return
	}
	response.OK(c, st)
}

// CheckStreak handles POST /api/v1/wallet/streak/check.
func (h *WalletHandler) CheckStreak(c *gin.Context) {
	clientID, ok := middleware.ClientID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	check, err := h.streaks.Check(c.Request.Context(), clientID)
	if err != nil {
		response.Error(c, apperror.ErrStorageUnavailable(err))
		return
	}
	response.OK(c, check)
}

// Stream handles GET /api/v1/wallet/stream, a websocket of wallet states.
func (h *WalletHandler) Stream(c *gin.Context) {
	clientID, ok := middleware.ClientID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	if h.hub == nil {
		response.Error(c, apperror.ErrNotFound("Stream"))
		return
	}

	ctx := c.Request.Context()
	h.hub.Serve(c.Writer, c.Request, clientID, func() (domain.WalletState, error) {
		st, err := h.wallet.State(ctx, clientID)
		if err != nil {
			return domain.WalletState{}, err
		}
		return *st, nil
	})
}
