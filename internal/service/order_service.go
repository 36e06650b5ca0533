package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderServiceImpl implements ports.OrderService. Orders are paid from the
// wallet balance.
type OrderServiceImpl struct {
	catalog []domain.CatalogItem
	byID    map[string]domain.CatalogItem
	wallet  ports.WalletService
	log     zerolog.Logger
	now     func() time.Time
}

// NewOrderService creates a new OrderServiceImpl over catalog.
func NewOrderService(catalog []domain.CatalogItem, wallet ports.WalletService, log zerolog.Logger) *OrderServiceImpl {
	byID := make(map[string]domain.CatalogItem, len(catalog))
	for _, item := range catalog {
		byID[item.ID] = item
	}
	return &OrderServiceImpl{catalog: catalog, byID: byID, wallet: wallet, log: log, now: time.Now}
}

// Catalog lists purchasable services.
func (s *OrderServiceImpl) Catalog() []domain.CatalogItem {
	return append([]domain.CatalogItem(nil), s.catalog...)
}

// Quote prices quantity units of a service.
func (s *OrderServiceImpl) Quote(serviceID string, quantity int) (*domain.Quote, error) {
	item, ok := s.byID[serviceID]
	if !ok {
		return nil, apperror.ErrNotFound("Service")
	}
	if quantity < item.MinQuantity {
		return nil, apperror.Validation(fmt.Sprintf("minimum quantity for %s is %d", item.Title, item.MinQuantity))
	}
	return &domain.Quote{
		ServiceID: item.ID,
		Quantity:  quantity,
		Exact:     item.Exact(quantity),
		Price:     item.Price(quantity),
	}, nil
}

// PlaceOrder debits the order price. Repeating a reference is a no-op.
func (s *OrderServiceImpl) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	if req.ClientID == "" {
		return nil, apperror.Validation("client id is required")
	}
	if err := validateLink(req.Link); err != nil {
		return nil, err
	}
	quote, err := s.Quote(req.ServiceID, req.Quantity)
	if err != nil {
		return nil, err
	}

	if req.Reference == "" {
		req.Reference = uuid.NewString()
	}
	res, err := s.wallet.Debit(ctx, req.ClientID, quote.Price, req.DebitIdentifier())
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:        uuid.New(),
		ClientID:  req.ClientID,
		ServiceID: quote.ServiceID,
		Link:      req.Link,
		Quantity:  req.Quantity,
		Price:     quote.Price,
		Reference: req.Reference,
		Balance:   res.Balance,
		CreatedAt: s.now().UTC(),
	}

	switch res.Status {
	case domain.MutationApplied:
		order.Status = domain.OrderStatusPlaced
	case domain.MutationDuplicate:
		order.Status = domain.OrderStatusDuplicate
	default:
		return nil, rejectionError(res.Reason)
	}

	s.log.Info().
		Str("client_id", req.ClientID).
		Str("service", quote.ServiceID).
		Int("quantity", req.Quantity).
		Int64("price", quote.Price).
		Str("status", string(order.Status)).
		Msg("order placed")
	return order, nil
}

func validateLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return apperror.Validation("link is required")
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.Validation("link must be an http(s) URL")
	}
	return nil
}

// rejectionError maps a rejected mutation to its API error.
func rejectionError(reason domain.RejectReason) error {
	switch reason {
	case domain.RejectInsufficientFunds:
		return apperror.ErrInsufficientFunds()
	case domain.RejectInvalidAmount:
		return apperror.ErrInvalidAmount()
	case domain.RejectStorageFailure:
		return apperror.ErrStorageUnavailable(nil)
	default:
		return apperror.ErrMutationRejected(string(reason))
	}
}
