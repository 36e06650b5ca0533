package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

// OrderKeyPrefix starts every order debit identifier.
const OrderKeyPrefix = "order-"

var perThousand = decimal.NewFromInt(1000)

// CatalogItem is one purchasable engagement service.
type CatalogItem struct {
	ID          string          `json:"id"`
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	RatePer1000 decimal.Decimal `json:"ratePer1000"`
	MinQuantity int             `json:"minQuantity"`
}

// NewCatalogItem derives the item and category ids from their names.
func NewCatalogItem(number int, name, title, category string, rate decimal.Decimal, minQuantity int) CatalogItem {
	return CatalogItem{
		ID:          slug.Make(name),
		Number:      number,
		Title:       title,
		Category:    slug.Make(category),
		RatePer1000: rate,
		MinQuantity: minQuantity,
	}
}

// DefaultCatalog is the storefront's service list.
func DefaultCatalog() []CatalogItem {
	return []CatalogItem{
		NewCatalogItem(1938, "Likes Mix", "Instagram Likes Mix", "Instagram Likes", decimal.RequireFromString("0.021"), 10),
	}
}

// Exact is rate x quantity / 1000.
func (c CatalogItem) Exact(quantity int) decimal.Decimal {
	return c.RatePer1000.Mul(decimal.NewFromInt(int64(quantity))).Div(perThousand)
}

// Price is Exact rounded up to a whole balance unit and never below 1.
func (c CatalogItem) Price(quantity int) int64 {
	price := c.Exact(quantity).Ceil().IntPart()
	if price < 1 {
		return 1
	}
	return price
}

// Quote is a priced, not yet placed, order.
type Quote struct {
	ServiceID string          `json:"service"`
	Quantity  int             `json:"quantity"`
	Exact     decimal.Decimal `json:"exact"`
	Price     int64           `json:"price"`
}

// OrderRequest is a buyer's order for a catalog item.
type OrderRequest struct {
	ClientID  string
	ServiceID string
	Link      string
	Quantity  int
	Reference string // Optional client-supplied idempotency reference
}

// DebitIdentifier is the ledger key of the order's debit.
func (r OrderRequest) DebitIdentifier() string {
	return OrderKeyPrefix + r.Reference
}

// OrderStatus is the lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusDuplicate OrderStatus = "duplicate"
)

// Order is a paid order.
type Order struct {
	ID        uuid.UUID   `json:"id"`
	ClientID  string      `json:"client_id"`
	ServiceID string      `json:"service"`
	Link      string      `json:"link"`
	Quantity  int         `json:"quantity"`
	Price     int64       `json:"price"`
	Reference string      `json:"reference"`
	Status    OrderStatus `json:"status"`
	Balance   int64       `json:"balance"`
	CreatedAt time.Time   `json:"created_at"`
}
