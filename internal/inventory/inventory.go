// Package inventory defines the stock collaborator the interpreter talks to
// and its implementations: an in-memory demo catalog, a PostgreSQL
// repository, an Elasticsearch search decorator and a Redis read-through
// cache.
package inventory

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps every backend failure. Callers degrade instead of
	// failing hard when they see it.
	ErrUnavailable = errors.New("COLLABORATOR_UNAVAILABLE")
	// ErrProductNotFound is returned by ApplyStockUpdate for an unknown SKU.
	ErrProductNotFound = errors.New("PRODUCT_NOT_FOUND")
	// ErrInvalidQuantity is returned for negative stock levels.
	ErrInvalidQuantity = errors.New("INVALID_QUANTITY")
)

// ProductRecord is the stock view of one product.
type ProductRecord struct {
	SKU          string    `json:"sku" db:"sku"`
	Name         string    `json:"name" db:"name"`
	Category     string    `json:"category" db:"category"`
	Unit         string    `json:"unit" db:"unit"`
	UnitPrice    float64   `json:"unit_price" db:"unit_price"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Reserved     int       `json:"reserved" db:"reserved_quantity"`
	Available    int       `json:"available" db:"available_quantity"`
	ReorderLevel int       `json:"reorder_level" db:"reorder_level"`
	Location     string    `json:"location" db:"location"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsLow reports whether available stock is at or under the reorder level.
func (p ProductRecord) IsLow() bool {
	return p.Available <= p.ReorderLevel
}

// IsOut reports whether nothing is available.
func (p ProductRecord) IsOut() bool {
	return p.Available <= 0
}

// CatalogEntry is one line of a catalog snapshot.
type CatalogEntry struct {
	SKU  string `json:"sku" db:"sku"`
	Name string `json:"name" db:"name"`
}

// SummaryMetrics is the digest behind reports and operations checks.
type SummaryMetrics struct {
	TotalProducts   int            `json:"total_products" db:"total_products"`
	TotalUnits      int            `json:"total_units" db:"total_units"`
	TotalValue      float64        `json:"total_value" db:"total_value"`
	LowStockCount   int            `json:"low_stock_count" db:"low_stock_count"`
	OutOfStockCount int            `json:"out_of_stock_count" db:"out_of_stock_count"`
	Categories      map[string]int `json:"categories"`
	PendingInbound  int            `json:"pending_inbound" db:"pending_inbound"`
	PendingOutbound int            `json:"pending_outbound" db:"pending_outbound"`
	MovementsToday  int            `json:"movements_today" db:"movements_today"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// Collaborator is everything the interpreter needs from the inventory side.
type Collaborator interface {
	// LookupProduct finds a product by SKU or exact name. A nil record with a
	// nil error means not found.
	LookupProduct(ctx context.Context, nameOrSKU string) (*ProductRecord, error)
	CatalogSnapshot(ctx context.Context) ([]CatalogEntry, error)
	LowStockItems(ctx context.Context) ([]ProductRecord, error)
	SummaryMetrics(ctx context.Context) (*SummaryMetrics, error)
	ApplyStockUpdate(ctx context.Context, sku string, newQuantity int) error
}
