package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"warehouse-assistant/internal/common/logger"
)

const (
	queryLookupProduct = `
		SELECT p.sku, p.name, COALESCE(p.category, '') AS category, COALESCE(p.unit, 'pcs') AS unit,
		       p.unit_price, p.reorder_level, COALESCE(p.location, '') AS location,
		       COALESCE(i.quantity, 0) AS quantity,
		       COALESCE(i.reserved_quantity, 0) AS reserved_quantity,
		       COALESCE(i.available_quantity, 0) AS available_quantity,
		       COALESCE(i.updated_at, p.updated_at) AS updated_at
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE UPPER(p.sku) = UPPER(:key) OR LOWER(p.name) = LOWER(:key)
		ORDER BY p.sku
		LIMIT 1`

	queryCatalog = `
		SELECT p.sku, p.name
		FROM products p
		ORDER BY p.sku`

	queryLowStock = `
		SELECT p.sku, p.name, COALESCE(p.category, '') AS category, COALESCE(p.unit, 'pcs') AS unit,
		       p.unit_price, p.reorder_level, COALESCE(p.location, '') AS location,
		       COALESCE(i.quantity, 0) AS quantity,
		       COALESCE(i.reserved_quantity, 0) AS reserved_quantity,
		       COALESCE(i.available_quantity, 0) AS available_quantity,
		       COALESCE(i.updated_at, p.updated_at) AS updated_at
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE COALESCE(i.available_quantity, 0) <= p.reorder_level
		ORDER BY p.sku`

	querySummary = `
		SELECT COUNT(*) AS total_products,
		       COALESCE(SUM(i.quantity), 0) AS total_units,
		       COALESCE(SUM(i.quantity * p.unit_price), 0) AS total_value,
		       COUNT(*) FILTER (WHERE COALESCE(i.available_quantity, 0) <= p.reorder_level) AS low_stock_count,
		       COUNT(*) FILTER (WHERE COALESCE(i.available_quantity, 0) <= 0) AS out_of_stock_count,
		       (SELECT COUNT(*) FROM inbound_shipments WHERE status IN ('pending', 'arrived')) AS pending_inbound,
		       (SELECT COUNT(*) FROM outbound_orders WHERE status IN ('pending', 'picking', 'packed')) AS pending_outbound,
		       (SELECT COUNT(*) FROM stock_movements WHERE created_at >= :since) AS movements_today
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id`

	queryCategories = `
		SELECT COALESCE(p.category, 'Uncategorized') AS category, COUNT(*) AS count
		FROM products p
		GROUP BY 1
		ORDER BY 1`

	queryLockStock = `
		SELECT p.id, COALESCE(i.quantity, 0) AS quantity
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE UPPER(p.sku) = UPPER(:sku)
		FOR UPDATE OF p`

	queryUpsertStock = `
		INSERT INTO inventory (product_id, quantity, reserved_quantity, available_quantity, updated_at)
		VALUES (:product_id, :quantity, 0, :quantity, :updated_at)
		ON CONFLICT (product_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    available_quantity = GREATEST(EXCLUDED.quantity - inventory.reserved_quantity, 0),
		    updated_at = EXCLUDED.updated_at`

	queryInsertMovement = `
		INSERT INTO stock_movements (product_id, movement_type, quantity, reason, created_at)
		VALUES (:product_id, 'adjustment', :delta, :reason, :created_at)`
)

type productRow struct {
	SKU          string          `db:"sku"`
	Name         string          `db:"name"`
	Category     string          `db:"category"`
	Unit         string          `db:"unit"`
	UnitPrice    sql.NullFloat64 `db:"unit_price"`
	ReorderLevel sql.NullInt64   `db:"reorder_level"`
	Location     string          `db:"location"`
	Quantity     int             `db:"quantity"`
	Reserved     int             `db:"reserved_quantity"`
	Available    int             `db:"available_quantity"`
	UpdatedAt    sql.NullTime    `db:"updated_at"`
}

func (r productRow) record() ProductRecord {
	return ProductRecord{
		SKU:          r.SKU,
		Name:         r.Name,
		Category:     r.Category,
		Unit:         r.Unit,
		UnitPrice:    r.UnitPrice.Float64,
		Quantity:     r.Quantity,
		Reserved:     r.Reserved,
		Available:    r.Available,
		ReorderLevel: int(r.ReorderLevel.Int64),
		Location:     r.Location,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

// PostgresRepository reads stock from the warehouse schema (products,
// inventory, inbound_shipments, outbound_orders, stock_movements).
type PostgresRepository struct {
	db  *sqlx.DB
	log logger.Logger
	now func() time.Time
}

func NewPostgresRepository(db *sqlx.DB, log logger.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, log: log, now: time.Now}
}

func (r *PostgresRepository) LookupProduct(ctx context.Context, nameOrSKU string) (*ProductRecord, error) {
	query, args, err := r.named(queryLookupProduct, map[string]interface{}{"key": nameOrSKU})
	if err != nil {
		return nil, err
	}

	var row productRow
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("LookupProduct execution err", map[string]interface{}{"key": nameOrSKU, "error": err.Error()})
		return nil, fmt.Errorf("%w: lookup product: %v", ErrUnavailable, err)
	}

	rec := row.record()
	return &rec, nil
}

func (r *PostgresRepository) CatalogSnapshot(ctx context.Context) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := r.db.SelectContext(ctx, &entries, queryCatalog); err != nil {
		r.log.Error("CatalogSnapshot execution err", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: catalog snapshot: %v", ErrUnavailable, err)
	}
	return entries, nil
}

func (r *PostgresRepository) LowStockItems(ctx context.Context) ([]ProductRecord, error) {
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, queryLowStock); err != nil {
		r.log.Error("LowStockItems execution err", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: low stock items: %v", ErrUnavailable, err)
	}

	out := make([]ProductRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func (r *PostgresRepository) SummaryMetrics(ctx context.Context) (*SummaryMetrics, error) {
	now := r.now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	query, args, err := r.named(querySummary, map[string]interface{}{"since": since})
	if err != nil {
		return nil, err
	}

	var s SummaryMetrics
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&s); err != nil {
		r.log.Error("SummaryMetrics execution err", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: summary metrics: %v", ErrUnavailable, err)
	}

	var cats []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &cats, queryCategories); err != nil {
		r.log.Error("SummaryMetrics categories err", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: summary categories: %v", ErrUnavailable, err)
	}

	s.Categories = make(map[string]int, len(cats))
	for _, c := range cats {
		s.Categories[c.Category] = c.Count
	}
	s.GeneratedAt = now
	return &s, nil
}

// ApplyStockUpdate sets the on-hand quantity and records the difference as
// an adjustment movement, in one transaction.
func (r *PostgresRepository) ApplyStockUpdate(ctx context.Context, sku string, newQuantity int) (err error) {
	if newQuantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, newQuantity)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin stock update: %v", ErrUnavailable, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Warn("stock update rollback failed", map[string]interface{}{"sku": sku, "error": rbErr.Error()})
			}
		}
	}()

	query, args, err := r.named(queryLockStock, map[string]interface{}{"sku": sku})
	if err != nil {
		return err
	}

	var current struct {
		ProductID int64 `db:"id"`
		Quantity  int   `db:"quantity"`
	}
	if err = tx.QueryRowxContext(ctx, query, args...).StructScan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("%w: %s", ErrProductNotFound, sku)
			return err
		}
		err = fmt.Errorf("%w: lock stock: %v", ErrUnavailable, err)
		return err
	}

	now := r.now()
	query, args, err = r.named(queryUpsertStock, map[string]interface{}{
		"product_id": current.ProductID,
		"quantity":   newQuantity,
		"updated_at": now,
	})
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		err = fmt.Errorf("%w: update stock: %v", ErrUnavailable, err)
		return err
	}

	query, args, err = r.named(queryInsertMovement, map[string]interface{}{
		"product_id": current.ProductID,
		"delta":      newQuantity - current.Quantity,
		"reason":     "chat stock update",
		"created_at": now,
	})
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		err = fmt.Errorf("%w: record movement: %v", ErrUnavailable, err)
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("%w: commit stock update: %v", ErrUnavailable, err)
		return err
	}

	r.log.Info("stock updated", map[string]interface{}{
		"sku":      sku,
		"previous": current.Quantity,
		"quantity": newQuantity,
	})
	return nil
}

func (r *PostgresRepository) named(query string, arg map[string]interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}
	return r.db.Rebind(q), args, nil
}
