package inventory

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-assistant/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMockDB(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewPostgresRepository(sqlx.NewDb(db, "postgres"), logger.NewTestLogger(t))
	repo.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return repo, mock
}

var productColumns = []string{
	"sku", "name", "category", "unit", "unit_price", "reorder_level", "location",
	"quantity", "reserved_quantity", "available_quantity", "updated_at",
}

// ==========================
// Reads
// ==========================

func TestPostgresRepository_LookupProduct(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		rows := sqlmock.NewRows(productColumns).
			AddRow("LAPTOP001", "Gaming Laptop", "Electronics", "pcs", 1200.0, 10, "A1-01", 45, 5, 40, updated)
		mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
			WithArgs("Gaming Laptop", "Gaming Laptop").
			WillReturnRows(rows)

		p, err := repo.LookupProduct(ctx, "Gaming Laptop")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "LAPTOP001", p.SKU)
		assert.Equal(t, 40, p.Available)
		assert.Equal(t, 10, p.ReorderLevel)
		assert.Equal(t, updated, p.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
			WithArgs("unicorn", "unicorn").
			WillReturnRows(sqlmock.NewRows(productColumns))

		p, err := repo.LookupProduct(ctx, "unicorn")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("database down", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.LookupProduct(ctx, "TOOL001")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnavailable))
	})
}

func TestPostgresRepository_CatalogSnapshot(t *testing.T) {
	repo, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT p.sku, p.name")).
		WillReturnRows(sqlmock.NewRows([]string{"sku", "name"}).
			AddRow("LAPTOP001", "Gaming Laptop").
			AddRow("PHONE001", "Smartphone"))

	entries, err := repo.CatalogSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CatalogEntry{
		{SKU: "LAPTOP001", Name: "Gaming Laptop"},
		{SKU: "PHONE001", Name: "Smartphone"},
	}, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LowStockItems(t *testing.T) {
	repo, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("<= p.reorder_level")).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("TOOL001", "Cordless Impact Drill", "Tools", "pcs", 180.0, 12, "C3-01", 9, 0, 9, nil).
			AddRow("JEANS001", "Denim Jeans", "Apparel", "pcs", 45.0, 30, "C1-02", 0, 0, 0, nil))

	items, err := repo.LowStockItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[1].IsOut())
	assert.True(t, items[0].UpdatedAt.IsZero())
}

func TestPostgresRepository_SummaryMetrics(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) AS total_products")).
		WithArgs(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{
			"total_products", "total_units", "total_value", "low_stock_count",
			"out_of_stock_count", "pending_inbound", "pending_outbound", "movements_today",
		}).AddRow(15, 1200, 54321.5, 4, 1, 2, 6, 11))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY 1")).
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).
			AddRow("Electronics", 6).
			AddRow("Tools", 2))

	s, err := repo.SummaryMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, s.TotalProducts)
	assert.Equal(t, 54321.5, s.TotalValue)
	assert.Equal(t, 6, s.PendingOutbound)
	assert.Equal(t, 11, s.MovementsToday)
	assert.Equal(t, map[string]int{"Electronics": 6, "Tools": 2}, s.Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Stock updates
// ==========================

func TestPostgresRepository_ApplyStockUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF p")).
			WithArgs("TOOL001").
			WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(7, 9))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inventory")).
			WithArgs(7, 100, 100, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stock_movements")).
			WithArgs(7, 91, "chat stock update", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.ApplyStockUpdate(ctx, "TOOL001", 100))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown sku rolls back", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF p")).
			WithArgs("NOPE001").
			WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}))
		mock.ExpectRollback()

		err := repo.ApplyStockUpdate(ctx, "NOPE001", 5)
		assert.True(t, errors.Is(err, ErrProductNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write failure rolls back", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF p")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(7, 9))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inventory")).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := repo.ApplyStockUpdate(ctx, "TOOL001", 5)
		assert.True(t, errors.Is(err, ErrUnavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative quantity never reaches the database", func(t *testing.T) {
		repo, mock := setupMockDB(t)
		err := repo.ApplyStockUpdate(ctx, "TOOL001", -3)
		assert.True(t, errors.Is(err, ErrInvalidQuantity))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
