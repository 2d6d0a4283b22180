package interpreter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"warehouse-assistant/internal/common/logger"
	"warehouse-assistant/internal/fallback"
	"warehouse-assistant/internal/inventory"
	"warehouse-assistant/internal/nlp/entity"
	"warehouse-assistant/internal/nlp/intent"
	"warehouse-assistant/internal/notify"
	"warehouse-assistant/internal/session"
)

// ==========================
// Mocks
// ==========================

type mockCollaborator struct {
	mock.Mock
}

func (m *mockCollaborator) LookupProduct(ctx context.Context, nameOrSKU string) (*inventory.ProductRecord, error) {
	args := m.Called(ctx, nameOrSKU)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.ProductRecord), args.Error(1)
}

func (m *mockCollaborator) CatalogSnapshot(ctx context.Context) ([]inventory.CatalogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.CatalogEntry), args.Error(1)
}

func (m *mockCollaborator) LowStockItems(ctx context.Context) ([]inventory.ProductRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.ProductRecord), args.Error(1)
}

func (m *mockCollaborator) SummaryMetrics(ctx context.Context) (*inventory.SummaryMetrics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.SummaryMetrics), args.Error(1)
}

func (m *mockCollaborator) ApplyStockUpdate(ctx context.Context, sku string, newQuantity int) error {
	args := m.Called(ctx, sku, newQuantity)
	return args.Error(0)
}

type mockFallback struct {
	mock.Mock
}

func (m *mockFallback) Classify(ctx context.Context, text string) (*fallback.Classification, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fallback.Classification), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyLowStock(ctx context.Context, ev notify.LowStockEvent) (*notify.Receipt, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notify.Receipt), args.Error(1)
}

// countingStore counts writes to the wrapped store.
type countingStore struct {
	session.Store
	updates int
}

func (s *countingStore) Update(ctx context.Context, sessionID, userID string, in intent.Intent, entities []entity.Entity) (*session.Context, error) {
	s.updates++
	return s.Store.Update(ctx, sessionID, userID, in, entities)
}

// brokenStore fails every call.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (*session.Context, bool, error) {
	return nil, false, session.ErrStore
}

func (brokenStore) Update(context.Context, string, string, intent.Intent, []entity.Entity) (*session.Context, error) {
	return nil, session.ErrStore
}

func (brokenStore) Close() error { return nil }

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestInterpreter(t *testing.T, opts Options) *Interpreter {
	t.Helper()
	if opts.Collaborator == nil {
		opts.Collaborator = inventory.NewDemoCollaborator()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewTestLogger(t)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	if opts.NewID == nil {
		opts.NewID = func(time.Time) string { return "01JNTEST000000000000000000" }
	}
	in, err := New(opts)
	require.NoError(t, err)
	return in
}

// ==========================
// Construction
// ==========================

func TestNew_RequiresCollaborator(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	in, err := New(Options{Collaborator: inventory.NewDemoCollaborator()})
	require.NoError(t, err)

	assert.NotNil(t, in.Sessions())
	assert.Equal(t, DefaultFallbackThreshold, in.threshold)

	res := in.Interpret(context.Background(), "hi", "", "")
	assert.NotEmpty(t, res.ID)
	assert.NotEmpty(t, res.SessionID)
}

// ==========================
// Result invariants
// ==========================

func TestInterpret_ResultInvariants(t *testing.T) {
	in := newTestInterpreter(t, Options{})
	messages := []string{
		"", "   ", "hi", "thanks", "bye", "help", "123456789", "asdfghjkl",
		"Check stock for Gaming Laptop", "Where is the wireless mouse?", "Show low stock items",
		"Give me an inventory report", "Any deliveries today?", "Set TOOL001 stock to 100",
		"set tool001 stock", "check stock for unicorns", "what is in aisle 4",
	}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			res := in.Interpret(context.Background(), msg, "invariants", "u-1")

			assert.True(t, res.Intent.Valid())
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
			assert.NotEmpty(t, res.Message)
			assert.NotNil(t, res.Suggestions)
			assert.NotNil(t, res.Actions)
			assert.Equal(t, "invariants", res.SessionID)
			assert.Equal(t, SourceRules, res.Source)
			if res.Intent == intent.Unknown {
				assert.LessOrEqual(t, res.Confidence, intent.UnknownCeiling)
				assert.False(t, res.Success)
			}
			for _, e := range res.Entities {
				assert.Contains(t, []entity.Kind{entity.KindSKU, entity.KindProductName, entity.KindQuantity, entity.KindLocation}, e.Kind)
			}
		})
	}
}

func TestInterpret_EmptyMessage(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "  ?! ", "s-empty", "")

	assert.Equal(t, intent.Unknown, res.Intent)
	assert.Equal(t, 0.0, res.Confidence)
	assert.False(t, res.Success)
	assert.Empty(t, res.Entities)
	assert.Equal(t, ExampleQueries, res.Suggestions)
	assert.Nil(t, res.ResolvedContext)
}

func TestInterpret_IsDeterministic(t *testing.T) {
	run := func() *Result {
		in := newTestInterpreter(t, Options{})
		return in.Interpret(context.Background(), "Check stock for Gaming Laptop", "s-1", "u-1")
	}

	first := run()
	second := run()

	assert.Equal(t, first, second)
	assert.Equal(t, "01JNTEST000000000000000000", first.ID)
	assert.Equal(t, fixedNow, first.Timestamp)
}

func TestInterpret_GeneratesSessionID(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	a := in.Interpret(context.Background(), "hi", "", "")
	b := in.Interpret(context.Background(), "hi", "", "")

	assert.NotEmpty(t, a.SessionID)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}

// ==========================
// Conversational intents
// ==========================

func TestInterpret_ConversationalSkipsCollaborator(t *testing.T) {
	collab := new(mockCollaborator)
	in := newTestInterpreter(t, Options{Collaborator: collab})

	tests := []struct {
		text     string
		expected intent.Intent
	}{
		{text: "hi", expected: intent.Greeting},
		{text: "thanks", expected: intent.Gratitude},
		{text: "bye", expected: intent.Farewell},
		{text: "help", expected: intent.Help},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := in.Interpret(context.Background(), tt.text, "s-conv", "")
			assert.Equal(t, tt.expected, res.Intent)
			assert.True(t, res.Success)
			assert.NotEmpty(t, res.Message)
		})
	}
	collab.AssertExpectations(t)
}

func TestInterpret_HelpListsExamples(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "help", "s-help", "")

	assert.Equal(t, ExampleQueries, res.Suggestions)
	for _, q := range ExampleQueries {
		assert.Contains(t, res.Message, q)
	}
}

func TestInterpret_UnknownOffersExamples(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "asdfghjkl", "s-unknown", "")

	assert.Equal(t, intent.Unknown, res.Intent)
	assert.False(t, res.Success)
	assert.Equal(t, ExampleQueries, res.Suggestions)
}

// ==========================
// inventory_check
// ==========================

func TestInterpret_InventoryCheckByName(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "Check stock for Gaming Laptop", "s-1", "")

	assert.Equal(t, intent.InventoryCheck, res.Intent)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "Gaming Laptop")
	assert.Contains(t, res.Message, "Available: 40 pcs")
	assert.Contains(t, res.Message, "Location: A1-01")

	require.NotNil(t, res.ResolvedContext)
	assert.Equal(t, "LAPTOP001", res.ResolvedContext.SKU)
	assert.Equal(t, "LAPTOP001", res.ResolvedContext.CatalogRef)
	assert.Equal(t, 1.0, res.ResolvedContext.MatchScore)
	assert.False(t, res.ResolvedContext.FromSession)

	require.NotEmpty(t, res.Entities)
	assert.Equal(t, entity.KindProductName, res.Entities[0].Kind)
	assert.True(t, res.Entities[0].Resolved)
	assert.Equal(t, "LAPTOP001", res.Entities[0].CatalogRef)

	require.NotEmpty(t, res.Actions)
	assert.Equal(t, ActionViewProduct, res.Actions[0].Type)
	assert.Equal(t, "LAPTOP001", res.Actions[0].Params["sku"])
}

func TestInterpret_InventoryCheckBySKU(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "check stock for JEANS001", "s-1", "")

	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "Denim Jeans")
	assert.Contains(t, res.Message, "Out of stock")

	require.NotNil(t, res.ResolvedContext)
	assert.Equal(t, "JEANS001", res.ResolvedContext.CatalogRef)
	require.NotEmpty(t, res.Entities)
	assert.Equal(t, entity.KindSKU, res.Entities[0].Kind)
	assert.True(t, res.Entities[0].Resolved)

	var types []string
	for _, a := range res.Actions {
		types = append(types, a.Type)
	}
	assert.Contains(t, types, ActionReorder)
}

func TestInterpret_InventoryCheckUnknownSKU(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "check stock for ZZZ999", "s-1", "")

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "ZZZ999")
	assert.Equal(t, "PRODUCT_NOT_FOUND", res.Data["error_code"])
	require.NotNil(t, res.ResolvedContext)
	assert.Empty(t, res.ResolvedContext.CatalogRef)
}

func TestInterpret_InventoryCheckUnmatchedName(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "check stock for unicorns", "s-1", "")

	assert.Equal(t, intent.InventoryCheck, res.Intent)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "unicorns")
	require.NotEmpty(t, res.Entities)
	assert.False(t, res.Entities[0].Resolved)
}

func TestInterpret_InventoryOverview(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "check inventory", "s-1", "")

	assert.Equal(t, intent.InventoryCheck, res.Intent)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "Total products: 15")
	assert.Nil(t, res.ResolvedContext)
}

func TestInterpret_LocationQuery(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "where is the gaming laptop", "s-1", "")

	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "is stored at A1-01")
	require.NotNil(t, res.ResolvedContext)
	assert.True(t, res.ResolvedContext.LocationQuery)
}

// ==========================
// Follow-ups
// ==========================

func TestInterpret_FollowUpUsesSession(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("NotifyLowStock", mock.Anything, mock.MatchedBy(func(ev notify.LowStockEvent) bool {
		return ev.SKU == "HEAD001" && ev.Available == 3 && ev.Quantity == 5 && ev.SessionID == "s-follow"
	})).Return(&notify.Receipt{NotificationID: "n-1", Status: notify.StatusSent}, nil).Once()

	collab := inventory.NewDemoCollaborator()
	in := newTestInterpreter(t, Options{Collaborator: collab, Notifier: notifier})
	ctx := context.Background()

	first := in.Interpret(ctx, "Check stock for Bluetooth Headphones", "s-follow", "u-1")
	require.True(t, first.Success)
	require.Equal(t, "HEAD001", first.ResolvedContext.CatalogRef)

	second := in.Interpret(ctx, "how many of those do we have", "s-follow", "u-1")
	assert.Equal(t, intent.InventoryCheck, second.Intent)
	assert.True(t, second.Success)
	assert.Contains(t, second.Message, "Bluetooth Headphones")
	require.NotNil(t, second.ResolvedContext)
	assert.True(t, second.ResolvedContext.FromSession)
	assert.Equal(t, "HEAD001", second.ResolvedContext.SKU)

	third := in.Interpret(ctx, "set it to 5", "s-follow", "u-1")
	assert.Equal(t, intent.StockUpdate, third.Intent)
	require.True(t, third.Success, third.Message)
	assert.Equal(t, 18, third.Data["previous_quantity"])
	assert.Equal(t, 5, third.Data["quantity"])
	assert.Equal(t, -13, third.Data["delta"])
	assert.Equal(t, true, third.Data["low_stock"])
	assert.Equal(t, notify.StatusSent, third.Data["notification"])

	rec, err := collab.LookupProduct(ctx, "HEAD001")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)
	notifier.AssertExpectations(t)

	sc, ok, err := in.Sessions().Get(ctx, "s-follow")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, sc.TurnCount)
	assert.Equal(t, intent.StockUpdate, sc.LastIntent)
}

func TestInterpret_ReferentWithoutHistory(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "how many of those do we have", "s-fresh", "")

	assert.Equal(t, intent.InventoryCheck, res.Intent)
	assert.Nil(t, res.ResolvedContext)
}

func TestInterpret_OneSessionUpdatePerTurn(t *testing.T) {
	store := &countingStore{Store: session.NewMemoryStore(time.Hour)}
	in := newTestInterpreter(t, Options{Sessions: store})

	for _, msg := range []string{"hi", "", "Check stock for Gaming Laptop", "set it to 30", "bye"} {
		in.Interpret(context.Background(), msg, "s-count", "")
	}
	assert.Equal(t, 5, store.updates)
}

func TestInterpret_SessionStoreFailureDegrades(t *testing.T) {
	in := newTestInterpreter(t, Options{Sessions: brokenStore{}})

	res := in.Interpret(context.Background(), "Check stock for Gaming Laptop", "s-broken", "")

	assert.True(t, res.Success)
	assert.Equal(t, intent.InventoryCheck, res.Intent)
}

// ==========================
// alerts, reports, operations
// ==========================

func TestInterpret_LowStockAlerts(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "Show low stock items", "s-1", "")

	assert.Equal(t, intent.AlertsMonitoring, res.Intent)
	assert.True(t, res.Success)
	assert.Equal(t, 4, res.Data["count"])
	assert.Equal(t, 1, res.Data["critical_count"])
	assert.Contains(t, res.Message, "[CRITICAL] Denim Jeans")

	require.Len(t, res.Actions, 3)
	assert.Equal(t, ActionReorder, res.Actions[0].Type)
	assert.Equal(t, "JEANS001", res.Actions[0].Params["sku"])
}

func TestInterpret_AllStockHealthy(t *testing.T) {
	collab := new(mockCollaborator)
	collab.On("LowStockItems", mock.Anything).Return([]inventory.ProductRecord{}, nil).Once()
	in := newTestInterpreter(t, Options{Collaborator: collab})

	res := in.Interpret(context.Background(), "show low stock", "s-1", "")

	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "All stock levels are healthy!")
	assert.Equal(t, 0, res.Data["count"])
	collab.AssertExpectations(t)
}

func TestByUrgency(t *testing.T) {
	items := []inventory.ProductRecord{
		{SKU: "B", Available: 5, ReorderLevel: 10},
		{SKU: "A", Available: 5, ReorderLevel: 10},
		{SKU: "C", Available: 0, ReorderLevel: 10},
		{SKU: "D", Available: 1, ReorderLevel: 10},
	}

	got := byUrgency(items)

	var skus []string
	for _, p := range got {
		skus = append(skus, p.SKU)
	}
	assert.Equal(t, []string{"C", "D", "A", "B"}, skus)
	assert.Equal(t, "B", items[0].SKU)
}

func TestInterpret_Report(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "Give me an inventory report", "s-1", "")

	assert.Equal(t, intent.ReportingAnalytics, res.Intent)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "Products: 15")
	assert.Contains(t, res.Message, "Apparel (3)")
	require.NotEmpty(t, res.Actions)
	assert.Equal(t, ActionViewLowStock, res.Actions[0].Type)
}

func TestInterpret_Operations(t *testing.T) {
	in := newTestInterpreter(t, Options{})

	res := in.Interpret(context.Background(), "Any deliveries today?", "s-1", "")

	assert.Equal(t, intent.OperationsCheck, res.Intent)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Data["pending_inbound"])
	assert.Equal(t, 5, res.Data["pending_outbound"])
	assert.Contains(t, res.Message, "Pending inbound shipments: 3")
}

func TestInterpret_CollaboratorUnavailable(t *testing.T) {
	down := fmt.Errorf("%w: connection refused", inventory.ErrUnavailable)

	tests := []struct {
		name  string
		text  string
		setup func(c *mockCollaborator)
	}{
		{
			name:  "summary",
			text:  "Give me an inventory report",
			setup: func(c *mockCollaborator) { c.On("SummaryMetrics", mock.Anything).Return(nil, down) },
		},
		{
			name:  "catalog",
			text:  "Check stock for Gaming Laptop",
			setup: func(c *mockCollaborator) { c.On("CatalogSnapshot", mock.Anything).Return(nil, down) },
		},
		{
			name:  "low stock",
			text:  "Show low stock items",
			setup: func(c *mockCollaborator) { c.On("LowStockItems", mock.Anything).Return(nil, down) },
		},
		{
			name: "lookup",
			text: "check stock for TOOL001",
			setup: func(c *mockCollaborator) {
				c.On("LookupProduct", mock.Anything, "TOOL001").Return(nil, down)
			},
		},
		{
			name:  "untyped error",
			text:  "Any deliveries today?",
			setup: func(c *mockCollaborator) { c.On("SummaryMetrics", mock.Anything).Return(nil, errors.New("boom")) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collab := new(mockCollaborator)
			tt.setup(collab)
			in := newTestInterpreter(t, Options{Collaborator: collab})

			res := in.Interpret(context.Background(), tt.text, "s-down", "")

			assert.False(t, res.Success)
			assert.Contains(t, res.Message, "temporarily unavailable")
			assert.Equal(t, "COLLABORATOR_UNAVAILABLE", res.Data["error_code"])
			collab.AssertExpectations(t)
		})
	}
}

// ==========================
// stock_update
// ==========================

func TestInterpret_StockUpdateSet(t *testing.T) {
	collab := inventory.NewDemoCollaborator()
	notifier := new(mockNotifier)
	in := newTestInterpreter(t, Options{Collaborator: collab, Notifier: notifier})

	res := in.Interpret(context.Background(), "Set TOOL001 stock to 100", "s-1", "")

	assert.Equal(t, intent.StockUpdate, res.Intent)
	require.True(t, res.Success, res.Message)
	assert.Contains(t, res.Message, "**Stock updated**")
	assert.Equal(t, "TOOL001", res.Data["sku"])
	assert.Equal(t, 9, res.Data["previous_quantity"])
	assert.Equal(t, 100, res.Data["quantity"])
	assert.Equal(t, false, res.Data["low_stock"])

	rec, err := collab.LookupProduct(context.Background(), "TOOL001")
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Quantity)
	notifier.AssertNotCalled(t, "NotifyLowStock", mock.Anything, mock.Anything)
}

func TestInterpret_StockUpdateAddAndRemove(t *testing.T) {
	collab := inventory.NewDemoCollaborator()
	in := newTestInterpreter(t, Options{Collaborator: collab})
	ctx := context.Background()

	res := in.Interpret(ctx, "add 50 units to TOOL002", "s-1", "")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 75, res.Data["quantity"])
	assert.Equal(t, "add", res.Data["operation"])

	res = in.Interpret(ctx, "remove 5 from TOOL002", "s-1", "")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 70, res.Data["quantity"])
	assert.Equal(t, -5, res.Data["delta"])
}

func TestInterpret_StockUpdateRejectsNegativeResult(t *testing.T) {
	collab := new(mockCollaborator)
	collab.On("LookupProduct", mock.Anything, "TOOL001").
		Return(&inventory.ProductRecord{SKU: "TOOL001", Name: "Cordless Impact Drill", Quantity: 9, Available: 9, ReorderLevel: 12}, nil)
	in := newTestInterpreter(t, Options{Collaborator: collab})

	res := in.Interpret(context.Background(), "remove 50 from TOOL001", "s-1", "")

	assert.False(t, res.Success)
	assert.Equal(t, "INVALID_QUANTITY", res.Data["error_code"])
	collab.AssertNotCalled(t, "ApplyStockUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestInterpret_StockUpdateRejectsUnusableQuantity(t *testing.T) {
	tests := []struct {
		text   string
		reason string
	}{
		{text: "Set TOOL001 stock to -5", reason: "negative"},
		{text: "Set TOOL001 stock to 2.5", reason: "fractional"},
		{text: "Set TOOL001 stock to 1,00", reason: "malformed"},
		{text: "set tool001 stock to 99999999999999999999", reason: "out_of_range"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			collab := new(mockCollaborator)
			in := newTestInterpreter(t, Options{Collaborator: collab})

			res := in.Interpret(context.Background(), tt.text, "s-1", "")

			assert.Equal(t, intent.StockUpdate, res.Intent)
			assert.False(t, res.Success)
			assert.Equal(t, "INVALID_QUANTITY", res.Data["error_code"])
			assert.Equal(t, tt.reason, res.Data["reason"])
			assert.Contains(t, res.Message, "Nothing was updated")
			collab.AssertNotCalled(t, "ApplyStockUpdate", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestInterpret_StockUpdateThousandsSeparator(t *testing.T) {
	collab := new(mockCollaborator)
	collab.On("LookupProduct", mock.Anything, "TOOL001").
		Return(&inventory.ProductRecord{SKU: "TOOL001", Name: "Cordless Impact Drill", Quantity: 9, Available: 9, ReorderLevel: 12}, nil)
	collab.On("ApplyStockUpdate", mock.Anything, "TOOL001", 1000).Return(nil).Once()
	in := newTestInterpreter(t, Options{Collaborator: collab})

	res := in.Interpret(context.Background(), "Set TOOL001 stock to 1,000", "s-1", "")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, 1000, res.Data["quantity"])
	assert.Equal(t, 991, res.Data["delta"])
	collab.AssertExpectations(t)
}

func TestInterpret_SKUTargetSkipsCatalog(t *testing.T) {
	down := fmt.Errorf("%w: connection refused", inventory.ErrUnavailable)
	collab := new(mockCollaborator)
	collab.On("CatalogSnapshot", mock.Anything).Return(nil, down).Maybe()
	collab.On("LookupProduct", mock.Anything, "TOOL001").
		Return(&inventory.ProductRecord{SKU: "TOOL001", Name: "Cordless Impact Drill", Quantity: 9, Available: 9, ReorderLevel: 5}, nil)
	in := newTestInterpreter(t, Options{Collaborator: collab})

	res := in.Interpret(context.Background(), "check stock for TOOL001 drill", "s-1", "")

	assert.Equal(t, intent.InventoryCheck, res.Intent)
	require.True(t, res.Success, res.Message)
	assert.Contains(t, res.Message, "Cordless Impact Drill")
	collab.AssertNotCalled(t, "CatalogSnapshot", mock.Anything)
}

func TestInterpret_StockUpdateNeedsQuantity(t *testing.T) {
	collab := new(mockCollaborator)
	in := newTestInterpreter(t, Options{Collaborator: collab})

	res := in.Interpret(context.Background(), "set TOOL001 stock", "s-1", "")

	assert.Equal(t, intent.StockUpdate, res.Intent)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"quantity"}, res.Data["missing"])
	collab.AssertNotCalled(t, "ApplyStockUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestInterpret_StockUpdateNeedsProduct(t *testing.T) {
	collab := new(mockCollaborator)
	in := newTestInterpreter(t, Options{Collaborator: collab})

	res := in.Interpret(context.Background(), "set it to 40", "s-nohistory", "")

	assert.Equal(t, intent.StockUpdate, res.Intent)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"product"}, res.Data["missing"])
	collab.AssertNotCalled(t, "ApplyStockUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestInterpret_StockUpdateAmbiguousAsksFirst(t *testing.T) {
	collab := inventory.NewDemoCollaborator()
	in := newTestInterpreter(t, Options{Collaborator: collab})
	ctx := context.Background()

	res := in.Interpret(ctx, "set laptop stock to 5", "s-1", "")

	assert.Equal(t, intent.StockUpdate, res.Intent)
	assert.False(t, res.Success)
	require.NotNil(t, res.ResolvedContext)
	assert.True(t, res.ResolvedContext.Ambiguous)

	var skus []interface{}
	for _, a := range res.Actions {
		assert.Equal(t, ActionConfirmStockUpdate, a.Type)
		assert.Equal(t, 5, a.Params["quantity"])
		skus = append(skus, a.Params["sku"])
	}
	assert.ElementsMatch(t, []interface{}{"ACC001", "LAPTOP001"}, skus)

	for sku, qty := range map[string]int{"ACC001": 80, "LAPTOP001": 45} {
		rec, err := collab.LookupProduct(ctx, sku)
		require.NoError(t, err)
		assert.Equal(t, qty, rec.Quantity, sku)
	}
}

func TestInterpret_StockUpdateNotificationFailureIsLogged(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("NotifyLowStock", mock.Anything, mock.Anything).
		Return(nil, notify.ErrNotificationSendFailed).Once()
	in := newTestInterpreter(t, Options{Notifier: notifier})

	res := in.Interpret(context.Background(), "Set TOOL001 stock to 2", "s-1", "")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, notify.StatusFailed, res.Data["notification"])
	notifier.AssertExpectations(t)
}

func TestInterpret_StockUpdateUnavailable(t *testing.T) {
	collab := new(mockCollaborator)
	collab.On("LookupProduct", mock.Anything, "TOOL001").
		Return(&inventory.ProductRecord{SKU: "TOOL001", Name: "Cordless Impact Drill", Quantity: 9, Available: 9, ReorderLevel: 12}, nil)
	collab.On("ApplyStockUpdate", mock.Anything, "TOOL001", 100).
		Return(fmt.Errorf("%w: deadlock", inventory.ErrUnavailable))
	in := newTestInterpreter(t, Options{Collaborator: collab})

	res := in.Interpret(context.Background(), "Set TOOL001 stock to 100", "s-1", "")

	assert.False(t, res.Success)
	assert.Equal(t, "COLLABORATOR_UNAVAILABLE", res.Data["error_code"])
	collab.AssertExpectations(t)
}

// ==========================
// Fallback
// ==========================

func TestInterpret_FallbackRelabelsUnknown(t *testing.T) {
	fb := new(mockFallback)
	fb.On("Classify", mock.Anything, "zxqv flurb").
		Return(&fallback.Classification{Intent: intent.AlertsMonitoring, Confidence: 0.97}, nil).Once()
	in := newTestInterpreter(t, Options{Fallback: fb})

	res := in.Interpret(context.Background(), "zxqv flurb", "s-1", "")

	assert.Equal(t, intent.AlertsMonitoring, res.Intent)
	assert.Equal(t, fallback.MaxConfidence, res.Confidence)
	assert.Equal(t, SourceFallback, res.Source)
	assert.True(t, res.Success)
	fb.AssertExpectations(t)
}

func TestInterpret_FallbackIgnored(t *testing.T) {
	tests := []struct {
		name  string
		reply *fallback.Classification
		err   error
	}{
		{name: "unknown", reply: &fallback.Classification{Intent: intent.Unknown, Confidence: 0.2}},
		{name: "error", err: fallback.ErrFallbackFailed},
		{name: "rate limited", err: fallback.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := new(mockFallback)
			fb.On("Classify", mock.Anything, mock.Anything).Return(tt.reply, tt.err).Once()
			in := newTestInterpreter(t, Options{Fallback: fb})

			res := in.Interpret(context.Background(), "zxqv flurb", "s-1", "")

			assert.Equal(t, intent.Unknown, res.Intent)
			assert.Equal(t, SourceRules, res.Source)
			fb.AssertExpectations(t)
		})
	}
}

func TestInterpret_FallbackSkippedForConfidentRules(t *testing.T) {
	fb := new(mockFallback)
	in := newTestInterpreter(t, Options{Fallback: fb})

	res := in.Interpret(context.Background(), "Show low stock items", "s-1", "")

	assert.Equal(t, SourceRules, res.Source)
	fb.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}
