package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryCollaborator serves a fixed product list from memory. It backs the
// CLI demo mode and tests.
type MemoryCollaborator struct {
	mu              sync.RWMutex
	products        map[string]*ProductRecord
	pendingInbound  int
	pendingOutbound int
	movements       int
	now             func() time.Time
}

// NewMemoryCollaborator copies products into a new collaborator.
func NewMemoryCollaborator(products []ProductRecord) *MemoryCollaborator {
	m := &MemoryCollaborator{
		products: make(map[string]*ProductRecord, len(products)),
		now:      time.Now,
	}
	for _, p := range products {
		p := p
		p.SKU = strings.ToUpper(p.SKU)
		m.products[p.SKU] = &p
	}
	return m
}

// NewDemoCollaborator returns a collaborator preloaded with DemoProducts.
func NewDemoCollaborator() *MemoryCollaborator {
	m := NewMemoryCollaborator(DemoProducts())
	m.pendingInbound = 3
	m.pendingOutbound = 5
	return m
}

// SetPending sets the open inbound shipment and outbound order counts.
func (m *MemoryCollaborator) SetPending(inbound, outbound int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingInbound, m.pendingOutbound = inbound, outbound
}

func (m *MemoryCollaborator) LookupProduct(_ context.Context, nameOrSKU string) (*ProductRecord, error) {
	key := strings.TrimSpace(nameOrSKU)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.products[strings.ToUpper(key)]; ok {
		cp := *p
		return &cp, nil
	}
	for _, sku := range m.sortedSKUs() {
		p := m.products[sku]
		if strings.EqualFold(p.Name, key) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryCollaborator) CatalogSnapshot(_ context.Context) ([]CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]CatalogEntry, 0, len(m.products))
	for _, sku := range m.sortedSKUs() {
		out = append(out, CatalogEntry{SKU: sku, Name: m.products[sku].Name})
	}
	return out, nil
}

func (m *MemoryCollaborator) LowStockItems(_ context.Context) ([]ProductRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ProductRecord
	for _, sku := range m.sortedSKUs() {
		if p := m.products[sku]; p.IsLow() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MemoryCollaborator) SummaryMetrics(_ context.Context) (*SummaryMetrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &SummaryMetrics{
		Categories:      make(map[string]int),
		PendingInbound:  m.pendingInbound,
		PendingOutbound: m.pendingOutbound,
		MovementsToday:  m.movements,
		GeneratedAt:     m.now(),
	}
	for _, p := range m.products {
		s.TotalProducts++
		s.TotalUnits += p.Quantity
		s.TotalValue += float64(p.Quantity) * p.UnitPrice
		if p.IsLow() {
			s.LowStockCount++
		}
		if p.IsOut() {
			s.OutOfStockCount++
		}
		s.Categories[p.Category]++
	}
	return s, nil
}

func (m *MemoryCollaborator) ApplyStockUpdate(_ context.Context, sku string, newQuantity int) error {
	if newQuantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, newQuantity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[strings.ToUpper(sku)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, sku)
	}
	p.Quantity = newQuantity
	p.Available = max(newQuantity-p.Reserved, 0)
	p.UpdatedAt = m.now()
	m.movements++
	return nil
}

func (m *MemoryCollaborator) sortedSKUs() []string {
	skus := make([]string, 0, len(m.products))
	for sku := range m.products {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

// DemoProducts is the sample catalog used by the CLI and tests.
func DemoProducts() []ProductRecord {
	p := func(sku, name, category string, price float64, qty, reserved, reorder int, loc string) ProductRecord {
		return ProductRecord{
			SKU: sku, Name: name, Category: category, Unit: "pcs", UnitPrice: price,
			Quantity: qty, Reserved: reserved, Available: qty - reserved,
			ReorderLevel: reorder, Location: loc,
		}
	}
	return []ProductRecord{
		p("LAPTOP001", "Gaming Laptop", "Electronics", 1200, 45, 5, 10, "A1-01"),
		p("MOUSE001", "Wireless Mouse", "Electronics", 25, 30, 0, 50, "A1-02"),
		p("KEYBOARD001", "Mechanical Keyboard", "Electronics", 120, 40, 3, 20, "A1-03"),
		p("MONITOR001", "4K Monitor", "Electronics", 350, 22, 0, 15, "A2-01"),
		p("ACC001", "Laptop Stand", "Accessories", 45, 80, 0, 15, "A2-02"),
		p("HEAD001", "Bluetooth Headphones", "Electronics", 150, 18, 2, 25, "A2-03"),
		p("PHONE001", "Smartphone", "Electronics", 800, 60, 4, 20, "B1-03"),
		p("TSHIRT001", "Cotton T-Shirt", "Apparel", 15, 200, 10, 50, "C1-01"),
		p("JEANS001", "Denim Jeans", "Apparel", 45, 0, 0, 30, "C1-02"),
		p("SNEAKERS001", "Running Sneakers", "Apparel", 90, 35, 0, 20, "C1-03"),
		p("TOOL001", "Cordless Impact Drill", "Tools", 180, 9, 0, 12, "C3-01"),
		p("TOOL002", "Digital Multimeter", "Tools", 60, 25, 0, 10, "C3-02"),
		p("BOOK001", "Python Programming Guide", "Books", 40, 75, 0, 10, "D1-01"),
		p("OFFC001", "Ergonomic Office Chair", "Furniture", 250, 8, 1, 5, "D2-01"),
		p("COMP001", "Circuit Boards", "Components", 12, 500, 50, 100, "E1-01"),
	}
}
