package interpreter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "warehouse-assistant/internal/common/errors"
	"warehouse-assistant/internal/inventory"
	"warehouse-assistant/internal/nlp/entity"
	"warehouse-assistant/internal/nlp/intent"
	"warehouse-assistant/internal/notify"
)

const maxListed = 5

// ExampleQueries are offered as suggestions when a message is not understood.
var ExampleQueries = []string{
	"Check stock for Gaming Laptop",
	"Show low stock items",
	"Set TOOL001 stock to 100",
	"Give me an inventory report",
	"Any deliveries today?",
}

// reply is the composer's part of a Result.
type reply struct {
	success     bool
	message     string
	data        map[string]interface{}
	suggestions []string
	actions     []Action
}

func (in *Interpreter) compose(ctx context.Context, t *turn) reply {
	switch t.intent {
	case intent.Greeting:
		return reply{
			success: true,
			message: "Hello! I'm your warehouse assistant. I can check stock levels, flag low stock, " +
				"summarize operations and update stock counts. What do you need?",
			suggestions: ExampleQueries[:3],
		}
	case intent.Farewell:
		return reply{success: true, message: "Goodbye! Come back any time you need a stock check."}
	case intent.Gratitude:
		return reply{success: true, message: "You're welcome! Anything else I can check for you?"}
	case intent.Help:
		return composeHelp()
	case intent.InventoryCheck:
		return in.composeInventoryCheck(ctx, t)
	case intent.AlertsMonitoring:
		return in.composeAlerts(ctx)
	case intent.ReportingAnalytics:
		return in.composeReport(ctx)
	case intent.OperationsCheck:
		return in.composeOperations(ctx)
	case intent.StockUpdate:
		return in.composeStockUpdate(ctx, t)
	}
	return composeUnknown()
}

func composeEmpty() reply {
	return reply{
		message:     "I didn't catch that. Could you rephrase your warehouse question?",
		suggestions: ExampleQueries,
	}
}

func composeUnknown() reply {
	return reply{
		message: "I'm not sure what you mean. I can help with stock levels, low-stock alerts, " +
			"reports, daily operations and stock updates. Try one of these:",
		suggestions: ExampleQueries,
	}
}

func composeHelp() reply {
	var b strings.Builder
	b.WriteString("**Warehouse Assistant Help**\n\n")
	b.WriteString("I can help you with:\n")
	b.WriteString("- Stock levels for a product or SKU, including where it is stored\n")
	b.WriteString("- Low stock and out-of-stock alerts\n")
	b.WriteString("- Inventory reports and category breakdowns\n")
	b.WriteString("- Today's inbound, outbound and stock movements\n")
	b.WriteString("- Stock updates: set, add or remove units\n\n")
	b.WriteString("For example:\n")
	for _, q := range ExampleQueries {
		b.WriteString("- \"" + q + "\"\n")
	}
	return reply{success: true, message: strings.TrimSpace(b.String()), suggestions: ExampleQueries}
}

func (in *Interpreter) unavailable(op string, err error) reply {
	in.collaboratorFailed(op, err)
	code := apperrors.CodeOf(err)
	if code == apperrors.ErrCodeInternal {
		code = apperrors.ErrCodeCollaboratorUnavailable
	}
	return reply{
		message: "The inventory service is temporarily unavailable, so I couldn't complete that request. " +
			"Please try again shortly.",
		data: map[string]interface{}{"error_code": string(code)},
	}
}

func (in *Interpreter) lookup(ctx context.Context, t *turn) (*inventory.ProductRecord, error) {
	ctx, span := in.span(ctx, "LookupProduct")
	defer span.End()

	rec, err := in.collab.LookupProduct(ctx, t.target.key)
	if err != nil || rec == nil {
		return nil, err
	}
	t.found(rec)
	return rec, nil
}

// ==========================
// inventory_check
// ==========================

func (in *Interpreter) composeInventoryCheck(ctx context.Context, t *turn) reply {
	if err := in.selectTarget(ctx, t); err != nil {
		return in.unavailable("catalog_snapshot", err)
	}

	if t.target == nil {
		return in.composeOverview(ctx)
	}
	if unmatched(t.target) {
		return notMatched(t.target, "Check stock for")
	}

	rec, err := in.lookup(ctx, t)
	if err != nil {
		return in.unavailable("lookup_product", err)
	}
	if rec == nil {
		return notFound(t.target)
	}

	var b strings.Builder
	if t.locationQuery() {
		fmt.Fprintf(&b, "**%s** (SKU: %s) is stored at %s.\n\n", rec.Name, rec.SKU, valueOr(rec.Location, "an unassigned location"))
	}
	writeProduct(&b, rec)

	actions := []Action{viewProduct(rec)}
	switch {
	case rec.IsOut():
		b.WriteString("\n\nOut of stock! Reorder recommended.")
		actions = append(actions, reorder(rec))
	case rec.IsLow():
		b.WriteString("\n\nStock is low: available units are at or below the reorder level.")
		actions = append(actions, reorder(rec))
	}

	var suggestions []string
	if t.target.ambiguous {
		names := make([]string, 0, len(t.target.alternatives))
		for _, alt := range t.target.alternatives {
			names = append(names, alt.Entry.Name)
			suggestions = append(suggestions, "Check stock for "+alt.Entry.Name)
		}
		fmt.Fprintf(&b, "\n\n\"%s\" also matches %s. Ask again with the full name if you meant another product.",
			t.target.candidate, strings.Join(names, ", "))
	}

	return reply{
		success:     true,
		message:     b.String(),
		data:        map[string]interface{}{"product": rec},
		suggestions: suggestions,
		actions:     actions,
	}
}

func (in *Interpreter) composeOverview(ctx context.Context) reply {
	s, err := in.summary(ctx)
	if err != nil {
		return in.unavailable("summary_metrics", err)
	}
	msg := fmt.Sprintf("**Inventory Summary**\nTotal products: %d\nUnits on hand: %d\nLow stock items: %d\nOut of stock: %d\n\n"+
		"Ask about a product or SKU for details, for example \"Check stock for Gaming Laptop\".",
		s.TotalProducts, s.TotalUnits, s.LowStockCount, s.OutOfStockCount)
	return reply{
		success:     true,
		message:     msg,
		data:        map[string]interface{}{"summary": s},
		suggestions: []string{"Show low stock items", "Give me an inventory report"},
	}
}

func writeProduct(b *strings.Builder, rec *inventory.ProductRecord) {
	unit := valueOr(rec.Unit, "pcs")
	fmt.Fprintf(b, "**%s** (SKU: %s)\n", rec.Name, rec.SKU)
	fmt.Fprintf(b, "Available: %d %s\n", rec.Available, unit)
	fmt.Fprintf(b, "Reserved: %d %s\n", rec.Reserved, unit)
	fmt.Fprintf(b, "Total: %d %s\n", rec.Quantity, unit)
	fmt.Fprintf(b, "Location: %s\n", valueOr(rec.Location, "Not set"))
	fmt.Fprintf(b, "Reorder level: %d", rec.ReorderLevel)
}

// ==========================
// alerts, reports, operations
// ==========================

func (in *Interpreter) composeAlerts(ctx context.Context) reply {
	ctx, span := in.span(ctx, "LowStockItems")
	items, err := in.collab.LowStockItems(ctx)
	span.End()
	if err != nil {
		return in.unavailable("low_stock_items", err)
	}

	if len(items) == 0 {
		return reply{
			success: true,
			message: "**All stock levels are healthy!**\nNo items are currently at or below their reorder level.",
			data:    map[string]interface{}{"low_stock_items": []inventory.ProductRecord{}, "count": 0, "critical_count": 0},
		}
	}

	items = byUrgency(items)
	critical := 0
	for _, p := range items {
		if p.IsOut() {
			critical++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Low Stock Alert** (%d items, %d out of stock)\n", len(items), critical)
	var actions []Action
	var suggestions []string
	for i, p := range items {
		if i == maxListed {
			fmt.Fprintf(&b, "\n... and %d more items need attention.", len(items)-maxListed)
			break
		}
		severity := notify.SeverityLow
		if p.IsOut() {
			severity = notify.SeverityCritical
		}
		fmt.Fprintf(&b, "\n[%s] %s (SKU: %s)\n  Available: %d | Reorder level: %d\n",
			severity, p.Name, p.SKU, p.Available, p.ReorderLevel)
		if i < 3 {
			actions = append(actions, reorder(&items[i]))
			suggestions = append(suggestions, "Check stock for "+p.Name)
		}
	}

	return reply{
		success:     true,
		message:     strings.TrimRight(b.String(), "\n"),
		data:        map[string]interface{}{"low_stock_items": items, "count": len(items), "critical_count": critical},
		suggestions: suggestions,
		actions:     actions,
	}
}

// byUrgency orders out-of-stock items first, then by available/reorder ratio,
// then by SKU.
func byUrgency(items []inventory.ProductRecord) []inventory.ProductRecord {
	out := append([]inventory.ProductRecord(nil), items...)
	ratio := func(p inventory.ProductRecord) float64 {
		if p.ReorderLevel <= 0 {
			return float64(p.Available)
		}
		return float64(p.Available) / float64(p.ReorderLevel)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsOut() != b.IsOut() {
			return a.IsOut()
		}
		if ra, rb := ratio(a), ratio(b); ra != rb {
			return ra < rb
		}
		return a.SKU < b.SKU
	})
	return out
}

func (in *Interpreter) summary(ctx context.Context) (*inventory.SummaryMetrics, error) {
	ctx, span := in.span(ctx, "SummaryMetrics")
	defer span.End()
	return in.collab.SummaryMetrics(ctx)
}

func (in *Interpreter) composeReport(ctx context.Context) reply {
	s, err := in.summary(ctx)
	if err != nil {
		return in.unavailable("summary_metrics", err)
	}

	cats := make([]string, 0, len(s.Categories))
	for name := range s.Categories {
		cats = append(cats, name)
	}
	sort.Strings(cats)
	parts := make([]string, 0, len(cats))
	for _, name := range cats {
		parts = append(parts, fmt.Sprintf("%s (%d)", name, s.Categories[name]))
	}

	var b strings.Builder
	b.WriteString("**Inventory Report**\n")
	fmt.Fprintf(&b, "Products: %d\n", s.TotalProducts)
	fmt.Fprintf(&b, "Units on hand: %d\n", s.TotalUnits)
	fmt.Fprintf(&b, "Stock value: $%.2f\n", s.TotalValue)
	fmt.Fprintf(&b, "Low stock: %d\n", s.LowStockCount)
	fmt.Fprintf(&b, "Out of stock: %d", s.OutOfStockCount)
	if len(parts) > 0 {
		fmt.Fprintf(&b, "\nCategories: %s", strings.Join(parts, ", "))
	}

	var actions []Action
	if s.LowStockCount > 0 {
		actions = append(actions, Action{Type: ActionViewLowStock, Label: "View low stock items"})
	}
	return reply{
		success:     true,
		message:     b.String(),
		data:        map[string]interface{}{"summary": s},
		suggestions: []string{"Show low stock items", "Any deliveries today?"},
		actions:     actions,
	}
}

func (in *Interpreter) composeOperations(ctx context.Context) reply {
	s, err := in.summary(ctx)
	if err != nil {
		return in.unavailable("summary_metrics", err)
	}

	msg := fmt.Sprintf("**Operations Status**\nPending inbound shipments: %d\nPending outbound orders: %d\n"+
		"Stock movements today: %d\nLow stock items: %d",
		s.PendingInbound, s.PendingOutbound, s.MovementsToday, s.LowStockCount)

	var actions []Action
	if s.LowStockCount > 0 {
		actions = append(actions, Action{Type: ActionViewLowStock, Label: "View low stock items"})
	}
	return reply{
		success: true,
		message: msg,
		data: map[string]interface{}{
			"pending_inbound":  s.PendingInbound,
			"pending_outbound": s.PendingOutbound,
			"movements_today":  s.MovementsToday,
			"low_stock_count":  s.LowStockCount,
		},
		suggestions: []string{"Show low stock items", "Give me an inventory report"},
		actions:     actions,
	}
}

// ==========================
// stock_update
// ==========================

func (in *Interpreter) composeStockUpdate(ctx context.Context, t *turn) reply {
	if err := in.selectTarget(ctx, t); err != nil {
		return in.unavailable("catalog_snapshot", err)
	}

	qty, hasQty := t.x.TargetQuantity()
	if !hasQty && len(t.x.Quantities) == 1 {
		qty, hasQty = t.x.Quantities[0], true
	}

	if hasQty && qty.Problem != "" {
		return invalidQuantity(qty)
	}

	switch {
	case t.target == nil && !hasQty:
		return clarify("To update stock, tell me the product and the new quantity, for example \"Set TOOL001 stock to 100\".",
			"product", "quantity")
	case t.target == nil:
		return clarify(fmt.Sprintf("Which product should I update? For example \"Set TOOL001 stock to %d\".", qty.Amount),
			"product")
	case unmatched(t.target):
		r := notMatched(t.target, "Check stock for")
		r.message += " Nothing was updated."
		return r
	case !hasQty:
		name := t.target.name
		if name == "" {
			name = t.target.candidate
		}
		return clarify(fmt.Sprintf("What should the stock level for %s be? For example \"Set %s stock to 100\".", name, name),
			"quantity")
	case t.target.ambiguous:
		return confirmAmbiguous(t, qty)
	}

	rec, err := in.lookup(ctx, t)
	if err != nil {
		return in.unavailable("lookup_product", err)
	}
	if rec == nil {
		r := notFound(t.target)
		r.message += " Nothing was updated."
		return r
	}

	newQty := qty.Amount
	switch qty.Operation {
	case entity.OpAdd:
		newQty = rec.Quantity + qty.Amount
	case entity.OpRemove:
		newQty = rec.Quantity - qty.Amount
	}
	if newQty > entity.MaxQuantity {
		return reply{
			message: fmt.Sprintf("That would take %s (%s) above %d units. Nothing was updated.", rec.Name, rec.SKU, entity.MaxQuantity),
			data:    map[string]interface{}{"error_code": string(apperrors.ErrCodeInvalidQuantity), "current_quantity": rec.Quantity},
		}
	}
	if newQty < 0 {
		return reply{
			message: fmt.Sprintf("Removing %d would leave %s (%s) with negative stock (current quantity %d). Nothing was updated.",
				qty.Amount, rec.Name, rec.SKU, rec.Quantity),
			data: map[string]interface{}{"error_code": string(apperrors.ErrCodeInvalidQuantity), "current_quantity": rec.Quantity},
		}
	}

	applyCtx, span := in.span(ctx, "ApplyStockUpdate")
	err = in.collab.ApplyStockUpdate(applyCtx, rec.SKU, newQty)
	span.End()
	switch {
	case errors.Is(err, inventory.ErrProductNotFound):
		r := notFound(t.target)
		r.message += " Nothing was updated."
		return r
	case errors.Is(err, inventory.ErrInvalidQuantity):
		return reply{
			message: fmt.Sprintf("%d is not a valid stock level. Nothing was updated.", newQty),
			data:    map[string]interface{}{"error_code": string(apperrors.ErrCodeInvalidQuantity)},
		}
	case err != nil:
		return in.unavailable("apply_stock_update", err)
	}

	in.logger.Info("stock updated from chat", map[string]interface{}{
		"sessionId": t.sessionID,
		"sku":       rec.SKU,
		"previous":  rec.Quantity,
		"quantity":  newQty,
		"operation": string(qty.Operation),
	})

	var b strings.Builder
	b.WriteString("**Stock updated**\n")
	fmt.Fprintf(&b, "Product: %s\nSKU: %s\nQuantity: %d -> %d", rec.Name, rec.SKU, rec.Quantity, newQty)

	updated := *rec
	updated.Quantity = newQty
	updated.Available = max(newQty-rec.Reserved, 0)

	data := map[string]interface{}{
		"sku":               rec.SKU,
		"previous_quantity": rec.Quantity,
		"quantity":          newQty,
		"delta":             newQty - rec.Quantity,
		"operation":         string(qty.Operation),
		"low_stock":         updated.IsLow(),
	}
	actions := []Action{viewProduct(&updated)}

	if updated.IsLow() {
		fmt.Fprintf(&b, "\n\nHeads up: %d available is at or below the reorder level of %d.", updated.Available, updated.ReorderLevel)
		actions = append(actions, reorder(&updated))
		data["notification"] = in.notifyLowStock(ctx, t, &updated)
	}

	return reply{
		success: true,
		message: b.String(),
		data:    data,
		actions: actions,
	}
}

func (in *Interpreter) notifyLowStock(ctx context.Context, t *turn, rec *inventory.ProductRecord) string {
	receipt, err := in.notifier.NotifyLowStock(ctx, notify.LowStockEvent{
		SKU:          rec.SKU,
		Name:         rec.Name,
		Quantity:     rec.Quantity,
		Available:    rec.Available,
		ReorderLevel: rec.ReorderLevel,
		Location:     rec.Location,
		SessionID:    t.sessionID,
		UserID:       t.userID,
	})
	if err != nil {
		in.logger.Warn("low stock notification failed", map[string]interface{}{
			"sku":   rec.SKU,
			"error": err.Error(),
		})
		return notify.StatusFailed
	}
	return receipt.Status
}

func confirmAmbiguous(t *turn, qty entity.Entity) reply {
	options := []string{fmt.Sprintf("%s (%s)", t.target.name, t.target.sku)}
	actions := []Action{confirmUpdate(t.target.sku, t.target.name, qty)}
	for _, alt := range t.target.alternatives {
		if alt.Score < t.target.score {
			continue
		}
		options = append(options, fmt.Sprintf("%s (%s)", alt.Entry.Name, alt.Entry.SKU))
		actions = append(actions, confirmUpdate(alt.Entry.SKU, alt.Entry.Name, qty))
	}
	return reply{
		message: fmt.Sprintf("\"%s\" matches more than one product: %s. Which one should I update?",
			t.target.candidate, strings.Join(options, ", ")),
		data:    map[string]interface{}{"missing": []string{"product"}},
		actions: actions,
	}
}

// ==========================
// shared pieces
// ==========================

func unmatched(tg *target) bool {
	return tg.kind == entity.KindProductName && !tg.resolved && !tg.fromSession
}

func notMatched(tg *target, suggestionPrefix string) reply {
	msg := fmt.Sprintf("I couldn't find a product matching \"%s\".", tg.candidate)
	var suggestions []string
	if len(tg.alternatives) > 0 {
		names := make([]string, 0, len(tg.alternatives))
		for _, alt := range tg.alternatives {
			names = append(names, alt.Entry.Name)
			suggestions = append(suggestions, suggestionPrefix+" "+alt.Entry.Name)
		}
		msg += " Did you mean " + strings.Join(names, ", ") + "?"
	} else {
		suggestions = []string{"Give me an inventory report"}
	}
	return reply{
		message:     msg,
		data:        map[string]interface{}{"candidate": tg.candidate},
		suggestions: suggestions,
	}
}

func notFound(tg *target) reply {
	msg := fmt.Sprintf("Product with SKU '%s' not found.", tg.key)
	if tg.kind == entity.KindProductName {
		msg = fmt.Sprintf("I couldn't find \"%s\" in the inventory.", valueOr(tg.name, tg.candidate))
	}
	return reply{
		message:     msg,
		data:        map[string]interface{}{"error_code": string(apperrors.ErrCodeProductNotFound), "key": tg.key},
		suggestions: []string{"Give me an inventory report", "Show low stock items"},
	}
}

// invalidQuantity asks again when the number given cannot be a stock level.
func invalidQuantity(qty entity.Entity) reply {
	var why string
	switch qty.Problem {
	case entity.ProblemNegative:
		why = "stock levels cannot be negative"
	case entity.ProblemFractional:
		why = "stock is counted in whole units"
	case entity.ProblemOutOfRange:
		why = fmt.Sprintf("the largest stock level I can record is %d", entity.MaxQuantity)
	default:
		why = "I could not read it as a number"
	}
	return reply{
		message: fmt.Sprintf("%q is not a valid quantity: %s. Nothing was updated.", qty.Value, why),
		data: map[string]interface{}{
			"error_code": string(apperrors.ErrCodeInvalidQuantity),
			"quantity":   qty.Value,
			"reason":     string(qty.Problem),
		},
		suggestions: []string{"Set TOOL001 stock to 100", "Add 20 units to LAPTOP001"},
	}
}

func clarify(msg string, missing ...string) reply {
	return reply{
		message:     msg,
		data:        map[string]interface{}{"missing": missing},
		suggestions: []string{"Set TOOL001 stock to 100", "Add 20 units to LAPTOP001"},
	}
}

func viewProduct(rec *inventory.ProductRecord) Action {
	return Action{
		Type:   ActionViewProduct,
		Label:  "View " + rec.Name,
		Params: map[string]interface{}{"sku": rec.SKU},
	}
}

// reorder suggests topping stock back up to twice the reorder level.
func reorder(rec *inventory.ProductRecord) Action {
	qty := max(rec.ReorderLevel*2-rec.Available, rec.ReorderLevel, 1)
	return Action{
		Type:   ActionReorder,
		Label:  fmt.Sprintf("Reorder %s", rec.Name),
		Params: map[string]interface{}{"sku": rec.SKU, "quantity": qty},
	}
}

func confirmUpdate(sku, name string, qty entity.Entity) Action {
	return Action{
		Type:  ActionConfirmStockUpdate,
		Label: fmt.Sprintf("Update %s", name),
		Params: map[string]interface{}{
			"sku":       sku,
			"quantity":  qty.Amount,
			"operation": string(qty.Operation),
		},
	}
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
