// Package intent classifies normalized warehouse chat messages into a closed
// set of intents using a declarative rule table.
package intent

// Intent is the classified purpose of a message.
type Intent string

const (
	Greeting           Intent = "greeting"
	Farewell           Intent = "farewell"
	Gratitude          Intent = "gratitude"
	Help               Intent = "help"
	InventoryCheck     Intent = "inventory_check"
	AlertsMonitoring   Intent = "alerts_monitoring"
	ReportingAnalytics Intent = "reporting_analytics"
	OperationsCheck    Intent = "operations_check"
	StockUpdate        Intent = "stock_update"
	Unknown            Intent = "unknown"
)

// All lists every intent in the enumeration, unknown last.
var All = []Intent{
	Greeting, Farewell, Gratitude, Help,
	InventoryCheck, AlertsMonitoring, ReportingAnalytics, OperationsCheck, StockUpdate,
	Unknown,
}

// Parse maps a string onto the enumeration. Anything unrecognised is Unknown.
func Parse(s string) Intent {
	for _, in := range All {
		if string(in) == s {
			return in
		}
	}
	return Unknown
}

// Valid reports whether in is a member of the enumeration.
func (in Intent) Valid() bool {
	for _, v := range All {
		if v == in {
			return true
		}
	}
	return false
}

// Conversational intents are answered from templates without touching the
// inventory collaborator.
func (in Intent) Conversational() bool {
	switch in {
	case Greeting, Farewell, Gratitude, Help:
		return true
	}
	return false
}

// UsesProducts reports whether the intent consumes product or SKU entities.
func (in Intent) UsesProducts() bool {
	return in == InventoryCheck || in == StockUpdate
}

func (in Intent) String() string {
	return string(in)
}
