package interpreter

import (
	"time"

	"warehouse-assistant/internal/nlp/entity"
	"warehouse-assistant/internal/nlp/intent"
)

// Source says which classifier produced the intent.
type Source string

const (
	SourceRules    Source = "rules"
	SourceFallback Source = "fallback"
)

// Action types.
const (
	ActionViewProduct        = "view_product"
	ActionReorder            = "reorder"
	ActionConfirmStockUpdate = "confirm_stock_update"
	ActionViewLowStock       = "view_low_stock"
)

// Action is a machine-actionable follow-up the caller may render as a button.
type Action struct {
	Type   string                 `json:"type"`
	Label  string                 `json:"label"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// ResolvedContext records which product the reply is about and how it was
// found.
type ResolvedContext struct {
	ProductName   string  `json:"product_name,omitempty"`
	SKU           string  `json:"sku,omitempty"`
	CatalogRef    string  `json:"catalog_ref,omitempty"`
	MatchScore    float64 `json:"match_score,omitempty"`
	Ambiguous     bool    `json:"ambiguous"`
	FromSession   bool    `json:"from_session"`
	LocationQuery bool    `json:"location_query"`
}

// Result is the outcome of one Interpret call.
type Result struct {
	ID              string                 `json:"id"`
	SessionID       string                 `json:"session_id"`
	Intent          intent.Intent          `json:"intent"`
	Confidence      float64                `json:"confidence"`
	Success         bool                   `json:"success"`
	Message         string                 `json:"message"`
	Entities        []entity.Entity        `json:"entities"`
	ResolvedContext *ResolvedContext       `json:"resolved_context,omitempty"`
	Data            map[string]interface{} `json:"data,omitempty"`
	Suggestions     []string               `json:"suggestions"`
	Actions         []Action               `json:"actions"`
	Source          Source                 `json:"source"`
	Timestamp       time.Time              `json:"timestamp"`
}
