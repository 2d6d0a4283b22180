// Package entity pulls structured values out of warehouse chat messages:
// SKU codes, product name candidates, quantities and locations.
package entity

// Kind tags an Entity.
type Kind string

const (
	KindSKU         Kind = "sku"
	KindProductName Kind = "product_name"
	KindQuantity    Kind = "quantity"
	KindLocation    Kind = "location"
)

// Operation is how a quantity applies to the stock on hand.
type Operation string

const (
	OpSet    Operation = "set"
	OpAdd    Operation = "add"
	OpRemove Operation = "remove"
)

// Span is a half-open byte range. SKU spans index the original message,
// every other kind indexes the normalized text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Entity is a tagged union over the extracted kinds. Fields that do not apply
// to a kind are left zero.
type Entity struct {
	Kind       Kind   `json:"kind"`
	Value      string `json:"value"`
	Normalized string `json:"normalized"`
	Span       Span   `json:"span"`

	// product_name and sku
	Resolved   bool    `json:"resolved"`
	CatalogRef string  `json:"catalog_ref,omitempty"`
	MatchScore float64 `json:"match_score,omitempty"`

	// quantity
	Amount    int       `json:"amount,omitempty"`
	Target    bool      `json:"target,omitempty"`
	Operation Operation `json:"operation,omitempty"`
	Problem   Problem   `json:"problem,omitempty"`

	// location
	Query bool `json:"query,omitempty"`
}

// Extraction groups everything found in one message.
type Extraction struct {
	SKUs       []Entity
	Products   []Entity
	Quantities []Entity
	Location   *Entity
	// Referent is set when the message points back at an earlier product
	// ("it", "that one", "same").
	Referent bool
}

// All flattens the extraction in a stable order: SKUs, products,
// quantities, location.
func (x Extraction) All() []Entity {
	out := make([]Entity, 0, len(x.SKUs)+len(x.Products)+len(x.Quantities)+1)
	out = append(out, x.SKUs...)
	out = append(out, x.Products...)
	out = append(out, x.Quantities...)
	if x.Location != nil {
		out = append(out, *x.Location)
	}
	return out
}

// TargetQuantity returns the first quantity marked as a target.
func (x Extraction) TargetQuantity() (Entity, bool) {
	for _, q := range x.Quantities {
		if q.Target {
			return q, true
		}
	}
	return Entity{}, false
}

// Empty reports whether no SKU or product was found.
func (x Extraction) Empty() bool {
	return len(x.SKUs) == 0 && len(x.Products) == 0
}

// Extract runs every extractor. original is the raw message, normalized its
// normalized form. Product names are only extracted when withProducts is set,
// since free text left over from non-product requests is not a product.
func Extract(original, normalized string, withProducts bool) Extraction {
	x := Extraction{
		SKUs:     SKUs(original),
		Referent: HasReferent(normalized),
	}
	x.Quantities = Quantities(normalized, x.SKUs)
	x.Location = Location(normalized)
	if withProducts {
		x.Products = ProductNames(original, normalized, x.SKUs)
	}
	return x
}
