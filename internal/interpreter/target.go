package interpreter

import (
	"context"

	"warehouse-assistant/internal/inventory"
	"warehouse-assistant/internal/nlp/entity"
	"warehouse-assistant/internal/nlp/match"
)

// target is the product a product intent is about.
type target struct {
	kind  entity.Kind
	index int // into the extraction's SKUs or Products; -1 when taken from the session

	key          string // lookup key for the collaborator
	candidate    string // text as the user wrote it
	name         string
	sku          string
	resolved     bool
	ambiguous    bool
	score        float64
	alternatives []match.Scored

	fromSession   bool
	sessionEntity entity.Entity
}

// selectTarget picks, in order: the first SKU, the first resolved product
// name, the first unresolved product name, then the session's last product
// when the message refers back to it.
// Product names are only matched against the catalog when no SKU was typed.
func (in *Interpreter) selectTarget(ctx context.Context, t *turn) error {
	if len(t.x.SKUs) > 0 {
		s := t.x.SKUs[0]
		t.target = &target{
			kind:      entity.KindSKU,
			key:       s.Normalized,
			candidate: s.Value,
			sku:       s.Normalized,
		}
		return nil
	}

	results, err := in.resolveProducts(ctx, t)
	if err != nil {
		return err
	}

	for i, p := range t.x.Products {
		if !p.Resolved {
			continue
		}
		r := results[i]
		t.target = &target{
			kind:         entity.KindProductName,
			index:        i,
			key:          r.Entry.SKU,
			candidate:    p.Value,
			name:         r.Entry.Name,
			sku:          r.Entry.SKU,
			resolved:     true,
			ambiguous:    r.Ambiguous,
			score:        r.Score,
			alternatives: r.Alternatives,
		}
		return nil
	}

	if len(t.x.Products) > 0 {
		t.target = &target{
			kind:         entity.KindProductName,
			candidate:    t.x.Products[0].Value,
			alternatives: results[0].Alternatives,
		}
		return nil
	}

	if t.session == nil || !(t.x.Referent || len(t.x.Quantities) > 0) {
		return nil
	}
	e, ok := t.session.LastProduct()
	if !ok {
		return nil
	}

	key := e.CatalogRef
	if key == "" {
		key = e.Normalized
	}
	t.target = &target{
		kind:          e.Kind,
		index:         -1,
		key:           key,
		candidate:     e.Value,
		sku:           e.CatalogRef,
		resolved:      true,
		score:         e.MatchScore,
		fromSession:   true,
		sessionEntity: e,
	}
	return nil
}

// found records the collaborator's record for the target and marks a typed
// SKU as resolved.
func (t *turn) found(rec *inventory.ProductRecord) {
	t.target.name = rec.Name
	t.target.sku = rec.SKU
	t.target.resolved = true
	if t.target.score == 0 {
		t.target.score = 1
	}
	if t.target.kind == entity.KindSKU && !t.target.fromSession {
		s := &t.x.SKUs[0]
		s.Resolved = true
		s.CatalogRef = rec.SKU
		s.MatchScore = 1
	}
}

func (t *turn) locationQuery() bool {
	return t.x.Location != nil && t.x.Location.Query
}

func (t *turn) resolvedContext() *ResolvedContext {
	if t.target == nil {
		if t.locationQuery() {
			return &ResolvedContext{LocationQuery: true}
		}
		return nil
	}

	name := t.target.name
	if name == "" {
		name = t.target.candidate
	}
	rc := &ResolvedContext{
		ProductName:   name,
		Ambiguous:     t.target.ambiguous,
		FromSession:   t.target.fromSession,
		LocationQuery: t.locationQuery(),
		SKU:           t.target.sku,
	}
	if t.target.resolved {
		rc.CatalogRef = t.target.sku
		rc.MatchScore = t.target.score
	}
	return rc
}
