// Package session keeps short-lived conversational context per chat session
// so follow-up messages ("how many of those?") can refer back to the last
// product discussed.
package session

import (
	"context"
	"errors"
	"time"

	"warehouse-assistant/internal/nlp/entity"
	"warehouse-assistant/internal/nlp/intent"
)

// ErrStore wraps failures of the backing store.
var ErrStore = errors.New("SESSION_STORE_FAILED")

// Context is what the interpreter remembers about one session.
type Context struct {
	SessionID    string          `json:"session_id"`
	UserID       string          `json:"user_id"`
	LastIntent   intent.Intent   `json:"last_intent"`
	LastEntities []entity.Entity `json:"last_entities"`
	TurnCount    int             `json:"turn_count"`
	CreatedAt    time.Time       `json:"created_at"`
	LastSeenAt   time.Time       `json:"last_seen_at"`
}

// Store reads and writes session context. Implementations evict sessions
// idle for longer than their TTL; an evicted session reads as not found.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Context, bool, error)
	// Update records one completed turn. Entities replace the remembered ones
	// only when non-empty, so a "thanks" does not forget the product.
	Update(ctx context.Context, sessionID, userID string, in intent.Intent, entities []entity.Entity) (*Context, error)
	Close() error
}

// LastProduct returns the most recent resolved product or SKU entity.
func (c *Context) LastProduct() (entity.Entity, bool) {
	if c == nil {
		return entity.Entity{}, false
	}
	for i := len(c.LastEntities) - 1; i >= 0; i-- {
		e := c.LastEntities[i]
		if e.Kind == entity.KindSKU || (e.Kind == entity.KindProductName && e.Resolved) {
			return e, true
		}
	}
	return entity.Entity{}, false
}

func (c *Context) clone() *Context {
	out := *c
	out.LastEntities = append([]entity.Entity(nil), c.LastEntities...)
	return &out
}

// apply advances c by one turn.
func (c *Context) apply(userID string, in intent.Intent, entities []entity.Entity, now time.Time) {
	if userID != "" {
		c.UserID = userID
	}
	c.LastIntent = in
	if len(entities) > 0 {
		c.LastEntities = append([]entity.Entity(nil), entities...)
	}
	c.TurnCount++
	c.LastSeenAt = now
}
