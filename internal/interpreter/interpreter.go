// Package interpreter turns one chat message into an intent, entities and a
// composed reply. It wires the normalizer, classifier, entity extractors and
// product matcher together, consults the session store for follow-ups and
// the inventory collaborator for data, and records the turn in the session
// exactly once.
package interpreter

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"warehouse-assistant/internal/common/logger"
	"warehouse-assistant/internal/common/metrics"
	"warehouse-assistant/internal/common/observability"
	"warehouse-assistant/internal/fallback"
	"warehouse-assistant/internal/inventory"
	"warehouse-assistant/internal/nlp/entity"
	"warehouse-assistant/internal/nlp/intent"
	"warehouse-assistant/internal/nlp/match"
	"warehouse-assistant/internal/nlp/normalize"
	"warehouse-assistant/internal/notify"
	"warehouse-assistant/internal/session"
)

const (
	DefaultFallbackThreshold = 0.5
	DefaultSessionTTL        = 30 * time.Minute
)

type Options struct {
	Collaborator inventory.Collaborator
	// Classifier defaults to the built-in rule table.
	Classifier *intent.Classifier
	// Sessions defaults to an in-memory store with DefaultSessionTTL.
	Sessions session.Store
	// Fallback is consulted only when the rule confidence is under
	// FallbackThreshold.
	Fallback          fallback.Classifier
	FallbackThreshold float64
	Notifier          notify.Notifier
	Logger            logger.Logger
	Observability     *observability.Observability
	RequestTimeout    time.Duration

	Now   func() time.Time
	NewID func(time.Time) string
}

type Interpreter struct {
	collab     inventory.Collaborator
	classifier *intent.Classifier
	sessions   session.Store
	fallback   fallback.Classifier
	threshold  float64
	notifier   notify.Notifier
	logger     logger.Logger
	obs        *observability.Observability
	timeout    time.Duration
	now        func() time.Time
	newID      func(time.Time) string
}

func New(opts Options) (*Interpreter, error) {
	if opts.Collaborator == nil {
		return nil, errors.New("interpreter: collaborator is required")
	}

	in := &Interpreter{
		collab:     opts.Collaborator,
		classifier: opts.Classifier,
		sessions:   opts.Sessions,
		fallback:   opts.Fallback,
		threshold:  opts.FallbackThreshold,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		obs:        opts.Observability,
		timeout:    opts.RequestTimeout,
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if in.classifier == nil {
		in.classifier = intent.Default()
	}
	if in.sessions == nil {
		in.sessions = session.NewMemoryStore(DefaultSessionTTL)
	}
	if in.threshold <= 0 {
		in.threshold = DefaultFallbackThreshold
	}
	if in.notifier == nil {
		in.notifier = notify.Noop{}
	}
	if in.logger == nil {
		in.logger = logger.NewNoOpLogger()
	}
	if in.now == nil {
		in.now = time.Now
	}
	if in.newID == nil {
		in.newID = newULID()
	}
	return in, nil
}

// Sessions exposes the store the interpreter records turns in.
func (in *Interpreter) Sessions() session.Store {
	return in.sessions
}

// turn carries the state of one Interpret call through the pipeline.
type turn struct {
	message    string
	normalized string
	sessionID  string
	userID     string

	intent     intent.Intent
	confidence float64
	source     Source

	x       entity.Extraction
	session *session.Context
	target  *target
}

// Interpret runs the pipeline for one message. It never fails: collaborator
// and store problems degrade the reply instead.
func (in *Interpreter) Interpret(ctx context.Context, message, sessionID, userID string) *Result {
	start := in.now()
	if in.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.timeout)
		defer cancel()
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, span := in.obs.StartSpan(ctx, "interpreter.Interpret")
	defer span.End()

	t := &turn{
		message:   message,
		sessionID: sessionID,
		userID:    userID,
		source:    SourceRules,
	}
	t.normalized = normalize.Text(message)

	var rep reply
	if t.normalized == "" {
		t.intent = intent.Unknown
		t.confidence = 0
		rep = composeEmpty()
	} else {
		in.classify(ctx, t)
		t.x = entity.Extract(message, t.normalized, t.intent.UsesProducts())
		in.loadSession(ctx, t)
		rep = in.compose(ctx, t)
	}

	in.remember(ctx, t)

	res := &Result{
		ID:              in.newID(start),
		SessionID:       sessionID,
		Intent:          t.intent,
		Confidence:      t.confidence,
		Success:         rep.success,
		Message:         rep.message,
		Entities:        t.x.All(),
		ResolvedContext: t.resolvedContext(),
		Data:            rep.data,
		Suggestions:     rep.suggestions,
		Actions:         rep.actions,
		Source:          t.source,
		Timestamp:       start.UTC(),
	}
	if res.Suggestions == nil {
		res.Suggestions = []string{}
	}
	if res.Actions == nil {
		res.Actions = []Action{}
	}

	span.SetAttributes(
		attribute.String("intent", string(res.Intent)),
		attribute.Float64("confidence", res.Confidence),
		attribute.Bool("success", res.Success),
	)
	in.record(ctx, res, start)
	return res
}

func (in *Interpreter) classify(ctx context.Context, t *turn) {
	cls := in.classifier.Classify(t.normalized)
	t.intent, t.confidence = cls.Intent, cls.Confidence

	if in.fallback == nil || cls.Confidence >= in.threshold {
		return
	}

	ctx, span := in.obs.StartSpan(ctx, "interpreter.fallback")
	defer span.End()

	fc, err := in.fallback.Classify(ctx, t.message)
	switch {
	case errors.Is(err, fallback.ErrRateLimited):
		metrics.FallbackInvocations.WithLabelValues("rate_limited").Inc()
		return
	case err != nil:
		metrics.FallbackInvocations.WithLabelValues("error").Inc()
		in.logger.Warn("fallback classification failed", map[string]interface{}{"error": err.Error()})
		return
	}

	if fc.Intent == intent.Unknown || fc.Confidence <= cls.Confidence {
		metrics.FallbackInvocations.WithLabelValues("ignored").Inc()
		return
	}
	metrics.FallbackInvocations.WithLabelValues("relabelled").Inc()
	t.intent = fc.Intent
	t.confidence = min(fc.Confidence, fallback.MaxConfidence)
	t.source = SourceFallback
}

func (in *Interpreter) loadSession(ctx context.Context, t *turn) {
	sc, ok, err := in.sessions.Get(ctx, t.sessionID)
	if err != nil {
		in.logger.Warn("session read failed", map[string]interface{}{
			"sessionId": t.sessionID,
			"error":     err.Error(),
		})
		return
	}
	if ok {
		t.session = sc
	}
}

// remember writes the single session update for this turn. A product taken
// from the session is carried forward so later follow-ups still see it.
func (in *Interpreter) remember(ctx context.Context, t *turn) {
	entities := t.x.All()
	if t.target != nil && t.target.fromSession {
		entities = append(entities, t.target.sessionEntity)
	}

	sc, err := in.sessions.Update(ctx, t.sessionID, t.userID, t.intent, entities)
	if err != nil {
		in.logger.Warn("session update failed", map[string]interface{}{
			"sessionId": t.sessionID,
			"error":     err.Error(),
		})
		return
	}
	if ms, ok := in.sessions.(*session.MemoryStore); ok {
		metrics.SessionsActive.Set(float64(ms.Len()))
	}
	in.logger.Debug("session updated", map[string]interface{}{
		"sessionId": sc.SessionID,
		"turns":     sc.TurnCount,
	})
}

func (in *Interpreter) record(ctx context.Context, res *Result, start time.Time) {
	success := "false"
	if res.Success {
		success = "true"
	}
	metrics.Interpretations.WithLabelValues(string(res.Intent), string(res.Source), success).Inc()
	metrics.InterpretationConfidence.WithLabelValues(string(res.Intent)).Observe(res.Confidence)
	metrics.InterpretationDuration.Observe(in.now().Sub(start).Seconds())
	in.obs.RecordInterpretation(ctx, string(res.Intent), string(res.Source), res.Success)

	in.logger.Info("message interpreted", map[string]interface{}{
		"id":         res.ID,
		"sessionId":  res.SessionID,
		"intent":     res.Intent,
		"confidence": res.Confidence,
		"source":     res.Source,
		"success":    res.Success,
		"entities":   len(res.Entities),
	})
}

// span opens a child span for one collaborator call.
func (in *Interpreter) span(ctx context.Context, op string) (context.Context, trace.Span) {
	ctx, span := in.obs.StartSpan(ctx, "inventory."+op)
	return ctx, span
}

// collaboratorFailed logs and counts a failed collaborator call.
func (in *Interpreter) collaboratorFailed(op string, err error) {
	metrics.CollaboratorErrors.WithLabelValues(op).Inc()
	in.logger.Error("collaborator call failed", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})
}

// resolveProducts matches every product candidate against one catalog
// snapshot. Candidates that do not clear the threshold stay unresolved.
func (in *Interpreter) resolveProducts(ctx context.Context, t *turn) (map[int]match.Result, error) {
	if len(t.x.Products) == 0 {
		return nil, nil
	}

	ctx, span := in.span(ctx, "CatalogSnapshot")
	catalog, err := in.collab.CatalogSnapshot(ctx)
	span.End()
	if err != nil {
		return nil, err
	}

	entries := make([]match.Entry, 0, len(catalog))
	for _, c := range catalog {
		entries = append(entries, match.Entry{SKU: c.SKU, Name: c.Name})
	}

	results := make(map[int]match.Result, len(t.x.Products))
	for i := range t.x.Products {
		p := &t.x.Products[i]
		r := match.Best(p.Value, entries)
		results[i] = r
		if r.Resolved {
			p.Resolved = true
			p.CatalogRef = r.Entry.SKU
			p.MatchScore = r.Score
		}
	}
	return results, nil
}

func newULID() func(time.Time) string {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)
	return func(t time.Time) string {
		mu.Lock()
		defer mu.Unlock()
		id, err := ulid.New(ulid.Timestamp(t), entropy)
		if err != nil {
			return fmt.Sprintf("%d", t.UnixNano())
		}
		return id.String()
	}
}
