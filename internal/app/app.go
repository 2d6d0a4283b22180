// Package app assembles an interpreter and its backends from configuration.
// Both the workflow worker and the one-shot CLI build through it.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"warehouse-assistant/internal/common/config"
	"warehouse-assistant/internal/common/database"
	"warehouse-assistant/internal/common/logger"
	"warehouse-assistant/internal/common/observability"
	"warehouse-assistant/internal/fallback"
	"warehouse-assistant/internal/interpreter"
	"warehouse-assistant/internal/inventory"
	"warehouse-assistant/internal/nlp/intent"
	"warehouse-assistant/internal/notify"
	"warehouse-assistant/internal/session"
)

const catalogCachePrefix = "warehouse:catalog:"

type App struct {
	Interpreter *interpreter.Interpreter
	// Backends are the connections the readiness probe checks.
	Backends []database.Backend
	// Search is set when the catalog is served from the search index.
	Search *inventory.SearchCatalog

	memory  *session.MemoryStore
	sweep   time.Duration
	closers []io.Closer
	logger  logger.Logger
}

// Build wires the configured catalog, session store, fallback classifier
// and notifier into an interpreter. On error everything opened so far is
// closed.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, obs *observability.Observability) (_ *App, err error) {
	a := &App{logger: log, sweep: config.GetDuration(cfg.Session.SweepInterval)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	collab, err := a.collaborator(cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := a.sessions(cfg)
	if err != nil {
		return nil, err
	}

	classifier := intent.Default()
	if cfg.Interpreter.RulesFile != "" {
		sets, err := intent.LoadRules(cfg.Interpreter.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load intent rules: %w", err)
		}
		if classifier, err = intent.NewClassifier(sets); err != nil {
			return nil, fmt.Errorf("intent rules %s: %w", cfg.Interpreter.RulesFile, err)
		}
	}

	var fb fallback.Classifier
	if cfg.Fallback.Enabled {
		gen, err := fallback.NewGeminiGenerator(ctx, cfg.Fallback.APIKey, cfg.Fallback.Model)
		if err != nil {
			return nil, fmt.Errorf("fallback classifier: %w", err)
		}
		a.closers = append(a.closers, gen)
		fb = fallback.NewModelClassifier(gen, fallback.Config{
			Timeout: config.GetDuration(cfg.Fallback.Timeout),
			Rate:    cfg.Fallback.Rate,
			Burst:   cfg.Fallback.Burst,
		}, log)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notifications.Enabled {
		n := cfg.Notifications
		notifier, err = notify.NewFromAWS(ctx, &notify.Config{
			Enabled:      true,
			EmailEnabled: n.SES.Enabled,
			SNSEnabled:   n.SNS.Enabled,
			AWSRegion:    n.AWSRegion,
			TopicARN:     n.SNS.TopicARN,
			FromEmail:    n.SES.FromEmail,
			ToEmails:     n.SES.ToEmails,
			Timeout:      config.GetDuration(n.Timeout),
		}, log)
		if err != nil {
			return nil, fmt.Errorf("low-stock notifier: %w", err)
		}
	}

	a.Interpreter, err = interpreter.New(interpreter.Options{
		Collaborator:      collab,
		Classifier:        classifier,
		Sessions:          sessions,
		Fallback:          fb,
		FallbackThreshold: cfg.Interpreter.FallbackThreshold,
		Notifier:          notifier,
		Logger:            log,
		Observability:     obs,
		RequestTimeout:    config.GetDuration(cfg.Interpreter.RequestTimeout),
	})
	if err != nil {
		return nil, err
	}

	log.Info("interpreter ready", map[string]interface{}{
		"catalog":  cfg.Interpreter.Catalog,
		"search":   cfg.Interpreter.Search,
		"cache":    cfg.Interpreter.Cache,
		"sessions": cfg.Session.Backend,
		"fallback": cfg.Fallback.Enabled,
		"notify":   cfg.Notifications.Enabled,
	})
	return a, nil
}

func (a *App) collaborator(cfg *config.Config) (inventory.Collaborator, error) {
	var collab inventory.Collaborator
	switch cfg.Interpreter.Catalog {
	case "postgres":
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		a.Backends = append(a.Backends, pg)
		collab = inventory.NewPostgresRepository(pg.DB, a.logger)
	default:
		collab = inventory.NewDemoCollaborator()
	}

	if cfg.Interpreter.Search {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		a.Backends = append(a.Backends, es)
		a.Search = inventory.NewSearchCatalog(collab, es.Client, cfg.Database.Elasticsearch.Index, a.logger)
		collab = a.Search
	}

	if cfg.Interpreter.Cache {
		rc := a.redis(cfg)
		collab = inventory.NewCachedCollaborator(collab, rc.Client,
			config.GetDuration(cfg.Interpreter.CacheTTL), catalogCachePrefix, a.logger)
	}
	return collab, nil
}

func (a *App) sessions(cfg *config.Config) (session.Store, error) {
	ttl := config.GetDuration(cfg.Session.TTL)
	switch cfg.Session.Backend {
	case "redis":
		rc := a.redis(cfg)
		return session.NewRedisStore(rc.Client, ttl, cfg.Session.KeyPrefix), nil
	case "memory", "":
		a.memory = session.NewMemoryStore(ttl)
		return a.memory, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// redis returns the shared client, opening it on first use.
func (a *App) redis(cfg *config.Config) *database.RedisClient {
	for _, b := range a.Backends {
		if rc, ok := b.(*database.RedisClient); ok {
			return rc
		}
	}
	rc := database.NewRedis(cfg.Database.Redis)
	a.Backends = append(a.Backends, rc)
	return rc
}

// StartJanitor sweeps expired in-memory sessions until ctx is done. It
// returns nil when sessions live in redis, which expires them itself.
func (a *App) StartJanitor(ctx context.Context) <-chan struct{} {
	if a.memory == nil || a.sweep <= 0 {
		return nil
	}
	return a.memory.StartJanitor(ctx, a.sweep)
}

// Ready pings every backend.
func (a *App) Ready(ctx context.Context) (map[string]string, error) {
	return database.CheckAll(ctx, a.Backends...)
}

func (a *App) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.Interpreter != nil {
		if err := a.Interpreter.Sessions().Close(); err != nil {
			a.logger.Warn("session store close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return database.CloseAll(a.Backends...)
}
