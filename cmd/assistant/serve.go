package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"warehouse-assistant/internal/app"
	"warehouse-assistant/internal/common/camunda"
	"warehouse-assistant/internal/common/config"
	"warehouse-assistant/internal/common/observability"
	interpretmessage "warehouse-assistant/internal/workers/chat/interpret-message"
)

var noWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interpret-message worker and the health endpoints",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noWorker, "no-worker", false, "serve health endpoints without connecting to the workflow engine")
}

func runServe(cmd *cobra.Command, args []string) error {
	if !noWorker {
		if err := cfg.RequireBroker(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serviceName := cfg.Observability.ServiceName
	if serviceName == "" {
		serviceName = "warehouse-assistant"
	}
	obs := observability.New(serviceName)
	defer obs.Shutdown()
	if err := obs.EnableTracing(serviceName, cfg.Observability.JaegerEndpoint, cfg.Observability.SampleRatio); err != nil {
		log.Warn("tracing disabled", map[string]interface{}{"error": err.Error()})
	}

	a, err := app.Build(ctx, cfg, log, obs)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Search != nil {
		if n, err := a.Search.Reindex(ctx); err != nil {
			log.Warn("search index not refreshed", map[string]interface{}{"error": err.Error()})
		} else {
			log.Info("search index refreshed", map[string]interface{}{"products": n})
		}
	}

	janitor := a.StartJanitor(ctx)

	var worker *camunda.Worker
	if !noWorker {
		client, err := camunda.NewClient(camunda.ConfigFrom(cfg.Camunda))
		if err != nil {
			return err
		}
		// closed with the other backends
		a.Backends = append(a.Backends, client)

		handler, err := interpretmessage.NewHandler(interpretmessage.HandlerOptions{
			AppConfig:     cfg,
			Interpreter:   a.Interpreter,
			Logger:        log,
			Observability: obs,
		})
		if err != nil {
			return err
		}
		if handler.IsEnabled() {
			worker = camunda.NewWorker(client.GetClient(), handler, config.GetDuration(cfg.Camunda.Timeout), log)
		} else {
			log.Info("worker disabled by configuration", map[string]interface{}{"taskType": handler.GetTaskType()})
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           a.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if worker != nil {
		worker.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", map[string]interface{}{"error": err.Error()})
	}
	stop()
	if janitor != nil {
		<-janitor
	}
	log.Info("stopped", nil)
	return nil
}
