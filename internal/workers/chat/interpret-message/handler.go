package interpretmessage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"warehouse-assistant/internal/common/config"
	"warehouse-assistant/internal/common/errors"
	"warehouse-assistant/internal/common/logger"
	"warehouse-assistant/internal/common/metrics"
	"warehouse-assistant/internal/common/observability"
	"warehouse-assistant/internal/common/validation"
	"warehouse-assistant/internal/interpreter"
	"warehouse-assistant/pkg/registry"
)

const TaskType = registry.InterpretMessageTaskType

// Interpreter is the part of interpreter.Interpreter the worker needs.
type Interpreter interface {
	Interpret(ctx context.Context, message, sessionID, userID string) *interpreter.Result
}

type Handler struct {
	config      *Config
	logger      logger.Logger
	obs         *observability.Observability
	interpreter Interpreter
	errHandler  *errors.ErrorHandler
	schema      map[string]interface{}
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Interpreter   Interpreter
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Interpreter == nil {
		return nil, fmt.Errorf("interpreter is required for %s", TaskType)
	}

	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	var schema map[string]interface{}
	if activity, ok := registry.Default().Find(TaskType); ok {
		schema = activity.InputSchema
	}

	return &Handler{
		config:      workerConfig,
		logger:      log.With(map[string]interface{}{"worker": TaskType}),
		obs:         opts.Observability,
		interpreter: opts.Interpreter,
		errHandler:  errors.NewErrorHandler(log),
		schema:      schema,
	}, nil
}

func (h *Handler) GetTaskType() string { return TaskType }

func (h *Handler) MaxJobsActive() int { return h.config.MaxJobsActive }

func (h *Handler) IsEnabled() bool { return h.config.Enabled }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing message", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	if !h.config.Enabled {
		h.logger.Info("Worker disabled by configuration", nil)
		h.completeJob(ctx, client, job, map[string]interface{}{"interpretationEnabled": false})
		return
	}

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err, startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, startTime)
		return
	}

	h.completeJob(ctx, client, job, output.variables())
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "completed")
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse job variables: %v", err))
	}

	result := validation.ValidateInput(variables, h.schema)
	if !result.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	input := &Input{}
	input.Message, _ = variables["message"].(string)
	input.SessionID, _ = variables["sessionId"].(string)
	input.UserID, _ = variables["userId"].(string)

	if len(input.Message) > h.config.MaxMessageLength {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("message: length %d exceeds %d", len(input.Message), h.config.MaxMessageLength))
	}
	return input, nil
}

// Execute interprets one message. Collaborator problems are reported in the
// interpretation itself, so the job still completes.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctx, span := h.obs.StartSpan(ctx, TaskType)
	defer span.End()

	res := h.interpreter.Interpret(ctx, input.Message, input.SessionID, input.UserID)
	if res == nil {
		return nil, errors.NewInternalError(fmt.Errorf("interpreter returned no result"))
	}

	h.logger.Info("Message interpreted", map[string]interface{}{
		"sessionId":  res.SessionID,
		"intent":     string(res.Intent),
		"confidence": res.Confidence,
		"success":    res.Success,
		"source":     string(res.Source),
	})
	return &Output{Interpretation: res}, nil
}

func (o *Output) variables() map[string]interface{} {
	res := o.Interpretation
	return map[string]interface{}{
		"interpretation": res,
		"intent":         string(res.Intent),
		"sessionId":      res.SessionID,
		"replySuccess":   res.Success,
		"replyMessage":   res.Message,
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, variables map[string]interface{}) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	code := string(errors.CodeOf(err))
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.obs.RecordJobProcessed(ctx, "failed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "failed")
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if workerCfg, exists := appConfig.Workers[TaskType]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = time.Duration(workerCfg.Timeout) * time.Millisecond
		}
	}
	return cfg
}
