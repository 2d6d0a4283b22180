// Package fallback re-labels messages the rule classifier could not place,
// using a generative model. It is only consulted below the rule confidence
// threshold and never reports more than MaxConfidence.
package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"warehouse-assistant/internal/nlp/intent"
)

var (
	ErrFallbackFailed = errors.New("FALLBACK_FAILED")
	ErrRateLimited    = errors.New("FALLBACK_RATE_LIMITED")
)

// MaxConfidence caps whatever the model claims.
const MaxConfidence = 0.85

// Classification is the model's verdict.
type Classification struct {
	Intent     intent.Intent `json:"intent"`
	Confidence float64       `json:"confidence"`
}

// Classifier is what the interpreter consults for low-confidence messages.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Config struct {
	Timeout time.Duration
	// Rate is the sustained number of model calls per second.
	Rate  float64
	Burst int
}

// ModelClassifier asks a Generator for an intent label, throttled by a token
// bucket shared by every session.
type ModelClassifier struct {
	gen     Generator
	limiter *rate.Limiter
	timeout time.Duration
	logger  Logger
}

func NewModelClassifier(gen Generator, cfg Config, log Logger) *ModelClassifier {
	limit := rate.Limit(cfg.Rate)
	if cfg.Rate <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ModelClassifier{
		gen:     gen,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		logger:  log,
	}
}

func (c *ModelClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	if !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.gen.Generate(ctx, buildPrompt(text))
	if err != nil {
		c.logger.Warn("fallback generation failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrFallbackFailed, err)
	}

	out, err := parseReply(raw)
	if err != nil {
		c.logger.Warn("fallback reply unusable", map[string]interface{}{"reply": raw, "error": err.Error()})
		return nil, err
	}

	c.logger.Debug("fallback classified", map[string]interface{}{
		"intent":     out.Intent,
		"confidence": out.Confidence,
	})
	return out, nil
}

func buildPrompt(text string) string {
	labels := make([]string, 0, len(intent.All))
	for _, in := range intent.All {
		labels = append(labels, string(in))
	}

	var b strings.Builder
	b.WriteString("You label messages sent to a warehouse inventory assistant.\n")
	b.WriteString("Allowed intents: ")
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString(".\n")
	b.WriteString(`Reply with JSON only: {"intent": "<one allowed intent>", "confidence": <0..1>}.`)
	b.WriteString("\nMessage: ")
	b.WriteString(text)
	return b.String()
}

// parseReply accepts the JSON object bare or inside a markdown code fence.
func parseReply(raw string) (*Classification, error) {
	s := strings.TrimSpace(raw)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	var reply struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(s), &reply); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %v", ErrFallbackFailed, err)
	}

	in := intent.Parse(strings.ToLower(strings.TrimSpace(reply.Intent)))
	conf := reply.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > MaxConfidence {
		conf = MaxConfidence
	}
	if in == intent.Unknown && conf > intent.UnknownCeiling {
		conf = intent.UnknownCeiling
	}
	return &Classification{Intent: in, Confidence: conf}, nil
}
