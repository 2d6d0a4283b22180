// Package notify tells warehouse staff when a chat stock update leaves a
// product at or under its reorder level.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	awsclients "warehouse-assistant/internal/common/aws"
	"warehouse-assistant/internal/common/logger"
)

var ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const (
	SeverityCritical = "CRITICAL"
	SeverityLow      = "LOW"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	Enabled      bool
	EmailEnabled bool
	SNSEnabled   bool
	AWSRegion    string
	TopicARN     string
	FromEmail    string
	ToEmails     []string
	Timeout      time.Duration
}

// LowStockEvent describes the product state right after an update.
type LowStockEvent struct {
	SKU          string
	Name         string
	Quantity     int
	Available    int
	ReorderLevel int
	Location     string
	SessionID    string
	UserID       string
}

func (e LowStockEvent) Severity() string {
	if e.Available <= 0 {
		return SeverityCritical
	}
	return SeverityLow
}

type Receipt struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"`
	SentAt         string `json:"sentAt"`
}

// Notifier is what the interpreter calls after a stock update.
type Notifier interface {
	NotifyLowStock(ctx context.Context, ev LowStockEvent) (*Receipt, error)
}

type AlertNotifier struct {
	config    *Config
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
	now       func() time.Time
}

func New(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *AlertNotifier {
	return &AlertNotifier{
		config:    config,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "low-stock-notifier"}),
		now:       time.Now,
	}
}

// NewFromAWS builds a notifier on the default AWS credential chain.
func NewFromAWS(ctx context.Context, config *Config, log logger.Logger) (*AlertNotifier, error) {
	sesClient, err := awsclients.NewSESClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	snsClient, err := awsclients.NewSNSClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return New(config, sesClient, snsClient, log), nil
}

func (n *AlertNotifier) NotifyLowStock(ctx context.Context, ev LowStockEvent) (*Receipt, error) {
	receipt := &Receipt{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		SentAt:         n.now().UTC().Format(time.RFC3339),
	}
	if !n.config.Enabled {
		return receipt, nil
	}

	if n.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.config.Timeout)
		defer cancel()
	}

	data := map[string]interface{}{
		"severity":     ev.Severity(),
		"sku":          ev.SKU,
		"name":         ev.Name,
		"quantity":     ev.Quantity,
		"available":    ev.Available,
		"reorderLevel": ev.ReorderLevel,
		"location":     valueOr(ev.Location, "unassigned"),
		"sessionId":    ev.SessionID,
		"userId":       valueOr(ev.UserID, "anonymous"),
	}
	subject := renderTemplate(subjectTemplate, data)
	body := renderTemplate(bodyTemplate, data)

	var errs []error
	sent := false

	if n.config.SNSEnabled && n.config.TopicARN != "" {
		if err := n.publish(ctx, subject, body); err != nil {
			n.logger.Error("low stock publish failed", map[string]interface{}{"sku": ev.SKU, "error": err.Error()})
			errs = append(errs, err)
		} else {
			sent = true
		}
	}

	if n.config.EmailEnabled && n.config.FromEmail != "" && len(n.config.ToEmails) > 0 {
		if err := n.sendEmail(ctx, subject, body); err != nil {
			n.logger.Error("low stock email failed", map[string]interface{}{"sku": ev.SKU, "error": err.Error()})
			errs = append(errs, err)
		} else {
			sent = true
		}
	}

	if len(errs) > 0 {
		receipt.Status = StatusFailed
		return receipt, fmt.Errorf("%w: %v", ErrNotificationSendFailed, errors.Join(errs...))
	}
	if sent {
		receipt.Status = StatusSent
		n.logger.Info("low stock alert sent", map[string]interface{}{
			"sku":            ev.SKU,
			"severity":       ev.Severity(),
			"notificationId": receipt.NotificationID,
		})
	}
	return receipt, nil
}

func (n *AlertNotifier) publish(ctx context.Context, subject, body string) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
	})
	return err
}

func (n *AlertNotifier) sendEmail(ctx context.Context, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: n.config.ToEmails,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	return err
}

// Noop drops every event.
type Noop struct{}

func (Noop) NotifyLowStock(context.Context, LowStockEvent) (*Receipt, error) {
	return &Receipt{Status: StatusDisabled}, nil
}

const (
	subjectTemplate = "[{{severity}}] Low stock: {{name}} ({{sku}})"
	bodyTemplate    = "{{name}} ({{sku}}) is at {{available}} available of {{quantity}} on hand, " +
		"reorder level {{reorderLevel}}. Location: {{location}}. Updated via chat by {{userId}} (session {{sessionId}})."
)

func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// drop placeholders nobody filled
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
