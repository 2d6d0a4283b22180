// Package registry describes the workflow activities this module provides:
// task types, input and output schemas and the error codes they may raise.
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"warehouse-assistant/internal/common/validation"
)

const (
	InterpretMessageID       = "chat.message.interpret"
	InterpretMessageTaskType = "interpret-message"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Default is the registry of the activities compiled into this module.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2025-03-01",
		Activities:  []Activity{interpretMessage()},
	}
}

// Find returns the activity with the given task type.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks activity ids and that task types are unique.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Activities))
	for _, a := range r.Activities {
		if err := validation.ValidateActivityNaming(a.ID); err != nil {
			return err
		}
		if a.TaskType == "" {
			return fmt.Errorf("activity %s has no task type", a.ID)
		}
		if seen[a.TaskType] {
			return fmt.Errorf("duplicate task type %s", a.TaskType)
		}
		seen[a.TaskType] = true
	}
	return nil
}

func interpretMessage() Activity {
	return Activity{
		ID:                   InterpretMessageID,
		DisplayName:          "Interpret Warehouse Message",
		Description:          "Classifies a warehouse chat message, extracts products and quantities, and composes a reply from live inventory.",
		Category:             "chat",
		Version:              "1.0.0",
		TaskType:             InterpretMessageTaskType,
		ImplementationStatus: "implemented",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"message"},
			"properties": map[string]interface{}{
				"message":   map[string]interface{}{"type": "string", "maxLength": 2000},
				"sessionId": map[string]interface{}{"type": "string", "maxLength": 128},
				"userId":    map[string]interface{}{"type": "string", "maxLength": 128},
			},
		},
		OutputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"interpretation"},
			"properties": map[string]interface{}{
				"interpretation": map[string]interface{}{"type": "object"},
			},
		},
		ErrorCodes: []string{
			"INVALID_INPUT",
			"COLLABORATOR_UNAVAILABLE",
			"INTERNAL_ERROR",
		},
		Timeout: "15s",
		Retries: 3,
		Tags:    []string{"warehouse", "inventory", "nlp"},
	}
}
