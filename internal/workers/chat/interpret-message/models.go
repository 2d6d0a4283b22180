package interpretmessage

import "warehouse-assistant/internal/interpreter"

type Input struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

type Output struct {
	Interpretation *interpreter.Result `json:"interpretation"`
}
