package models

import "encoding/json"

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// SessionResponse wraps a session snapshot returned by the interview endpoints.
type SessionResponse struct {
	RequestID string      `json:"request_id"`
	Session   interface{} `json:"session"`
}

// ResultResponse is returned by the result lookup endpoint.
type ResultResponse struct {
	Token      string           `json:"token"`
	Evaluation *FinalEvaluation `json:"evaluation"`
}

// WSFrame is a websocket message sent to the client.
type WSFrame struct {
	Type string      `json:"type"` // "snapshot", "error"
	Data interface{} `json:"data"`
}

// WSCommand is a websocket message received from the client.
type WSCommand struct {
	Type string          `json:"type"` // "start", "draft", "submit", "retry"
	Data json.RawMessage `json:"data,omitempty"`
}
