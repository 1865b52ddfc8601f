package models

// result of a single LLM generation call
type GenerationResponse struct {
	Content   string             `json:"content"`
	RequestID string             `json:"request_id"`
	Metadata  GenerationMetadata `json:"metadata"`
}

type GenerationMetadata struct {
	ProcessingTime int    `json:"processing_time_ms"`
	Purpose        string `json:"purpose"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}
