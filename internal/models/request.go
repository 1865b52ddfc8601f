package models

import "strings"

// MaxAnswerLength bounds a single candidate answer.
const MaxAnswerLength = 10000

type DraftRequest struct {
	Answer string `json:"answer"`
}

func (r *DraftRequest) Validate() error {
	if len(r.Answer) > MaxAnswerLength {
		return &ErrorResponse{
			Code:    "answer_too_long",
			Message: "Answer exceeds the maximum length",
			Details: []ValidationErrorDetail{{Field: "answer", Reason: "max 10000 characters"}},
		}
	}
	return nil
}

// SubmitRequest optionally carries the final answer text. When Answer is nil
// the current draft is submitted.
type SubmitRequest struct {
	Answer *string `json:"answer,omitempty"`
}

func (r *SubmitRequest) Validate() error {
	if r.Answer == nil {
		return nil
	}
	if len(*r.Answer) > MaxAnswerLength {
		return &ErrorResponse{
			Code:    "answer_too_long",
			Message: "Answer exceeds the maximum length",
			Details: []ValidationErrorDetail{{Field: "answer", Reason: "max 10000 characters"}},
		}
	}
	trimmed := strings.TrimSpace(*r.Answer)
	r.Answer = &trimmed
	return nil
}
