package models

import (
	"time"

	"gorm.io/gorm"
)

// InterviewResult is the persisted hand-off of a completed interview.
type InterviewResult struct {
	gorm.Model
	Token               string        `gorm:"uniqueIndex;not null" json:"token"`
	CandidateID         string        `gorm:"index" json:"candidate_id"`
	OverallScore        float64       `json:"overall_score"`
	Recommendation      string        `gorm:"not null" json:"recommendation"`
	Summary             string        `gorm:"type:text" json:"summary"`
	Strengths           []string      `gorm:"serializer:json" json:"strengths"`
	AreasForImprovement []string      `gorm:"serializer:json" json:"areas_for_improvement"`
	CVVerification      string        `json:"cv_verification"`
	JobFit              string        `json:"job_fit"`
	History             []Turn        `gorm:"serializer:json" json:"history"`
	AnswerScores        []AnswerScore `gorm:"serializer:json" json:"answer_scores"`
	CompletedAt         time.Time     `gorm:"not null" json:"completed_at"`
}

// NewInterviewResult copies an evaluation into its storage form.
func NewInterviewResult(token, candidateID string, eval *FinalEvaluation) *InterviewResult {
	return &InterviewResult{
		Token:               token,
		CandidateID:         candidateID,
		OverallScore:        eval.OverallScore,
		Recommendation:      eval.Recommendation,
		Summary:             eval.Summary,
		Strengths:           eval.Strengths,
		AreasForImprovement: eval.AreasForImprovement,
		CVVerification:      eval.CVVerification,
		JobFit:              eval.JobFit,
		History:             eval.History,
		AnswerScores:        eval.AnswerScores,
		CompletedAt:         eval.CompletedAt,
	}
}

// Evaluation converts the stored record back to a FinalEvaluation.
func (r *InterviewResult) Evaluation() *FinalEvaluation {
	return &FinalEvaluation{
		OverallScore:        r.OverallScore,
		Recommendation:      r.Recommendation,
		Summary:             r.Summary,
		Strengths:           r.Strengths,
		AreasForImprovement: r.AreasForImprovement,
		CVVerification:      r.CVVerification,
		JobFit:              r.JobFit,
		History:             r.History,
		AnswerScores:        r.AnswerScores,
		CompletedAt:         r.CompletedAt,
	}
}
