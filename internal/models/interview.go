package models

import "time"

// Role identifies who produced a turn in the interview exchange.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// NoAnswerSentinel replaces an empty draft when a question is submitted.
const NoAnswerSentinel = "(No answer provided)"

// recommendation values accepted from the evaluation service
const (
	RecommendationRecommend    = "recommend"
	RecommendationConsider     = "consider"
	RecommendationNotRecommend = "not_recommend"
)

// Turn is one message of the interview exchange. Never modified after append.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryMessage is the role/content projection of a Turn sent to the evaluation service.
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AnswerScore is the evaluation of a single answer on a 0-10 scale.
type AnswerScore struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// DefaultAnswerScore is recorded when scoring an answer fails.
var DefaultAnswerScore = AnswerScore{Score: 5, Feedback: "Answer recorded."}

// InterviewContext grounds every question and scoring call.
type InterviewContext struct {
	ApplicationID  uint   `json:"application_id"`
	JobDescription string `json:"job_description"`
	ResumeSummary  string `json:"resume_summary"`
}

// QuestionResult is what the evaluation service returns for a question request.
type QuestionResult struct {
	Success   bool   `json:"success"`
	Question  string `json:"question"`
	Type      string `json:"type,omitempty"`
	FocusArea string `json:"focus_area,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
}

type NextQuestionRequest struct {
	JobDescription string           `json:"job_description"`
	ResumeSummary  string           `json:"resume_summary"`
	History        []HistoryMessage `json:"conversation_history"`
	QuestionNumber int              `json:"question_number"`
	TotalQuestions int              `json:"total_questions"`
}

type FullEvaluationRequest struct {
	JobDescription string           `json:"job_description"`
	ResumeSummary  string           `json:"resume_summary"`
	History        []HistoryMessage `json:"conversation_history"`
	Scores         []AnswerScore    `json:"answer_scores"`
}

// FinalEvaluation is the terminal artifact of a completed interview.
type FinalEvaluation struct {
	OverallScore        float64       `json:"overall_score"`
	Recommendation      string        `json:"recommendation"`
	Summary             string        `json:"summary"`
	Strengths           []string      `json:"strengths"`
	AreasForImprovement []string      `json:"areas_for_improvement"`
	CVVerification      string        `json:"cv_verification,omitempty"`
	JobFit              string        `json:"job_fit,omitempty"`
	History             []Turn        `json:"history"`
	AnswerScores        []AnswerScore `json:"answer_scores"`
	CompletedAt         time.Time     `json:"completed_at"`
}

// session end statuses published to the notification channel
const (
	SessionStatusCompleted = "completed"
	SessionStatusErrored   = "errored"
)

// SessionEndedEvent tells downstream listeners that an interview session finished.
type SessionEndedEvent struct {
	Token          string    `json:"token"`
	CandidateID    string    `json:"candidateId"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	OverallScore   float64   `json:"overallScore,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	EndedAt        time.Time `json:"endedAt"`
}
