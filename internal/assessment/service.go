package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"selectra/interview/internal/llm"
	"selectra/interview/internal/metrics"
	"selectra/interview/internal/models"
	"selectra/interview/internal/prompts"
	"selectra/interview/internal/utils"
)

// input limits, in characters
const (
	startContextLimit    = 2000
	followupContextLimit = 1500
	answerContextLimit   = 800
	finalContextLimit    = 1000
	transcriptLimit      = 3500
	transcriptEntryLimit = 300
	historyTail          = 6
)

// call purposes, used as prompt modes and metric labels
const (
	PurposeStartQuestion     = "start_question"
	PurposeNextQuestion      = "next_question"
	PurposeEvaluateAnswer    = "evaluate_answer"
	PurposeEvaluateInterview = "evaluate_interview"
)

var (
	ErrEmptyQuestion   = errors.New("model returned no question")
	ErrMissingScore    = errors.New("model returned no usable score")
	ErrUnparsableReply = errors.New("model reply is not valid JSON")
)

type Options struct {
	// QuestionFallback serves a CV-derived question when the model fails
	QuestionFallback bool
}

// Service turns interview steps into LLM prompts and parses the replies.
type Service struct {
	provider      llm.Provider
	promptManager prompts.PromptProvider
	opts          Options
	logger        *zap.Logger
}

func NewService(provider llm.Provider, promptManager prompts.PromptProvider, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Service{
		provider:      provider,
		promptManager: promptManager,
		opts:          opts,
		logger:        logger,
	}
}

type questionReply struct {
	Question  string `json:"question"`
	Type      string `json:"type"`
	FocusArea string `json:"focus_area"`
}

func (s *Service) StartInterview(ctx context.Context, jobDescription, resumeSummary string) (*models.QuestionResult, error) {
	data := map[string]interface{}{
		"JobDescription": utils.Truncate(jobDescription, startContextLimit),
		"ResumeSummary":  utils.Truncate(resumeSummary, startContextLimit),
	}

	result, err := s.askQuestion(ctx, PurposeStartQuestion, "default", data, "technical_cv_based")
	if err == nil {
		return result, nil
	}
	if !s.opts.QuestionFallback {
		return nil, err
	}

	s.logger.Warn("Serving fallback opening question", zap.Error(err))
	return &models.QuestionResult{
		Success:   true,
		Question:  openingFallbackQuestion(resumeSummary),
		Type:      "technical_cv_based",
		FocusArea: "general",
		Fallback:  true,
	}, nil
}

func (s *Service) GetNextQuestion(ctx context.Context, req models.NextQuestionRequest) (*models.QuestionResult, error) {
	history := req.History
	if len(history) > historyTail {
		history = history[len(history)-historyTail:]
	}

	data := map[string]interface{}{
		"JobDescription": utils.Truncate(req.JobDescription, followupContextLimit),
		"ResumeSummary":  utils.Truncate(req.ResumeSummary, followupContextLimit),
		"History":        history,
		"QuestionNumber": req.QuestionNumber,
		"TotalQuestions": req.TotalQuestions,
	}

	result, err := s.askQuestion(ctx, PurposeNextQuestion, focusVariant(req.QuestionNumber), data, "technical")
	if err == nil {
		return result, nil
	}
	if !s.opts.QuestionFallback {
		return nil, err
	}

	s.logger.Warn("Serving fallback follow-up question",
		zap.Int("question_number", req.QuestionNumber),
		zap.Error(err))
	return &models.QuestionResult{
		Success:   true,
		Question:  followupFallbackQuestion(req.ResumeSummary, req.QuestionNumber),
		Type:      "technical",
		FocusArea: "cv_based",
		Fallback:  true,
	}, nil
}

func (s *Service) askQuestion(ctx context.Context, purpose, variant string, data map[string]interface{}, defaultType string) (*models.QuestionResult, error) {
	var reply questionReply
	if err := s.generateJSON(ctx, purpose, variant, data, &reply); err != nil {
		return nil, err
	}

	question := strings.TrimSpace(reply.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if reply.Type == "" {
		reply.Type = defaultType
	}
	if reply.FocusArea == "" {
		reply.FocusArea = "technical"
	}

	return &models.QuestionResult{
		Success:   true,
		Question:  question,
		Type:      reply.Type,
		FocusArea: reply.FocusArea,
	}, nil
}

type scoreReply struct {
	Score    flexibleNumber `json:"score"`
	Feedback string         `json:"feedback"`
}

// EvaluateAnswer scores one answer. Failures are returned to the caller,
// which decides on a default.
func (s *Service) EvaluateAnswer(ctx context.Context, jobDescription, question, answer, resumeSummary string) (*models.AnswerScore, error) {
	data := map[string]interface{}{
		"JobDescription": utils.Truncate(jobDescription, answerContextLimit),
		"ResumeSummary":  utils.Truncate(resumeSummary, answerContextLimit),
		"Question":       question,
		"Answer":         answer,
	}

	var reply scoreReply
	if err := s.generateJSON(ctx, PurposeEvaluateAnswer, "default", data, &reply); err != nil {
		return nil, err
	}
	if !reply.Score.Valid {
		return nil, ErrMissingScore
	}

	return &models.AnswerScore{
		Score:    clampScore(reply.Score.Value),
		Feedback: strings.TrimSpace(reply.Feedback),
	}, nil
}

type evaluationReply struct {
	OverallScore        flexibleNumber `json:"overall_score"`
	Strengths           []string       `json:"strengths"`
	AreasForImprovement []string       `json:"areas_for_improvement"`
	Improvements        []string       `json:"improvements"`
	CVVerification      string         `json:"cv_verification"`
	JobFit              string         `json:"job_fit"`
	Recommendation      string         `json:"recommendation"`
	Summary             string         `json:"summary"`
}

// EvaluateFullInterview produces the service verdict for a finished
// interview. History, scores and completion time are left to the caller.
func (s *Service) EvaluateFullInterview(ctx context.Context, req models.FullEvaluationRequest) (*models.FinalEvaluation, error) {
	data := map[string]interface{}{
		"JobDescription": utils.Truncate(req.JobDescription, finalContextLimit),
		"ResumeSummary":  utils.Truncate(req.ResumeSummary, finalContextLimit),
		"Transcript":     buildTranscript(req.History),
		"AverageScore":   averageScore(req.Scores),
	}

	var reply evaluationReply
	if err := s.generateJSON(ctx, PurposeEvaluateInterview, "default", data, &reply); err != nil {
		return nil, err
	}
	if !reply.OverallScore.Valid {
		return nil, ErrMissingScore
	}

	overall := clampScore(reply.OverallScore.Value)
	areas := reply.AreasForImprovement
	if len(areas) == 0 {
		areas = reply.Improvements
	}

	return &models.FinalEvaluation{
		OverallScore:        overall,
		Recommendation:      normalizeRecommendation(reply.Recommendation),
		Summary:             strings.TrimSpace(reply.Summary),
		Strengths:           nonNil(reply.Strengths),
		AreasForImprovement: nonNil(areas),
		CVVerification:      orUnknown(reply.CVVerification),
		JobFit:              orUnknown(reply.JobFit),
	}, nil
}

// generateJSON renders the prompt, calls the provider and decodes the reply into out.
func (s *Service) generateJSON(ctx context.Context, purpose, variant string, data map[string]interface{}, out interface{}) error {
	requestID := uuid.New().String()

	prompt, err := s.promptManager.BuildPrompt(purpose, variant, data)
	if err != nil {
		s.logger.Error("Failed to build prompt", zap.Error(err), zap.String("request_id", requestID))
		return fmt.Errorf("build %s prompt: %w", purpose, err)
	}

	start := time.Now()
	response, err := s.provider.GenerateContent(ctx, prompt, requestID, purpose)
	metrics.ObserveLLM(purpose, start)
	if err != nil {
		s.logger.Error("AI provider error",
			zap.Error(err),
			zap.String("error_code", llm.ErrorCode(err)),
			zap.String("request_id", requestID),
			zap.String("purpose", purpose))
		return fmt.Errorf("%s: %w", purpose, err)
	}

	if err := decodeJSONReply(response.Content, out); err != nil {
		s.logger.Warn("Unparsable model reply",
			zap.String("request_id", requestID),
			zap.String("purpose", purpose),
			zap.String("reply", utils.Truncate(response.Content, 200)))
		return fmt.Errorf("%s: %w", purpose, err)
	}

	s.logger.Debug("Model reply parsed",
		zap.String("request_id", requestID),
		zap.String("purpose", purpose),
		zap.String("provider", s.provider.GetProviderName()),
		zap.Int("processing_time_ms", response.Metadata.ProcessingTime))
	return nil
}

// focusVariant picks the next_question variant for a question number.
func focusVariant(questionNumber int) string {
	switch {
	case questionNumber <= 2:
		return "project"
	case questionNumber <= 4:
		return "technical"
	case questionNumber <= 5:
		return "scenario"
	default:
		return "gap"
	}
}

func buildTranscript(history []models.HistoryMessage) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		prefix := "A"
		if msg.Role == models.RoleInterviewer {
			prefix = "Q"
		}
		lines = append(lines, prefix+": "+utils.Truncate(msg.Content, transcriptEntryLimit))
	}
	return utils.Truncate(strings.Join(lines, "\n"), transcriptLimit)
}

func averageScore(scores []models.AnswerScore) float64 {
	if len(scores) == 0 {
		return models.DefaultAnswerScore.Score
	}
	var total float64
	for _, s := range scores {
		total += s.Score
	}
	return total / float64(len(scores))
}

func clampScore(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// normalizeRecommendation maps the model's wording onto the three known
// values. Missing or unknown values become "consider".
func normalizeRecommendation(raw string) string {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_") {
	case models.RecommendationRecommend:
		return models.RecommendationRecommend
	case models.RecommendationNotRecommend:
		return models.RecommendationNotRecommend
	default:
		return models.RecommendationConsider
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
