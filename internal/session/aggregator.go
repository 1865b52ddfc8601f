package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"selectra/interview/internal/models"
)

var ErrAggregationFailed = errors.New("final evaluation failed")

// Aggregator produces the single FinalEvaluation of an interview.
type Aggregator struct {
	evaluator Evaluator
	now       func() time.Time
}

func NewAggregator(evaluator Evaluator) *Aggregator {
	return &Aggregator{evaluator: evaluator, now: time.Now}
}

// Aggregate asks the evaluator for the overall verdict and merges it with the
// locally held turns and scores. It never fills in a verdict of its own.
func (a *Aggregator) Aggregate(ctx context.Context, turns []models.Turn, scores []models.AnswerScore, ictx *models.InterviewContext) (*models.FinalEvaluation, error) {
	history := make([]models.HistoryMessage, len(turns))
	for i, t := range turns {
		history[i] = models.HistoryMessage{Role: t.Role, Content: t.Content}
	}

	verdict, err := a.evaluator.EvaluateFullInterview(ctx, models.FullEvaluationRequest{
		JobDescription: ictx.JobDescription,
		ResumeSummary:  ictx.ResumeSummary,
		History:        history,
		Scores:         scores,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregationFailed, err)
	}
	if verdict == nil {
		return nil, fmt.Errorf("%w: empty verdict", ErrAggregationFailed)
	}

	return &models.FinalEvaluation{
		OverallScore:        verdict.OverallScore,
		Recommendation:      verdict.Recommendation,
		Summary:             verdict.Summary,
		Strengths:           verdict.Strengths,
		AreasForImprovement: verdict.AreasForImprovement,
		CVVerification:      verdict.CVVerification,
		JobFit:              verdict.JobFit,
		History:             turns,
		AnswerScores:        scores,
		CompletedAt:         a.now().UTC(),
	}, nil
}
