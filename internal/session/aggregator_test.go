package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"selectra/interview/internal/models"
)

func TestAggregatorMergesVerdictWithLocalRecord(t *testing.T) {
	ev := newStubEvaluator()
	agg := NewAggregator(ev)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	agg.now = func() time.Time { return fixed }

	turns := []models.Turn{
		{Role: models.RoleInterviewer, Content: "Q1"},
		{Role: models.RoleCandidate, Content: "A1"},
	}
	scores := []models.AnswerScore{{Score: 6, Feedback: "ok"}}

	eval, err := agg.Aggregate(context.Background(), turns, scores, testContext)
	assert.NoError(t, err)
	assert.Equal(t, 8.0, eval.OverallScore)
	assert.Equal(t, models.RecommendationRecommend, eval.Recommendation)
	assert.Equal(t, turns, eval.History)
	assert.Equal(t, scores, eval.AnswerScores)
	assert.Equal(t, fixed, eval.CompletedAt)

	req := ev.finalRequestsCopy()[0]
	assert.Equal(t, testContext.JobDescription, req.JobDescription)
	assert.Equal(t, []models.HistoryMessage{
		{Role: models.RoleInterviewer, Content: "Q1"},
		{Role: models.RoleCandidate, Content: "A1"},
	}, req.History)
}

func TestAggregatorFailureIsWrapped(t *testing.T) {
	ev := newStubEvaluator()
	ev.finalErr = errNetwork

	eval, err := NewAggregator(ev).Aggregate(context.Background(), nil, nil, testContext)
	assert.Nil(t, eval)
	assert.True(t, errors.Is(err, ErrAggregationFailed))
	assert.True(t, errors.Is(err, errNetwork))
}
