package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"selectra/interview/internal/middleware"
	"selectra/interview/internal/models"
	"selectra/interview/internal/notify"
)

func TestGetResultHandler(t *testing.T) {
	env := newTestEnv(t)
	err := env.results.SaveResult(context.Background(), "tok-1", "cand-1", &models.FinalEvaluation{
		OverallScore:   8,
		Recommendation: models.RecommendationRecommend,
		Summary:        "Clear and thorough.",
		Strengths:      []string{"communication"},
		CompletedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)

	t.Run("owner reads result", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/interviews/tok-1/result", "cand-1", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var body models.ResultResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "tok-1", body.Token)
		assert.Equal(t, 8.0, body.Evaluation.OverallScore)
		assert.Equal(t, []string{"communication"}, body.Evaluation.Strengths)
	})

	t.Run("other candidate forbidden", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/interviews/tok-1/result", "cand-2", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/interviews/tok-9/result", "cand-1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "result_not_found", decodeError(t, rec).Code)
	})
}

func TestGetResultHandler_ErroredSessionReportsReason(t *testing.T) {
	env := newTestEnv(t)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	publisher := notify.NewPublisher(rdb, zap.NewNop())
	assert.NoError(t, publisher.SessionEnded(context.Background(), models.SessionEndedEvent{
		Token:       "tok-1",
		CandidateID: "cand-1",
		Status:      models.SessionStatusErrored,
		Reason:      "aggregation_failed",
		EndedAt:     time.Now().UTC(),
	}))

	handler := NewResultHandler(env.results, publisher, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/interviews/{token}/result", func(w http.ResponseWriter, req *http.Request) {
		req = req.WithContext(middleware.WithCandidateID(req.Context(), req.Header.Get(candidateHeader)))
		handler.GetResultHandler(w, req)
	})

	get := func(token, candidateID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/interviews/"+token+"/result", nil)
		req.Header.Set(candidateHeader, candidateID)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := get("tok-1", "cand-1")
	assert.Equal(t, http.StatusGone, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "interview_errored", body.Code)
	if assert.Len(t, body.Details, 1) {
		assert.Equal(t, "aggregation_failed", body.Details[0].Reason)
	}

	assert.Equal(t, http.StatusForbidden, get("tok-1", "cand-2").Code)
	assert.Equal(t, http.StatusNotFound, get("tok-2", "cand-1").Code)
}
