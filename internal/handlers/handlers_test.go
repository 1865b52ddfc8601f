package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"selectra/interview/internal/middleware"
	"selectra/interview/internal/models"
	"selectra/interview/internal/repositories"
	"selectra/interview/internal/resolver"
	"selectra/interview/internal/session"
	"selectra/interview/internal/testhelpers"
)

const candidateHeader = "X-Test-Candidate"

type fakeEvaluator struct{}

func (fakeEvaluator) StartInterview(ctx context.Context, jobDescription, resumeSummary string) (*models.QuestionResult, error) {
	return &models.QuestionResult{Success: true, Question: "Question 1"}, nil
}

func (fakeEvaluator) GetNextQuestion(ctx context.Context, req models.NextQuestionRequest) (*models.QuestionResult, error) {
	return &models.QuestionResult{Success: true, Question: fmt.Sprintf("Question %d", req.QuestionNumber)}, nil
}

func (fakeEvaluator) EvaluateAnswer(ctx context.Context, jobDescription, question, answer, resumeSummary string) (*models.AnswerScore, error) {
	return &models.AnswerScore{Score: 7, Feedback: "ok"}, nil
}

func (fakeEvaluator) EvaluateFullInterview(ctx context.Context, req models.FullEvaluationRequest) (*models.FinalEvaluation, error) {
	return &models.FinalEvaluation{OverallScore: 7, Recommendation: models.RecommendationRecommend, Summary: "Solid."}, nil
}

type testEnv struct {
	db      *gorm.DB
	results *repositories.ResultRepository
	manager *session.Manager
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testhelpers.SetupTestDB(t)
	apps := &repositories.ApplicationRepository{DB: db}
	results := &repositories.ResultRepository{DB: db}

	manager := session.NewManager(session.Config{
		TotalQuestions:    2,
		TimeBudgetSeconds: 60,
		TickInterval:      time.Hour,
		CallTimeout:       2 * time.Second,
	}, session.ManagerDeps{
		Resolvers: func(candidateID string) session.ContextResolver {
			return resolver.New(apps, candidateID)
		},
		Evaluator: fakeEvaluator{},
		Results:   results,
		Logger:    zap.NewNop(),
	})
	t.Cleanup(manager.Shutdown)

	interviews := NewInterviewHandler(manager, results, []string{"*"}, zap.NewNop())
	resultHandler := NewResultHandler(results, nil, zap.NewNop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := req.Header.Get(candidateHeader); id != "" {
				req = req.WithContext(middleware.WithCandidateID(req.Context(), id))
			} else if id := req.URL.Query().Get("candidate"); id != "" {
				req = req.WithContext(middleware.WithCandidateID(req.Context(), id))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/interviews/{token}", func(r chi.Router) {
		r.Post("/", interviews.OpenSessionHandler)
		r.Get("/", interviews.GetSessionHandler)
		r.Delete("/", interviews.CloseSessionHandler)
		r.Post("/start", interviews.StartHandler)
		r.With(middleware.ValidateRequest[*models.DraftRequest]()).Put("/draft", interviews.DraftHandler)
		r.With(middleware.ValidateRequest[*models.SubmitRequest]()).Post("/submit", interviews.SubmitHandler)
		r.Post("/retry", interviews.RetryHandler)
		r.Get("/ws", interviews.SessionWSHandler)
		r.Get("/result", resultHandler.GetResultHandler)
	})

	return &testEnv{db: db, results: results, manager: manager, router: r}
}

func (e *testEnv) do(method, path, candidateID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if candidateID != "" {
		req.Header.Set(candidateHeader, candidateID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) waitForStage(t *testing.T, token, candidateID, stage string) {
	t.Helper()
	s, err := e.manager.Get(token, candidateID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.WaitFor(ctx, func(snap session.Snapshot) bool { return snap.Stage.String() == stage }); err != nil {
		t.Fatalf("waiting for %s: %v", stage, err)
	}
}

type snapshotBody struct {
	RequestID string `json:"request_id"`
	Session   struct {
		Token           string `json:"token"`
		Stage           string `json:"stage"`
		QuestionIndex   int    `json:"question_index"`
		CurrentQuestion string `json:"current_question"`
		DraftAnswer     string `json:"draft_answer"`
	} `json:"session"`
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) snapshotBody {
	t.Helper()
	var body snapshotBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error %q: %v", rec.Body.String(), err)
	}
	return body
}
