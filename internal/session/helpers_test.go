package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"selectra/interview/internal/models"
)

var errNetwork = errors.New("network unreachable")

type stubEvaluator struct {
	mu sync.Mutex

	startFailures int
	nextFailures  int
	nextBlock     chan struct{}
	scoreErr      map[string]error
	scoreValue    map[string]float64
	scoreDelay    map[string]time.Duration
	finalErr      error

	startCalls    int
	nextRequests  []models.NextQuestionRequest
	scored        []string
	finalRequests []models.FullEvaluationRequest
}

func newStubEvaluator() *stubEvaluator {
	return &stubEvaluator{
		scoreErr:   map[string]error{},
		scoreValue: map[string]float64{},
		scoreDelay: map[string]time.Duration{},
	}
}

func questionText(n int) string { return fmt.Sprintf("Question %d", n) }

func (e *stubEvaluator) StartInterview(ctx context.Context, jobDescription, resumeSummary string) (*models.QuestionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startCalls++
	if e.startFailures > 0 {
		e.startFailures--
		return nil, errNetwork
	}
	return &models.QuestionResult{Success: true, Question: questionText(1)}, nil
}

func (e *stubEvaluator) GetNextQuestion(ctx context.Context, req models.NextQuestionRequest) (*models.QuestionResult, error) {
	e.mu.Lock()
	e.nextRequests = append(e.nextRequests, req)
	fail := e.nextFailures > 0
	if fail {
		e.nextFailures--
	}
	block := e.nextBlock
	e.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errNetwork
	}
	return &models.QuestionResult{Success: true, Question: questionText(req.QuestionNumber)}, nil
}

func (e *stubEvaluator) EvaluateAnswer(ctx context.Context, jobDescription, question, answer, resumeSummary string) (*models.AnswerScore, error) {
	e.mu.Lock()
	e.scored = append(e.scored, question)
	delay := e.scoreDelay[question]
	err := e.scoreErr[question]
	value, ok := e.scoreValue[question]
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		value = 7
	}
	return &models.AnswerScore{Score: value, Feedback: "feedback for " + question}, nil
}

func (e *stubEvaluator) EvaluateFullInterview(ctx context.Context, req models.FullEvaluationRequest) (*models.FinalEvaluation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finalRequests = append(e.finalRequests, req)
	if e.finalErr != nil {
		return nil, e.finalErr
	}
	return &models.FinalEvaluation{
		OverallScore:        8,
		Recommendation:      models.RecommendationRecommend,
		Summary:             "Strong answers.",
		Strengths:           []string{"depth"},
		AreasForImprovement: []string{"brevity"},
	}, nil
}

func (e *stubEvaluator) scoredCount(question string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, q := range e.scored {
		if q == question {
			n++
		}
	}
	return n
}

func (e *stubEvaluator) nextRequestsCopy() []models.NextQuestionRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.NextQuestionRequest(nil), e.nextRequests...)
}

func (e *stubEvaluator) finalRequestsCopy() []models.FullEvaluationRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.FullEvaluationRequest(nil), e.finalRequests...)
}

type stubResolver struct {
	ictx *models.InterviewContext
	err  error
}

func (r *stubResolver) Resolve(ctx context.Context, token string) (*models.InterviewContext, error) {
	return r.ictx, r.err
}

type stubStore struct {
	mu    sync.Mutex
	saved map[string]*models.FinalEvaluation
	err   error
}

func (s *stubStore) SaveResult(ctx context.Context, token, candidateID string, eval *models.FinalEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = map[string]*models.FinalEvaluation{}
	}
	s.saved[token] = eval
	return nil
}

func (s *stubStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type stubNotifier struct {
	mu     sync.Mutex
	delay  time.Duration
	events []models.SessionEndedEvent
}

func (n *stubNotifier) SessionEnded(ctx context.Context, event models.SessionEndedEvent) error {
	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *stubNotifier) eventsCopy() []models.SessionEndedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.SessionEndedEvent(nil), n.events...)
}

var testContext = &models.InterviewContext{
	ApplicationID:  1,
	JobDescription: "Backend Engineer",
	ResumeSummary:  "Skills: Go, PostgreSQL",
}

func testConfig() Config {
	return Config{
		TotalQuestions:    3,
		TimeBudgetSeconds: 60,
		TickInterval:      time.Hour,
		CallTimeout:       2 * time.Second,
	}
}

type fixture struct {
	session   *Session
	evaluator *stubEvaluator
	store     *stubStore
	notifier  *stubNotifier
}

func newFixture(t *testing.T, cfg Config, ev *stubEvaluator) *fixture {
	t.Helper()
	f := &fixture{evaluator: ev, store: &stubStore{}, notifier: &stubNotifier{}}
	f.session = New("tok-1", "cand-1", cfg, Deps{
		Resolver:  &stubResolver{ictx: testContext},
		Evaluator: ev,
		Results:   f.store,
		Notifier:  f.notifier,
		Logger:    zap.NewNop(),
	})
	t.Cleanup(f.session.Close)
	return f
}

func waitFor(t *testing.T, s *Session, desc string, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := s.WaitFor(ctx, pred)
	if err != nil {
		t.Fatalf("waiting for %s: %v (stage=%s index=%d last_error=%q)", desc, err, snap.Stage, snap.QuestionIndex, snap.LastError)
	}
	return snap
}

func answering(index int) func(Snapshot) bool {
	return func(s Snapshot) bool {
		return s.Stage == StageAnswering && s.QuestionIndex == index && !s.AwaitingNext
	}
}

func stageIs(stage Stage) func(Snapshot) bool {
	return func(s Snapshot) bool { return s.Stage == stage }
}

// startInterview waits for Ready, starts and waits for the first question.
func (f *fixture) startInterview(t *testing.T) Snapshot {
	t.Helper()
	waitFor(t, f.session, "ready", stageIs(StageReady))
	if err := f.session.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return waitFor(t, f.session, "question 1", answering(1))
}

func strPtr(s string) *string { return &s }
