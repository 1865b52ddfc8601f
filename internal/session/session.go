package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"selectra/interview/internal/metrics"
	"selectra/interview/internal/models"
	"selectra/interview/internal/utils"
)

var (
	ErrNotFound         = errors.New("interview session not found")
	ErrForbidden        = errors.New("interview session belongs to another candidate")
	ErrInvalidStage     = errors.New("operation not allowed in the current stage")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrSessionClosed    = errors.New("interview session closed")

	errEmptyQuestion = errors.New("evaluator returned no question")
)

// reasons recorded on Errored sessions
const (
	ReasonContextUnavailable = "context_unavailable"
	ReasonAggregationFailed  = "aggregation_failed"
	ReasonClosed             = "closed"
)

// Evaluator produces questions and assessments.
type Evaluator interface {
	StartInterview(ctx context.Context, jobDescription, resumeSummary string) (*models.QuestionResult, error)
	GetNextQuestion(ctx context.Context, req models.NextQuestionRequest) (*models.QuestionResult, error)
	EvaluateAnswer(ctx context.Context, jobDescription, question, answer, resumeSummary string) (*models.AnswerScore, error)
	EvaluateFullInterview(ctx context.Context, req models.FullEvaluationRequest) (*models.FinalEvaluation, error)
}

type ContextResolver interface {
	Resolve(ctx context.Context, token string) (*models.InterviewContext, error)
}

type ResultStore interface {
	SaveResult(ctx context.Context, token, candidateID string, eval *models.FinalEvaluation) error
}

type Notifier interface {
	SessionEnded(ctx context.Context, event models.SessionEndedEvent) error
}

type Config struct {
	TotalQuestions    int
	TimeBudgetSeconds int
	// TickInterval is the length of one countdown second
	TickInterval time.Duration
	// CallTimeout bounds every evaluator, store and notifier call
	CallTimeout time.Duration
}

// Deps are the collaborators of a session. Results and Notifier may be nil.
type Deps struct {
	Resolver  ContextResolver
	Evaluator Evaluator
	Results   ResultStore
	Notifier  Notifier
	Logger    *zap.Logger
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Token             string                  `json:"token"`
	Stage             Stage                   `json:"stage"`
	QuestionIndex     int                     `json:"question_index"`
	TotalQuestions    int                     `json:"total_questions"`
	TimeBudgetSeconds int                     `json:"time_budget_seconds"`
	RemainingSeconds  int                     `json:"remaining_seconds"`
	CurrentQuestion   string                  `json:"current_question"`
	DraftAnswer       string                  `json:"draft_answer"`
	IsSubmitting      bool                    `json:"is_submitting"`
	AwaitingNext      bool                    `json:"awaiting_next"`
	History           []models.Turn           `json:"history"`
	ScoresRecorded    int                     `json:"scores_recorded"`
	LastError         string                  `json:"last_error,omitempty"`
	Retryable         bool                    `json:"retryable"`
	ErrorReason       string                  `json:"error_reason,omitempty"`
	Evaluation        *models.FinalEvaluation `json:"evaluation,omitempty"`
	EndedAt           *time.Time              `json:"ended_at,omitempty"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// Session runs one candidate through the interview. All state below the
// loop-owned marker is touched only by the run goroutine.
type Session struct {
	token       string
	candidateID string
	cfg         Config
	deps        Deps
	logger      *zap.Logger
	aggregator  *Aggregator

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan interface{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	isSubmitting atomic.Bool
	latest       atomic.Pointer[Snapshot]
	lastActivity atomic.Int64

	notifying sync.WaitGroup

	subMu      sync.Mutex
	subs       map[int]chan Snapshot
	nextSubID  int
	subsClosed bool

	// loop-owned
	stage           Stage
	ictx            *models.InterviewContext
	questionIndex   int
	remaining       int
	currentQuestion string
	// lastQuestion is the most recently asked question, kept while the
	// session waits for the next one
	lastQuestion    string
	draft           string
	awaitingNext    bool
	lastError       string
	retryable       bool
	reason          string
	evaluation      *models.FinalEvaluation
	endedAt         time.Time
	turns           *TurnLog
	timer           *Timer
	timerGen        uint64
	scoring         taskGroup
	pendingScores   map[int]models.AnswerScore
	nextScore       int
}

// commands, answered on reply
type startCmd struct{ reply chan error }

type draftCmd struct {
	text  string
	reply chan error
}

type submitCmd struct {
	trigger Trigger
	answer  *string
	reply   chan error
}

type retryCmd struct{ reply chan error }

// completions posted by background goroutines and the timer
type resolvedMsg struct {
	ictx *models.InterviewContext
	err  error
}

type questionMsg struct {
	number int
	result *models.QuestionResult
	err    error
}

type scoredMsg struct {
	number   int
	score    models.AnswerScore
	fallback bool
}

type tickMsg struct {
	gen       uint64
	remaining int
}

type expiredMsg struct{ gen uint64 }

type scoringDoneMsg struct{}

type finishedMsg struct {
	eval     *models.FinalEvaluation
	storeErr error
	err      error
}

// New creates a session in Loading and starts resolving its context.
func New(token, candidateID string, cfg Config, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = utils.GetLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		token:         token,
		candidateID:   candidateID,
		cfg:           cfg,
		deps:          deps,
		logger:        deps.Logger.With(zap.String("token", token)),
		aggregator:    NewAggregator(deps.Evaluator),
		ctx:           ctx,
		cancel:        cancel,
		events:        make(chan interface{}, 64),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		subs:          make(map[int]chan Snapshot),
		stage:         StageLoading,
		remaining:     cfg.TimeBudgetSeconds,
		turns:         NewTurnLog(),
		timer:         NewTimer(cfg.TickInterval),
		pendingScores: make(map[int]models.AnswerScore),
		nextScore:     1,
	}
	s.touch()
	s.publish()

	go s.run()
	go s.resolve()
	return s
}

func (s *Session) Token() string       { return s.token }
func (s *Session) CandidateID() string { return s.candidateID }

func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Start requests the first question. Allowed only in Ready.
func (s *Session) Start() error {
	reply := make(chan error, 1)
	return s.call(startCmd{reply: reply}, reply)
}

// UpdateDraft replaces the in-progress answer for the current question.
func (s *Session) UpdateDraft(text string) error {
	reply := make(chan error, 1)
	return s.call(draftCmd{text: text, reply: reply}, reply)
}

// Submit records the answer for the current question. A nil answer submits
// the current draft.
func (s *Session) Submit(trigger Trigger, answer *string) error {
	reply := make(chan error, 1)
	return s.call(submitCmd{trigger: trigger, answer: answer, reply: reply}, reply)
}

// Retry repeats the request that last failed: the first question in Ready,
// or the next question while awaiting it.
func (s *Session) Retry() error {
	reply := make(chan error, 1)
	return s.call(retryCmd{reply: reply}, reply)
}

// Snapshot returns the most recently published state.
func (s *Session) Snapshot() Snapshot {
	return *s.latest.Load()
}

// Subscribe returns a channel that always holds the latest snapshot. Slow
// readers skip intermediate states. The channel is closed when the session
// stops or cancel is called.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch <- s.Snapshot()
	if s.subsClosed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// WaitFor blocks until pred holds for a published snapshot.
func (s *Session) WaitFor(ctx context.Context, pred func(Snapshot) bool) (Snapshot, error) {
	ch, cancel := s.Subscribe()
	defer cancel()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				last := s.Snapshot()
				if pred(last) {
					return last, nil
				}
				return last, ErrSessionClosed
			}
			if pred(snap) {
				return snap, nil
			}
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// Close stops the session. A session that has not finished is marked
// Errored. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
	s.cancel()
}

func (s *Session) call(msg interface{}, reply chan error) error {
	if !s.post(msg) {
		return ErrSessionClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrSessionClosed
		}
	}
}

// post delivers msg to the loop. It returns false once the loop has stopped.
func (s *Session) post(msg interface{}) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- msg:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) run() {
	defer close(s.done)

	for {
		select {
		case <-s.quit:
			s.teardown()
			return
		case msg := <-s.events:
			if s.handle(msg) {
				s.publish()
			}
		}
	}
}

// handle applies one message and reports whether a snapshot still needs
// publishing.
func (s *Session) handle(msg interface{}) bool {
	switch m := msg.(type) {
	case startCmd:
		s.answer(m.reply, s.handleStart())
		return false
	case draftCmd:
		s.answer(m.reply, s.handleDraft(m.text))
		return false
	case submitCmd:
		s.answer(m.reply, s.handleSubmit(m.trigger, m.answer))
		return false
	case retryCmd:
		s.answer(m.reply, s.handleRetry())
		return false
	case resolvedMsg:
		return s.handleResolved(m)
	case questionMsg:
		return s.handleQuestion(m)
	case scoredMsg:
		s.handleScored(m)
	case tickMsg:
		if m.gen != s.timerGen || s.stage != StageAnswering {
			return false
		}
		s.remaining = m.remaining
	case expiredMsg:
		if m.gen != s.timerGen || s.stage != StageAnswering {
			return false
		}
		s.remaining = 0
		s.logger.Info("Answer time expired", zap.Int("question", s.questionIndex))
		if err := s.handleSubmit(TriggerTimeout, nil); err != nil {
			s.logger.Debug("Timeout submission ignored", zap.Error(err))
		}
	case scoringDoneMsg:
		return s.handleScoringDone()
	case finishedMsg:
		s.handleFinished(m)
	default:
		return false
	}
	return true
}

// answer publishes the state a command produced before replying, so callers
// observe their own change in Snapshot.
func (s *Session) answer(reply chan error, err error) {
	s.touch()
	s.publish()
	reply <- err
}

func (s *Session) resolve() {
	ctx, cancel := s.callContext()
	defer cancel()

	ictx, err := s.deps.Resolver.Resolve(ctx, s.token)
	if err == nil && ictx == nil {
		err = errors.New("resolver returned no context")
	}
	s.post(resolvedMsg{ictx: ictx, err: err})
}

func (s *Session) handleResolved(m resolvedMsg) bool {
	if s.stage != StageLoading {
		return false
	}
	if m.err != nil {
		s.fail(ReasonContextUnavailable, "Interview details could not be loaded.", m.err)
		return true
	}
	s.ictx = m.ictx
	s.stage = StageReady
	s.logger.Info("Interview context resolved", zap.Uint("application_id", m.ictx.ApplicationID))
	return true
}

func (s *Session) handleStart() error {
	if s.stage != StageReady {
		return ErrInvalidStage
	}
	s.stage = StageInProgress
	s.clearError()
	s.requestQuestion(1)
	return nil
}

func (s *Session) handleDraft(text string) error {
	if s.stage != StageAnswering || s.awaitingNext {
		return ErrInvalidStage
	}
	s.draft = text
	return nil
}

func (s *Session) handleRetry() error {
	switch {
	case s.stage == StageReady:
		return s.handleStart()
	case s.stage == StageAnswering && s.awaitingNext:
		return s.retryNext()
	case s.isSubmitting.Load():
		return ErrSubmitInProgress
	default:
		return ErrInvalidStage
	}
}

func (s *Session) handleSubmit(trigger Trigger, answer *string) error {
	if s.stage == StageAnswering && s.awaitingNext {
		// the answer is already recorded; only the next question is missing
		if trigger == TriggerTimeout {
			return ErrInvalidStage
		}
		return s.retryNext()
	}
	if s.stage != StageAnswering {
		if s.isSubmitting.Load() {
			return ErrSubmitInProgress
		}
		return ErrInvalidStage
	}
	if !s.isSubmitting.CompareAndSwap(false, true) {
		return ErrSubmitInProgress
	}

	s.stopTimer()

	text := s.draft
	if answer != nil {
		text = *answer
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = models.NoAnswerSentinel
	}

	question := s.currentQuestion
	s.turns.AppendCandidateTurn(text)
	s.draft = ""
	s.currentQuestion = ""
	s.stage = StageInProgress
	s.clearError()
	metrics.Submissions.WithLabelValues(string(trigger)).Inc()

	s.logger.Info("Answer submitted",
		zap.Int("question", s.questionIndex),
		zap.String("trigger", string(trigger)),
		zap.Bool("empty", text == models.NoAnswerSentinel))

	s.scoreAnswer(s.questionIndex, question, text)

	if s.questionIndex >= s.cfg.TotalQuestions {
		s.finalize()
		return nil
	}
	s.requestQuestion(s.questionIndex + 1)
	return nil
}

func (s *Session) retryNext() error {
	if !s.isSubmitting.CompareAndSwap(false, true) {
		return ErrSubmitInProgress
	}
	s.stage = StageInProgress
	s.awaitingNext = false
	s.currentQuestion = ""
	s.clearError()
	s.requestQuestion(s.questionIndex + 1)
	return nil
}

func (s *Session) requestQuestion(number int) {
	ictx := s.ictx
	history := s.turns.Messages()
	total := s.cfg.TotalQuestions
	evaluator := s.deps.Evaluator

	go func() {
		ctx, cancel := s.callContext()
		defer cancel()

		var result *models.QuestionResult
		var err error
		if number == 1 {
			result, err = evaluator.StartInterview(ctx, ictx.JobDescription, ictx.ResumeSummary)
		} else {
			result, err = evaluator.GetNextQuestion(ctx, models.NextQuestionRequest{
				JobDescription: ictx.JobDescription,
				ResumeSummary:  ictx.ResumeSummary,
				History:        history,
				QuestionNumber: number,
				TotalQuestions: total,
			})
		}
		if err == nil && (result == nil || !result.Success || strings.TrimSpace(result.Question) == "") {
			err = errEmptyQuestion
		}
		s.post(questionMsg{number: number, result: result, err: err})
	}()
}

func (s *Session) handleQuestion(m questionMsg) bool {
	if s.stage != StageInProgress || m.number != s.questionIndex+1 {
		return false
	}

	if m.err != nil {
		if m.number == 1 {
			metrics.QuestionFailures.WithLabelValues("start").Inc()
			s.logger.Warn("First question request failed", zap.Error(m.err))
			s.stage = StageReady
			s.setError("The first question could not be loaded. Please try again.", true)
			return true
		}
		metrics.QuestionFailures.WithLabelValues("next").Inc()
		s.logger.Warn("Next question request failed", zap.Int("question", m.number), zap.Error(m.err))
		s.stage = StageAnswering
		s.awaitingNext = true
		s.currentQuestion = s.lastQuestion
		s.isSubmitting.Store(false)
		s.setError("The next question could not be loaded. Please retry.", true)
		return true
	}

	if m.result.Fallback {
		s.logger.Info("Using fallback question", zap.Int("question", m.number))
	}
	s.enterAnswering(m.number, strings.TrimSpace(m.result.Question))
	return true
}

func (s *Session) enterAnswering(number int, question string) {
	s.turns.AppendInterviewerTurn(question)
	s.questionIndex = number
	s.currentQuestion = question
	s.lastQuestion = question
	s.draft = ""
	s.awaitingNext = false
	s.clearError()
	s.stage = StageAnswering
	s.restartTimer()
	s.isSubmitting.Store(false)
}

func (s *Session) restartTimer() {
	s.stopTimer()
	gen := s.timerGen
	s.remaining = s.cfg.TimeBudgetSeconds
	s.timer.Start(s.cfg.TimeBudgetSeconds,
		func(remaining int) { s.post(tickMsg{gen: gen, remaining: remaining}) },
		func() { s.post(expiredMsg{gen: gen}) })
}

// stopTimer cancels the countdown and invalidates callbacks already in flight.
func (s *Session) stopTimer() {
	s.timer.Cancel()
	s.timerGen++
}

func (s *Session) scoreAnswer(number int, question, answer string) {
	ictx := s.ictx
	evaluator := s.deps.Evaluator

	s.scoring.Go(func() {
		ctx, cancel := s.callContext()
		defer cancel()

		msg := scoredMsg{number: number, score: models.DefaultAnswerScore}
		score, err := evaluator.EvaluateAnswer(ctx, ictx.JobDescription, question, answer, ictx.ResumeSummary)
		if err != nil || score == nil {
			s.logger.Warn("Answer scoring failed, recording default score", zap.Int("question", number), zap.Error(err))
			msg.fallback = true
		} else {
			msg.score = *score
		}
		s.post(msg)
	})
}

// handleScored appends scores in question order, holding back any that
// arrive ahead of an earlier question.
func (s *Session) handleScored(m scoredMsg) {
	if m.fallback {
		metrics.ScoringFallbacks.Inc()
	}
	s.pendingScores[m.number] = m.score
	for {
		score, ok := s.pendingScores[s.nextScore]
		if !ok {
			return
		}
		s.turns.AppendScore(score)
		delete(s.pendingScores, s.nextScore)
		s.nextScore++
	}
}

func (s *Session) finalize() {
	go func() {
		s.scoring.Wait()
		s.post(scoringDoneMsg{})
	}()
}

func (s *Session) handleScoringDone() bool {
	if s.stage != StageInProgress {
		return false
	}

	turns := s.turns.History()
	scores := s.turns.Scores()
	ictx := s.ictx
	if answered := s.turns.Answered(); len(scores) != answered || answered != s.cfg.TotalQuestions {
		s.fail(ReasonAggregationFailed, "The final evaluation could not be produced.",
			fmt.Errorf("%d scores for %d answers of %d questions", len(scores), answered, s.cfg.TotalQuestions))
		return true
	}
	s.logger.Info("All answers scored, aggregating", zap.Int("scores", len(scores)))

	go func() {
		ctx, cancel := s.callContext()
		eval, err := s.aggregator.Aggregate(ctx, turns, scores, ictx)
		cancel()
		if err != nil {
			s.post(finishedMsg{err: err})
			return
		}

		var storeErr error
		if s.deps.Results != nil {
			storeCtx, storeCancel := s.callContext()
			storeErr = s.deps.Results.SaveResult(storeCtx, s.token, s.candidateID, eval)
			storeCancel()
		}
		s.post(finishedMsg{eval: eval, storeErr: storeErr})
	}()
	return false
}

func (s *Session) handleFinished(m finishedMsg) {
	if s.stage != StageInProgress {
		return
	}
	if m.err != nil {
		s.fail(ReasonAggregationFailed, "The final evaluation could not be produced.", m.err)
		return
	}

	s.stage = StageCompleted
	s.currentQuestion = ""
	s.evaluation = m.eval
	s.endedAt = time.Now().UTC()
	s.isSubmitting.Store(false)
	s.clearError()
	if m.storeErr != nil {
		s.logger.Error("Failed to store interview result", zap.Error(m.storeErr))
		s.setError("The evaluation could not be saved.", false)
	}

	metrics.SessionsFinished.WithLabelValues(StageCompleted.String()).Inc()
	s.logger.Info("Interview completed",
		zap.Float64("overall_score", m.eval.OverallScore),
		zap.String("recommendation", m.eval.Recommendation))
	s.notify(models.SessionStatusCompleted, "", m.eval)
}

// fail moves the session to Errored and informs the notifier.
func (s *Session) fail(reason, message string, err error) {
	s.stopTimer()
	s.stage = StageErrored
	s.currentQuestion = ""
	s.awaitingNext = false
	s.reason = reason
	s.endedAt = time.Now().UTC()
	s.isSubmitting.Store(false)
	s.setError(message, false)

	metrics.SessionsFinished.WithLabelValues(StageErrored.String()).Inc()
	s.logger.Error("Interview session failed", zap.String("reason", reason), zap.Error(err))
	s.notify(models.SessionStatusErrored, reason, nil)
}

func (s *Session) teardown() {
	if !s.stage.Terminal() {
		s.fail(ReasonClosed, "The interview session was closed.", ErrSessionClosed)
	} else {
		s.stopTimer()
	}
	s.publish()

	s.subMu.Lock()
	s.subsClosed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()
}

func (s *Session) notify(status, reason string, eval *models.FinalEvaluation) {
	if s.deps.Notifier == nil {
		return
	}
	event := models.SessionEndedEvent{
		Token:       s.token,
		CandidateID: s.candidateID,
		Status:      status,
		Reason:      reason,
		EndedAt:     s.endedAt,
	}
	if eval != nil {
		event.OverallScore = eval.OverallScore
		event.Recommendation = eval.Recommendation
	}

	s.notifying.Add(1)
	go func() {
		defer s.notifying.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout())
		defer cancel()
		if err := s.deps.Notifier.SessionEnded(ctx, event); err != nil {
			s.logger.Warn("Failed to publish session end", zap.Error(err))
		}
	}()
}

// waitNotified blocks until every session-end event handed to the notifier
// has been delivered or timed out.
func (s *Session) waitNotified() {
	s.notifying.Wait()
}

func (s *Session) setError(message string, retryable bool) {
	s.lastError = message
	s.retryable = retryable
}

func (s *Session) clearError() {
	s.lastError = ""
	s.retryable = false
}

func (s *Session) callTimeout() time.Duration {
	if s.cfg.CallTimeout > 0 {
		return s.cfg.CallTimeout
	}
	return 30 * time.Second
}

func (s *Session) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.callTimeout())
}

// publish stores a fresh snapshot and hands it to every subscriber, replacing
// any snapshot they have not read yet.
func (s *Session) publish() {
	snap := Snapshot{
		Token:             s.token,
		Stage:             s.stage,
		QuestionIndex:     s.questionIndex,
		TotalQuestions:    s.cfg.TotalQuestions,
		TimeBudgetSeconds: s.cfg.TimeBudgetSeconds,
		RemainingSeconds:  s.remaining,
		CurrentQuestion:   s.currentQuestion,
		DraftAnswer:       s.draft,
		IsSubmitting:      s.isSubmitting.Load(),
		AwaitingNext:      s.awaitingNext,
		History:           s.turns.History(),
		ScoresRecorded:    len(s.turns.scores),
		LastError:         s.lastError,
		Retryable:         s.retryable,
		ErrorReason:       s.reason,
		Evaluation:        s.evaluation,
		UpdatedAt:         time.Now().UTC(),
	}
	if !s.endedAt.IsZero() {
		ended := s.endedAt
		snap.EndedAt = &ended
	}
	s.latest.Store(&snap)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
