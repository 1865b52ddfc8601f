package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"selectra/interview/internal/metrics"
	"selectra/interview/internal/utils"
)

// ResolverFactory returns a context resolver scoped to one candidate.
type ResolverFactory func(candidateID string) ContextResolver

type ManagerDeps struct {
	Resolvers ResolverFactory
	Evaluator Evaluator
	Results   ResultStore
	Notifier  Notifier
	Logger    *zap.Logger
}

// Manager keeps the live sessions, one per interview token.
type Manager struct {
	cfg  Config
	deps ManagerDeps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg Config, deps ManagerDeps) *Manager {
	if deps.Logger == nil {
		deps.Logger = utils.GetLogger()
	}
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for token, creating it on first use.
func (m *Manager) Open(token, candidateID string) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[token]; ok {
		if s.CandidateID() != candidateID {
			return nil, false, ErrForbidden
		}
		return s, false, nil
	}

	s := New(token, candidateID, m.cfg, Deps{
		Resolver:  m.deps.Resolvers(candidateID),
		Evaluator: m.deps.Evaluator,
		Results:   m.deps.Results,
		Notifier:  m.deps.Notifier,
		Logger:    m.deps.Logger,
	})
	m.sessions[token] = s
	metrics.SessionsOpened.Inc()
	m.deps.Logger.Info("Interview session opened", zap.String("token", token), zap.String("candidate_id", candidateID))
	return s, true, nil
}

// Get returns the live session for token if candidateID owns it.
func (m *Manager) Get(token, candidateID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[token]
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.CandidateID() != candidateID {
		return nil, ErrForbidden
	}
	return s, nil
}

// Close tears the session down and forgets it.
func (m *Manager) Close(token, candidateID string) error {
	m.mu.Lock()
	s, ok := m.sessions[token]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if s.CandidateID() != candidateID {
		m.mu.Unlock()
		return ErrForbidden
	}
	delete(m.sessions, token)
	m.mu.Unlock()

	s.Close()
	m.deps.Logger.Info("Interview session closed", zap.String("token", token))
	return nil
}

// Sweep closes sessions that finished more than retainTTL ago or saw no
// candidate activity for idleTTL. It returns how many were removed.
func (m *Manager) Sweep(now time.Time, idleTTL, retainTTL time.Duration) int {
	var expired []*Session

	m.mu.Lock()
	for token, s := range m.sessions {
		snap := s.Snapshot()
		finished := snap.EndedAt != nil && now.Sub(*snap.EndedAt) > retainTTL
		idle := !snap.Stage.Terminal() && now.Sub(s.LastActivity()) > idleTTL
		if finished || idle {
			expired = append(expired, s)
			delete(m.sessions, token)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.deps.Logger.Info("Swept interview sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session and waits for their end events to be
// delivered.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for token, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, token)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	for _, s := range sessions {
		s.waitNotified()
	}
}
