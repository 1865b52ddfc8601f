package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"selectra/interview/internal/middleware"
	"selectra/interview/internal/models"
	"selectra/interview/internal/repositories"
	"selectra/interview/internal/session"
	"selectra/interview/internal/utils"
)

// SessionManager is the part of session.Manager the handlers use.
type SessionManager interface {
	Open(token, candidateID string) (*session.Session, bool, error)
	Get(token, candidateID string) (*session.Session, error)
	Close(token, candidateID string) error
}

type InterviewHandler struct {
	sessions SessionManager
	results  ResultReader
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewInterviewHandler wires the session endpoints. allowedOrigins limits
// websocket upgrades; "*" allows any origin.
func NewInterviewHandler(sessions SessionManager, results ResultReader, allowedOrigins []string, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{
		sessions: sessions,
		results:  results,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		logger:   logger,
	}
}

func (h *InterviewHandler) OpenSessionHandler(w http.ResponseWriter, r *http.Request) {
	token, candidateID, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	// a finished interview cannot be taken again
	if h.results != nil {
		_, err := h.results.GetByToken(r.Context(), token)
		if err == nil {
			utils.JSON(w, http.StatusConflict, models.ErrorResponse{
				Code:    "interview_completed",
				Message: "This interview has already been completed",
			})
			return
		}
		if !errors.Is(err, repositories.ErrResultNotFound) {
			h.logger.Warn("Result lookup failed while opening session", zap.String("token", token), zap.Error(err))
		}
	}

	s, created, err := h.sessions.Open(token, candidateID)
	if err != nil {
		h.writeSessionError(w, token, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeSnapshot(w, status, s)
}

func (h *InterviewHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeSnapshot(w, http.StatusOK, s)
}

func (h *InterviewHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Start(); err != nil {
		h.writeSessionError(w, s.Token(), err)
		return
	}
	h.writeSnapshot(w, http.StatusAccepted, s)
}

func (h *InterviewHandler) DraftHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.DraftRequest](r)

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := s.UpdateDraft(req.Answer); err != nil {
		h.writeSessionError(w, s.Token(), err)
		return
	}
	h.writeSnapshot(w, http.StatusOK, s)
}

func (h *InterviewHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.SubmitRequest](r)

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Submit(session.TriggerManual, req.Answer); err != nil {
		h.writeSessionError(w, s.Token(), err)
		return
	}
	h.writeSnapshot(w, http.StatusAccepted, s)
}

func (h *InterviewHandler) RetryHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Retry(); err != nil {
		h.writeSessionError(w, s.Token(), err)
		return
	}
	h.writeSnapshot(w, http.StatusAccepted, s)
}

func (h *InterviewHandler) CloseSessionHandler(w http.ResponseWriter, r *http.Request) {
	token, candidateID, ok := requestIdentity(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Close(token, candidateID); err != nil {
		h.writeSessionError(w, token, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InterviewHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	token, candidateID, ok := requestIdentity(w, r)
	if !ok {
		return nil, false
	}
	s, err := h.sessions.Get(token, candidateID)
	if err != nil {
		h.writeSessionError(w, token, err)
		return nil, false
	}
	return s, true
}

func (h *InterviewHandler) writeSnapshot(w http.ResponseWriter, status int, s *session.Session) {
	utils.JSON(w, status, models.SessionResponse{
		RequestID: uuid.New().String(),
		Session:   s.Snapshot(),
	})
}

func (h *InterviewHandler) writeSessionError(w http.ResponseWriter, token string, err error) {
	status, resp := sessionErrorResponse(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Session operation failed", zap.String("token", token), zap.Error(err))
	}
	utils.JSON(w, status, resp)
}

func sessionErrorResponse(err error) (int, models.ErrorResponse) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, models.ErrorResponse{Code: "session_not_found", Message: "No interview session for this token"}
	case errors.Is(err, session.ErrForbidden):
		return http.StatusForbidden, models.ErrorResponse{Code: "forbidden", Message: "This interview belongs to another candidate"}
	case errors.Is(err, session.ErrInvalidStage):
		return http.StatusConflict, models.ErrorResponse{Code: "invalid_stage", Message: "That action is not available right now"}
	case errors.Is(err, session.ErrSubmitInProgress):
		return http.StatusTooManyRequests, models.ErrorResponse{Code: "submit_in_progress", Message: "An answer is already being submitted"}
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusGone, models.ErrorResponse{Code: "session_closed", Message: "The interview session has ended"}
	default:
		return http.StatusInternalServerError, models.ErrorResponse{Code: "internal_error", Message: "Internal server error"}
	}
}

// requestIdentity reads the interview token and the authenticated candidate.
func requestIdentity(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	candidateID, ok := middleware.CandidateID(r.Context())
	if !ok {
		utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
			Code:    "unauthorized",
			Message: "Missing candidate identity",
		})
		return "", "", false
	}

	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "missing_token",
			Message: "Interview token is required",
		})
		return "", "", false
	}
	return token, candidateID, true
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[strings.TrimRight(origin, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
