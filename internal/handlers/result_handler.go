package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"selectra/interview/internal/models"
	"selectra/interview/internal/repositories"
	"selectra/interview/internal/utils"
)

type ResultReader interface {
	GetByToken(ctx context.Context, token string) (*models.InterviewResult, error)
}

// SessionEventReader returns the last session-ended event recorded for a token.
type SessionEventReader interface {
	LastEvent(ctx context.Context, token string) (*models.SessionEndedEvent, error)
}

type ResultHandler struct {
	results ResultReader
	events  SessionEventReader
	logger  *zap.Logger
}

// NewResultHandler serves stored evaluations. events may be nil, in which case
// interviews that ended without a result are reported as not found.
func NewResultHandler(results ResultReader, events SessionEventReader, logger *zap.Logger) *ResultHandler {
	return &ResultHandler{results: results, events: events, logger: logger}
}

// GetResultHandler returns the stored evaluation of a completed interview.
func (h *ResultHandler) GetResultHandler(w http.ResponseWriter, r *http.Request) {
	token, candidateID, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	result, err := h.results.GetByToken(r.Context(), token)
	if errors.Is(err, repositories.ErrResultNotFound) {
		if event := h.erroredEvent(r, token); event != nil {
			if event.CandidateID != candidateID {
				utils.JSON(w, http.StatusForbidden, models.ErrorResponse{
					Code:    "forbidden",
					Message: "This interview belongs to another candidate",
				})
				return
			}
			utils.JSON(w, http.StatusGone, models.ErrorResponse{
				Code:    "interview_errored",
				Message: "The interview ended without an evaluation",
				Details: []models.ValidationErrorDetail{{Field: "reason", Reason: event.Reason}},
			})
			return
		}
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "result_not_found",
			Message: "No evaluation is available for this interview yet",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load interview result", zap.String("token", token), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "internal_error",
			Message: "Failed to load interview result",
		})
		return
	}

	if result.CandidateID != candidateID {
		utils.JSON(w, http.StatusForbidden, models.ErrorResponse{
			Code:    "forbidden",
			Message: "This interview belongs to another candidate",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.ResultResponse{
		Token:      result.Token,
		Evaluation: result.Evaluation(),
	})
}

// erroredEvent returns the end event of a session that stopped without a
// result, or nil.
func (h *ResultHandler) erroredEvent(r *http.Request, token string) *models.SessionEndedEvent {
	if h.events == nil {
		return nil
	}
	event, err := h.events.LastEvent(r.Context(), token)
	if err != nil {
		h.logger.Warn("Failed to read last session event", zap.String("token", token), zap.Error(err))
		return nil
	}
	if event == nil || event.Status != models.SessionStatusErrored {
		return nil
	}
	return event
}
