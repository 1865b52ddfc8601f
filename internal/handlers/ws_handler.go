package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"selectra/interview/internal/models"
	"selectra/interview/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// SessionWSHandler streams a snapshot on every state change and timer tick,
// and accepts start/draft/submit/retry commands from the client.
func (h *InterviewHandler) SessionWSHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.String("token", s.Token()), zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	errFrames := make(chan models.WSFrame, 4)
	readDone := make(chan struct{})
	go h.readCommands(conn, s, errFrames, readDone)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			if err := writeFrame(conn, models.WSFrame{Type: "snapshot", Data: snap}); err != nil {
				return
			}
		case frame := <-errFrames:
			if err := writeFrame(conn, frame); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

func (h *InterviewHandler) readCommands(conn *websocket.Conn, s *session.Session, errFrames chan<- models.WSFrame, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd models.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}

		if err := applyCommand(s, cmd); err != nil {
			select {
			case errFrames <- errorFrame(err):
			default:
			}
		}
	}
}

func applyCommand(s *session.Session, cmd models.WSCommand) error {
	switch cmd.Type {
	case "start":
		return s.Start()
	case "retry":
		return s.Retry()
	case "draft":
		var req models.DraftRequest
		if err := decodeCommandData(cmd.Data, &req); err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		return s.UpdateDraft(req.Answer)
	case "submit":
		var req models.SubmitRequest
		if err := decodeCommandData(cmd.Data, &req); err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		return s.Submit(session.TriggerManual, req.Answer)
	default:
		return &models.ErrorResponse{Code: "unknown_type", Message: "Unknown command type"}
	}
}

func decodeCommandData(data json.RawMessage, out interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &models.ErrorResponse{Code: "invalid_json", Message: "Invalid command data"}
	}
	return nil
}

func errorFrame(err error) models.WSFrame {
	var resp *models.ErrorResponse
	if errors.As(err, &resp) {
		return models.WSFrame{Type: "error", Data: resp}
	}
	_, mapped := sessionErrorResponse(err)
	return models.WSFrame{Type: "error", Data: mapped}
}

func writeFrame(conn *websocket.Conn, frame models.WSFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}
