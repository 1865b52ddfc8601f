package session

import (
	"time"

	"selectra/interview/internal/models"
)

// TurnLog is the append-only record of the exchange and the answer scores.
// It is owned by the session loop and not safe for concurrent use.
type TurnLog struct {
	turns  []models.Turn
	scores []models.AnswerScore
	now    func() time.Time
}

func NewTurnLog() *TurnLog {
	return &TurnLog{now: time.Now}
}

func (l *TurnLog) AppendInterviewerTurn(text string) {
	l.append(models.RoleInterviewer, text)
}

func (l *TurnLog) AppendCandidateTurn(text string) {
	l.append(models.RoleCandidate, text)
}

func (l *TurnLog) append(role models.Role, text string) {
	l.turns = append(l.turns, models.Turn{Role: role, Content: text, Timestamp: l.now().UTC()})
}

func (l *TurnLog) AppendScore(score models.AnswerScore) {
	l.scores = append(l.scores, score)
}

// History returns a copy of all turns in order.
func (l *TurnLog) History() []models.Turn {
	out := make([]models.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Scores returns a copy of the recorded scores in question order.
func (l *TurnLog) Scores() []models.AnswerScore {
	out := make([]models.AnswerScore, len(l.scores))
	copy(out, l.scores)
	return out
}

// Messages projects the turns to role/content pairs.
func (l *TurnLog) Messages() []models.HistoryMessage {
	out := make([]models.HistoryMessage, len(l.turns))
	for i, t := range l.turns {
		out[i] = models.HistoryMessage{Role: t.Role, Content: t.Content}
	}
	return out
}

// Answered counts candidate turns.
func (l *TurnLog) Answered() int {
	n := 0
	for _, t := range l.turns {
		if t.Role == models.RoleCandidate {
			n++
		}
	}
	return n
}
