package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"selectra/interview/internal/models"
)

const (
	SessionEndedChannel = "interview_ended"
	lastEventKeyPrefix  = "interview:ended:"
	lastEventTTL        = 24 * time.Hour
)

// Publisher announces finished interview sessions on redis pub/sub. The last
// event per token is also kept under a key so late consumers can read it.
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

func (p *Publisher) SessionEnded(ctx context.Context, event models.SessionEndedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session ended event: %w", err)
	}

	if err := p.rdb.Set(ctx, LastEventKey(event.Token), payload, lastEventTTL).Err(); err != nil {
		p.logger.Warn("Failed to store last session event", zap.String("token", event.Token), zap.Error(err))
	}

	receivers, err := p.rdb.Publish(ctx, SessionEndedChannel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish session ended event: %w", err)
	}

	p.logger.Info("Published interview_ended event",
		zap.String("token", event.Token),
		zap.String("status", event.Status),
		zap.Int64("receivers", receivers))
	return nil
}

// LastEvent returns the most recent event published for token, or nil.
func (p *Publisher) LastEvent(ctx context.Context, token string) (*models.SessionEndedEvent, error) {
	raw, err := p.rdb.Get(ctx, LastEventKey(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var event models.SessionEndedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("decode session ended event: %w", err)
	}
	return &event, nil
}

// Ping reports whether redis is reachable.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func LastEventKey(token string) string {
	return lastEventKeyPrefix + token
}
