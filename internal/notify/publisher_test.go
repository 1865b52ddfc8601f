package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"selectra/interview/internal/models"
)

// setupTestRedis creates a miniredis instance and a redis client for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestSessionEndedPublishesEvent(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	ctx := context.Background()
	p := NewPublisher(rdb, zap.NewNop())

	sub := rdb.Subscribe(ctx, SessionEndedChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	assert.NoError(t, err)

	event := models.SessionEndedEvent{
		Token:          "tok-1",
		CandidateID:    "cand-1",
		Status:         models.SessionStatusCompleted,
		OverallScore:   8,
		Recommendation: models.RecommendationRecommend,
		EndedAt:        time.Now().UTC().Truncate(time.Second),
	}
	assert.NoError(t, p.SessionEnded(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got models.SessionEndedEvent
		assert.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, event.Token, got.Token)
		assert.Equal(t, event.Status, got.Status)
		assert.Equal(t, 8.0, got.OverallScore)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	assert.True(t, mr.Exists(LastEventKey("tok-1")))
	assert.True(t, mr.TTL(LastEventKey("tok-1")) > 0)

	last, err := p.LastEvent(ctx, "tok-1")
	assert.NoError(t, err)
	assert.Equal(t, "cand-1", last.CandidateID)
}

func TestLastEventMissing(t *testing.T) {
	_, rdb := setupTestRedis(t)
	p := NewPublisher(rdb, zap.NewNop())

	last, err := p.LastEvent(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, last)
	assert.NoError(t, p.Ping(context.Background()))
}

func TestSessionEndedRedisDown(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	p := NewPublisher(rdb, zap.NewNop())
	mr.Close()

	err := p.SessionEnded(context.Background(), models.SessionEndedEvent{Token: "t", Status: models.SessionStatusErrored})
	assert.Error(t, err)
}
