package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/koios/frame-renderer/internal/config"
	"github.com/koios/frame-renderer/pkg/models"
)

type stubHandler struct {
	requests chan *models.ExportRequest
}

func (s *stubHandler) Handle(_ context.Context, request *models.ExportRequest) (*models.ExportResult, error) {
	s.requests <- request
	return &models.ExportResult{UUID: request.UUID, PNG: "cG5n", Width: 1024, Height: 1024, ProcessedAt: time.Now()}, nil
}

func TestResultChannel(t *testing.T) {
	if got := ResultChannel("abc"); got != "export:abc" {
		t.Errorf("got %q, want export:abc", got)
	}
}

func TestConsumerRoundTrip(t *testing.T) {
	// This test requires a running Redis instance
	// Skip if Redis is not available
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 1})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	cfg := config.RedisConfig{Addr: "localhost:6379", DB: 1, ConsumerGroup: "test-" + uuid.NewString()}
	client := NewClientFromRedis(ctx, rdb, cfg, zap.NewNop())
	defer rdb.XGroupDestroy(ctx, StreamKey, cfg.ConsumerGroup)

	handler := &stubHandler{requests: make(chan *models.ExportRequest, 1)}

	id := uuid.NewString()
	sub := rdb.Subscribe(ctx, ResultChannel(id))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	// skip entries left by earlier runs
	rdb.XGroupSetID(ctx, StreamKey, cfg.ConsumerGroup, "$")

	if _, err := client.EnqueueExport(ctx, &models.ExportRequest{
		UUID:   id,
		Config: json.RawMessage(`{"type":"NONE","width":0}`),
	}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	consumer := NewConsumer(client, handler, zap.NewNop())
	go consumer.Start()
	defer consumer.Stop()

	select {
	case req := <-handler.requests:
		if req.UUID != id {
			t.Fatalf("Expected uuid %s, got %s", id, req.UUID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Consumer did not receive the request")
	}

	recvCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	if err != nil {
		t.Fatalf("Failed to receive result: %v", err)
	}
	var result models.ExportResult
	if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.UUID != id || result.PNG == "" {
		t.Errorf("Unexpected result: %+v", result)
	}
}
