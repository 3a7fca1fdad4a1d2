package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/koios/frame-renderer/pkg/models"
)

// EventHandler defines the interface for handling export requests
type EventHandler interface {
	Handle(ctx context.Context, request *models.ExportRequest) (*models.ExportResult, error)
}

// Consumer handles Redis stream consumption for export requests
type Consumer struct {
	client  *Client
	handler EventHandler
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewConsumer creates a new Redis consumer
func NewConsumer(client *Client, handler EventHandler, logger *zap.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		client:  client,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start consumes export requests until Stop is called
func (c *Consumer) Start() error {
	c.logger.Info("Starting Redis consumer for export requests")

	retry := &backoff.Backoff{
		Min:    time.Second,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("Redis consumer stopped")
			return nil
		default:
			if err := c.consumeMessages(retry); err != nil {
				delay := retry.Duration()
				c.logger.Error("Error consuming messages, will retry",
					zap.Error(err),
					zap.Duration("retry_delay", delay))
				select {
				case <-time.After(delay):
				case <-c.ctx.Done():
				}
				continue
			}
		}
	}
}

// Stop stops the consumer
func (c *Consumer) Stop() {
	c.logger.Info("Stopping Redis consumer")
	c.cancel()
}

// consumeMessages handles the actual message consumption from Redis Streams
func (c *Consumer) consumeMessages(retry *backoff.Backoff) error {
	c.logger.Info("Started consuming Redis stream messages")

	for {
		select {
		case <-c.ctx.Done():
			return nil
		default:
			// Read messages from stream with blocking timeout
			streams, err := c.client.ReadFromStream(c.ctx, 10, 5*time.Second)
			if err != nil {
				if c.ctx.Err() != nil {
					return nil
				}
				// Check if connection is healthy
				if !c.client.IsHealthy(c.ctx) {
					return fmt.Errorf("Redis connection unhealthy, will reconnect")
				}
				c.logger.Error("Error reading from stream", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			retry.Reset()

			for _, stream := range streams {
				for _, message := range stream.Messages {
					c.handleStreamMessage(message)
				}
			}
		}
	}
}

// handleStreamMessage processes a single Redis Stream message
func (c *Consumer) handleStreamMessage(msg redis.XMessage) {
	c.logger.Debug("Received export request from stream",
		zap.String("message_id", msg.ID),
		zap.Int("fields_count", len(msg.Values)))

	payload, ok := msg.Values["payload"].(string)
	if !ok {
		c.logger.Error("Failed to extract payload from stream message",
			zap.String("message_id", msg.ID))
		// Acknowledge the message anyway to prevent reprocessing
		_ = c.client.AcknowledgeMessage(c.ctx, msg.ID)
		return
	}

	var request models.ExportRequest
	if err := json.Unmarshal([]byte(payload), &request); err != nil {
		c.logger.Error("Failed to unmarshal export request",
			zap.Error(err),
			zap.String("message_id", msg.ID))
		// Acknowledge the message to prevent reprocessing bad data
		_ = c.client.AcknowledgeMessage(c.ctx, msg.ID)
		return
	}

	result, err := c.handler.Handle(c.ctx, &request)
	if err != nil {
		c.logger.Error("Failed to handle export request",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("uuid", request.UUID))
		if result == nil {
			result = &models.ExportResult{
				UUID:        request.UUID,
				Error:       err.Error(),
				ProcessedAt: time.Now(),
			}
		}
	}

	// Don't acknowledge if we failed to publish - allow retry
	if err := c.client.PublishExportResult(c.ctx, result); err != nil {
		c.logger.Error("Failed to publish export result",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("uuid", request.UUID))
		return
	}

	if err := c.client.AcknowledgeMessage(c.ctx, msg.ID); err != nil {
		c.logger.Error("Failed to acknowledge message",
			zap.Error(err),
			zap.String("message_id", msg.ID))
	} else {
		c.logger.Debug("Message processed and acknowledged",
			zap.String("message_id", msg.ID),
			zap.String("uuid", request.UUID))
	}
}
