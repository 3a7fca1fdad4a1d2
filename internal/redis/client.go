package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/koios/frame-renderer/internal/config"
	"github.com/koios/frame-renderer/pkg/models"
)

// StreamKey is the stream export requests are queued on.
const StreamKey = "frames:export_requests"

// ResultChannel is the pub/sub channel an export result is published on.
func ResultChannel(uuid string) string {
	return "export:" + uuid
}

// Client wraps the Redis client for stream and pub/sub operations
type Client struct {
	client *redis.Client
	config config.RedisConfig
	logger *zap.Logger
}

// NewClient creates a new Redis client
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
	})

	// Test the connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newClient(ctx, rdb, cfg, logger), nil
}

// NewClientFromRedis wraps an existing connection
func NewClientFromRedis(ctx context.Context, rdb *redis.Client, cfg config.RedisConfig, logger *zap.Logger) *Client {
	return newClient(ctx, rdb, cfg, logger)
}

func newClient(ctx context.Context, rdb *redis.Client, cfg config.RedisConfig, logger *zap.Logger) *Client {
	// Generate consumer name if not provided
	if cfg.ConsumerName == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "unknown"
		}
		cfg.ConsumerName = fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
	}

	client := &Client{
		client: rdb,
		config: cfg,
		logger: logger,
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.String("consumer_group", cfg.ConsumerGroup),
		zap.String("consumer_name", cfg.ConsumerName))

	// Initialize consumer group for the stream
	if err := client.initializeConsumerGroup(ctx); err != nil {
		logger.Warn("Failed to initialize consumer group (may already exist)", zap.Error(err))
	}

	return client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Redis exposes the underlying connection for the stores
func (c *Client) Redis() *redis.Client {
	return c.client
}

// PublishExportResult publishes an export result on its request's channel
func (c *Client) PublishExportResult(ctx context.Context, result *models.ExportResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal export result: %w", err)
	}

	channel := ResultChannel(result.UUID)

	if err := c.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}

	c.logger.Debug("Published export result",
		zap.String("channel", channel),
		zap.String("uuid", result.UUID),
		zap.Bool("failed", result.Error != ""))

	return nil
}

// EnqueueExport adds an export request to the stream
func (c *Client) EnqueueExport(ctx context.Context, request *models.ExportRequest) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal export request: %w", err)
	}

	id, err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		Values: map[string]interface{}{"payload": string(body)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue export request: %w", err)
	}
	return id, nil
}

// initializeConsumerGroup creates the consumer group for the export requests stream
func (c *Client) initializeConsumerGroup(ctx context.Context) error {
	// Using "0" as the ID means start from the beginning
	err := c.client.XGroupCreateMkStream(ctx, StreamKey, c.config.ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Consumer group initialized",
		zap.String("stream", StreamKey),
		zap.String("group", c.config.ConsumerGroup))

	return nil
}

// ReadFromStream reads messages from the export requests stream using the consumer group
func (c *Client) ReadFromStream(ctx context.Context, count int64, block time.Duration) ([]redis.XStream, error) {
	// ">" means only new messages not yet delivered to other consumers
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.ConsumerGroup,
		Consumer: c.config.ConsumerName,
		Streams:  []string{StreamKey, ">"},
		Count:    count,
		Block:    block,
		NoAck:    false, // We want to explicitly acknowledge messages
	}).Result()

	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	return streams, nil
}

// AcknowledgeMessage acknowledges a message from the stream
func (c *Client) AcknowledgeMessage(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, StreamKey, c.config.ConsumerGroup, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to acknowledge message %s: %w", messageID, err)
	}

	return nil
}

// IsHealthy checks if Redis connection is healthy
func (c *Client) IsHealthy(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}
