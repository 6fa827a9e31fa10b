package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const bridgePublishTimeout = 5 * time.Second

// bridgeMessage wraps a room frame for cross-instance transport. The
// instance id lets each subscriber skip its own publications.
type bridgeMessage struct {
	InstanceID string   `json:"instanceId"`
	StoryID    string   `json:"storyId"`
	CanvasID   string   `json:"canvasId"`
	Envelope   Envelope `json:"envelope"`
}

// RedisBridge relays room traffic between server instances over a Redis
// pub/sub channel, so two editors connected to different instances still
// share a room. With a single instance the bridge is simply not wired.
type RedisBridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	hub        *Hub
	logger     *zap.Logger
	cancel     context.CancelFunc
}

// NewRedisBridge creates a bridge publishing on the given channel
func NewRedisBridge(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		hub:        hub,
		logger:     logger,
	}
}

// Publish sends a room frame to every other instance
func (b *RedisBridge) Publish(ctx context.Context, storyID, canvasID string, env Envelope) error {
	msg := bridgeMessage{
		InstanceID: b.instanceID,
		StoryID:    storyID,
		CanvasID:   canvasID,
		Envelope:   env,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Start subscribes to the channel and re-dispatches foreign frames into
// local rooms until Stop is called
func (b *RedisBridge) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	sub := b.client.Subscribe(ctx, b.channel)
	go b.receiveLoop(ctx, sub)
	b.logger.Info("redis bridge started",
		zap.String("channel", b.channel),
		zap.String("instance_id", b.instanceID),
	)
}

// Stop halts the subscription loop
func (b *RedisBridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *RedisBridge) receiveLoop(ctx context.Context, sub *redis.PubSub) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg bridgeMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.Warn("discarding malformed bridge message", zap.Error(err))
				continue
			}
			if msg.InstanceID == b.instanceID {
				continue
			}
			b.hub.DispatchRemote(msg.StoryID, msg.CanvasID, msg.Envelope)
		}
	}
}
