package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

// Consumer drains CRM events from the Pub/Sub hook subscription and
// feeds them through the dispatcher. The webhook controller covers
// direct deliveries; this path covers hosts that publish to a topic
// instead.
type Consumer struct {
	dispatcher   *Dispatcher
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer wires the dispatcher behind the subscription.
func NewConsumer(dispatcher *Dispatcher, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if dispatcher == nil {
		return nil, errors.New("hook dispatcher is required")
	}
	if subscription == nil {
		return nil, errors.New("hook subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{dispatcher: dispatcher, subscription: subscription, logg: logg}, nil
}

// Run processes hook events until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process returns true when the message should be acked. Only transient
// dependency failures are nacked for redelivery; malformed payloads and
// domain conflicts would fail the same way on every retry.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
	})

	var payload Payload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode hook message", err)
		return true
	}
	if strings.TrimSpace(payload.Event) == "" {
		c.logg.Warn(logCtx, "hook message missing event name")
		return true
	}

	if err := c.dispatcher.Dispatch(logCtx, payload); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDependency {
			return false
		}
		return true
	}
	return true
}
