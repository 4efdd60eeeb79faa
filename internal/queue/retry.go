package queue

import (
	"context"

	"github.com/printqa/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// MaxRetries is how often a failed message is re-queued before it is moved
// to the dead-letter queue.
const MaxRetries = 10

// Channel is the subset of *amqp091.Channel used to re-route failed messages.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleProcessingError re-publishes msg to the retry queue of queueName, or
// to its dead-letter queue after MaxRetries attempts, and acks the delivery.
// If re-publishing fails the message is nacked back onto the work queue.
func HandleProcessingError(ctx context.Context, ch Channel, msg amqp091.Delivery, queueName string) {
	retries := retryCount(msg.Headers)

	target := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	if retries >= MaxRetries {
		target = queueName + "_dlq"
		headers = msg.Headers
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target, "retries", retries)
	}

	err := ch.PublishWithContext(
		ctx,
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		logger.Error("[Queue] Failed to re-route message", "target", target, "err", err)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			logger.Error("[Queue] Failed to nack message", "err", nackErr)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}
