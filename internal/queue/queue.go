package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/printqa/backend/internal/util"

	"github.com/rabbitmq/amqp091-go"
)

const (
	AnalysisQueue = "analysis_queue"
	TopicExchange = "pubsub_exchange"

	TopicAnalysisCompleted = "analysis.completed"
	TopicAnalysisFailed    = "analysis.failed"

	retryDelayMs = 10000
)

// Queues lists every work queue the worker consumes.
var Queues = []string{AnalysisQueue}

// Configured reports whether RABBITMQ_HOST is set.
func Configured() bool {
	return util.GetEnv("RABBITMQ_HOST") != ""
}

func Init() (*amqp091.Connection, error) {
	user := util.GetEnvString("RABBITMQ_USER", "guest")
	pass := util.GetEnvString("RABBITMQ_PASSWORD", "guest")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnvString("RABBITMQ_PORT", "5672")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	return conn, nil
}

// SetupQueues declares the event exchange and, per queue, the work queue,
// its dead-letter queue and a retry queue that dead-letters back into the
// work queue after a delay.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	err := ch.ExchangeDeclare(
		TopicExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", TopicExchange, err)
	}

	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryDelayMs),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", retryName, err)
		}
	}

	return nil
}

// Publisher sends work items and events.
type Publisher interface {
	PublishFIFO(ctx context.Context, queueName string, data []byte) error
	PublishTopic(ctx context.Context, topic string, data []byte) error
}

// ChannelPublisher publishes on an AMQP channel. Queues and the exchange
// must have been declared with SetupQueues.
type ChannelPublisher struct {
	ch *amqp091.Channel
}

func NewChannelPublisher(ch *amqp091.Channel) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func persistent(data []byte) amqp091.Publishing {
	return amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
}

func (p *ChannelPublisher) PublishFIFO(ctx context.Context, queueName string, data []byte) error {
	return p.ch.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		persistent(data),
	)
}

func (p *ChannelPublisher) PublishTopic(ctx context.Context, topic string, data []byte) error {
	return p.ch.PublishWithContext(
		ctx,
		TopicExchange,
		topic,
		false,
		false,
		persistent(data),
	)
}
