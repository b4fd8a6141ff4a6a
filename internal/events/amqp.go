package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	routingKeyPrefix = "ledger.integrity."
	publishTimeout   = 5 * time.Second
)

// publisher is the subset of *amqp091.Channel used for publishing.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPReporter publishes integrity events as persistent JSON messages to a
// durable topic exchange, routed by ledger.integrity.<kind>.
type AMQPReporter struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	pub      publisher
	exchange string
	log      *zap.SugaredLogger
}

// NewAMQPReporter dials the broker and declares the exchange.
func NewAMQPReporter(url, exchange string, log *zap.SugaredLogger) (*AMQPReporter, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPReporter{
		conn:     conn,
		channel:  channel,
		pub:      channel,
		exchange: exchange,
		log:      log,
	}, nil
}

// RoutingKey returns the routing key for an event kind.
func RoutingKey(kind string) string {
	return routingKeyPrefix + kind
}

// Report implements Reporter. Publish failures are logged and swallowed.
func (r *AMQPReporter) Report(ctx context.Context, event IntegrityEvent) {
	if err := r.publish(ctx, event); err != nil {
		r.log.Errorw("Failed to publish integrity event",
			"error", err,
			"kind", event.Kind,
			"transaction_id", event.TransactionID,
			"exchange", r.exchange,
		)
	}
}

func (r *AMQPReporter) publish(ctx context.Context, event IntegrityEvent) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// The caller's request context may already be cancelled when a failed
	// mutation is reported.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = r.pub.PublishWithContext(
		ctx,
		r.exchange,             // exchange
		RoutingKey(event.Kind), // routing key
		false,                  // mandatory
		false,                  // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close closes the channel and the connection.
func (r *AMQPReporter) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
