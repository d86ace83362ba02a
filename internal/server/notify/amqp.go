package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the durable queue consumed by the email worker.
const DefaultQueue = "email.outbound"

type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel and returns it with a func closing the connection.
type dialFunc func(url string) (channel, func() error, error)

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

// AMQPNotifier publishes each message as persistent JSON to a durable
// RabbitMQ queue. It dials per message; invite and two-factor traffic is
// low volume.
type AMQPNotifier struct {
	url    string
	queue  string
	dial   dialFunc
	now    func() time.Time
	logger logging.Logger
}

func NewAMQPNotifier(url, queue string, l logging.Logger) *AMQPNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPNotifier{
		url:    url,
		queue:  queue,
		dial:   dialAMQP,
		now:    time.Now,
		logger: l.With("module", "notify"),
	}
}

func (n *AMQPNotifier) Send(ctx context.Context, template, recipient string, vars map[string]string) error {
	body, err := json.Marshal(Message{
		Template:  template,
		Recipient: recipient,
		Vars:      vars,
		CreatedAt: n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, closeConn, err := n.dial(n.url)
	if err != nil {
		n.logger.Error(ctx, "rabbitmq dial failed", "error", err)
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() {
		_ = ch.Close()
		_ = closeConn()
	}()

	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	n.logger.Debug(ctx, "email published", "template", template, "queue", n.queue)
	return nil
}
