package queue

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpQueueName = "usgears.jobs"

// AMQPDriver publishes jobs to a durable RabbitMQ queue. A delivery is acked
// as soon as it is popped; retries and failures are handled by the Manager.
type AMQPDriver struct {
	conn *amqp.Connection
	pub  *amqp.Channel

	consumeOnce sync.Once
	consumeErr  error
	deliveries  <-chan amqp.Delivery
}

func NewAMQPDriver(url string) (*AMQPDriver, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue/amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue/amqp: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(amqpQueueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue/amqp: declare %s: %w", amqpQueueName, err)
	}
	return &AMQPDriver{conn: conn, pub: ch}, nil
}

func (d *AMQPDriver) Push(ctx context.Context, payload []byte) error {
	err := d.pub.PublishWithContext(ctx, "", amqpQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("queue/amqp: publish: %w", err)
	}
	return nil
}

// consume opens a separate channel for deliveries so publishing never blocks
// behind prefetch.
func (d *AMQPDriver) consume() error {
	d.consumeOnce.Do(func() {
		ch, err := d.conn.Channel()
		if err != nil {
			d.consumeErr = fmt.Errorf("queue/amqp: open consumer channel: %w", err)
			return
		}
		if err := ch.Qos(8, 0, false); err != nil {
			d.consumeErr = fmt.Errorf("queue/amqp: qos: %w", err)
			return
		}
		d.deliveries, d.consumeErr = ch.Consume(amqpQueueName, "usgears-worker", false, false, false, false, nil)
	})
	return d.consumeErr
}

func (d *AMQPDriver) Pop(ctx context.Context) ([]byte, error) {
	if err := d.consume(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-d.deliveries:
		if !ok {
			return nil, fmt.Errorf("queue/amqp: delivery channel closed")
		}
		if err := msg.Ack(false); err != nil {
			return nil, fmt.Errorf("queue/amqp: ack: %w", err)
		}
		return msg.Body, nil
	}
}

func (d *AMQPDriver) Close() error {
	return d.conn.Close()
}
