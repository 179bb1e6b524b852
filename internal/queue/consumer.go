package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartPatrolConsumer connects to RabbitMQ, declares the patrol.changed
// queue (durable), and delivers each decoded event to handle. It runs a
// reconnect loop with exponential backoff and keeps running through broker
// restarts; processing errors are logged and the offending message is
// rejected without requeue so the feed never loops on a bad payload.
// Intended to be run on its own goroutine from main.
func StartPatrolConsumer(handle func(PatrolChangedEvent)) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(amqpURL())
		if err != nil {
			log.Printf("patrol-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, handle); err != nil {
			log.Printf("patrol-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, handle func(PatrolChangedEvent)) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("patrol-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(patrolQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(patrolQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		var ev PatrolChangedEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("patrol-consumer: unmarshal failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		handle(ev)
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}
