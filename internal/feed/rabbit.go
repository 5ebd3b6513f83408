package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

const rabbitExchange = "pos.events"

// RabbitFeed consumes the same envelope stream over a topic exchange.
// Each gateway instance gets its own server-named exclusive queue, so
// every instance sees every event (fan-out, not work-sharing). Run
// returns when the connection drops; the Supervisor redials.
type RabbitFeed struct {
	url string
	log zerolog.Logger
}

func NewRabbitFeed(url string, log zerolog.Logger) *RabbitFeed {
	return &RabbitFeed{
		url: url,
		log: log.With().Str("component", "rabbit-feed").Logger(),
	}
}

func (f *RabbitFeed) Run(ctx context.Context, h Handler) error {
	conn, err := amqp091.Dial(f.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		rabbitExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range []string{pos.TopicOrders, pos.TopicTables} {
		if err := ch.QueueBind(q.Name, key, rabbitExchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	deliveries, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	f.log.Info().Str("queue", q.Name).Msg("rabbit feed attached")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			var env pos.Envelope
			if err := json.Unmarshal(d.Body, &env); err != nil {
				f.log.Warn().Err(err).Msg("skipping malformed event")
				_ = d.Ack(false)
				continue
			}
			if err := h(ctx, env); err != nil {
				f.log.Warn().Err(err).Str("event_id", env.EventID).Msg("handler failed, requeueing")
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
