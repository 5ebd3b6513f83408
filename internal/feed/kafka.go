package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

// KafkaFeed reads envelope events from one consumer group over the entity
// topics. Offsets are committed manually, only after the handler returns
// nil. Malformed events are logged and committed: a poison message must
// not wedge a UI stream.
type KafkaFeed struct {
	brokers []string
	group   string
	topics  []string
	workers int
	log     zerolog.Logger
}

func NewKafkaFeed(brokers []string, group string, topics []string, workers int, log zerolog.Logger) *KafkaFeed {
	if workers <= 0 {
		workers = 1
	}
	return &KafkaFeed{
		brokers: brokers,
		group:   group,
		topics:  topics,
		workers: workers,
		log:     log.With().Str("component", "kafka-feed").Logger(),
	}
}

// Run consumes until ctx ends or the connection drops. The reader is
// built fresh on every invocation: the Supervisor reruns a dropped feed,
// and a closed reader must not poison the redial.
func (f *KafkaFeed) Run(ctx context.Context, h Handler) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        f.brokers,
		GroupID:        f.group,
		GroupTopics:    f.topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	defer r.Close()

	jobs := make(chan kafka.Message, 1024)
	errs := make(chan error, f.workers)

	for i := 0; i < f.workers; i++ {
		go func() {
			for m := range jobs {
				var env pos.Envelope
				if err := json.Unmarshal(m.Value, &env); err != nil {
					f.log.Warn().Err(err).
						Str("topic", m.Topic).Int64("offset", m.Offset).
						Msg("skipping malformed event")
				} else if err := h(ctx, env); err != nil {
					errs <- err
					continue
				}
				// commit on success
				if err := r.CommitMessages(ctx, m); err != nil {
					errs <- err
				}
			}
		}()
	}

	// dispatcher loop
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			return nil
		}

		// non-blocking drain so a stuck worker cannot deadlock the loop
		select {
		case e := <-errs:
			f.log.Warn().Err(e).Msg("feed worker error")
			time.Sleep(200 * time.Millisecond)
		default:
		}
	}
}
