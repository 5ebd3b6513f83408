package feed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

// The supervisor reruns a dropped feed on the same value. Every Run must
// get a fresh reader: a second invocation may not fail on the remnants of
// the first one's teardown.
func TestKafkaFeedIsRerunnable(t *testing.T) {
	f := NewKafkaFeed([]string{"127.0.0.1:1"}, "pos-gateway", []string{pos.TopicOrders}, 1, zerolog.Nop())

	noop := func(context.Context, pos.Envelope) error { return nil }
	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		err := f.Run(ctx, noop)
		cancel()
		assert.NoError(t, err, "run %d must end on ctx, not on a stale reader", i+1)
	}
}
